package domain

import (
	"encoding/json"
	"fmt"
)

// Kind tags the variant of a ClassifiedTransaction.
type Kind string

const (
	KindTransfer     Kind = "transfer"
	KindRaw          Kind = "raw"
	KindMint         Kind = "mint"
	KindSwap         Kind = "swap"
	KindApprove      Kind = "approve"
	KindBridge       Kind = "bridge"
	KindContractCall Kind = "contractCall"
)

// Kinds lists every variant.
var Kinds = []Kind{KindTransfer, KindRaw, KindMint, KindApprove, KindSwap, KindBridge, KindContractCall}

// TokenStandard names the asset moved by a transfer or mint.
type TokenStandard string

const (
	StandardETH     TokenStandard = "ETH"
	StandardERC20   TokenStandard = "ERC20"
	StandardERC721  TokenStandard = "ERC721"
	StandardERC1155 TokenStandard = "ERC1155"
)

// Header is shared by every variant.
type Header struct {
	ID        string
	From      string
	To        string
	Timestamp int64
	ChainID   uint64
}

type TransferDetails struct {
	Amount          string        `json:"amount"`
	ContractAddress *string       `json:"contractAddress"`
	TokenName       *string       `json:"tokenName"`
	TransferType    TokenStandard `json:"transferType"`
	TokenID         *string       `json:"tokenId"`
}

type RawDetails struct {
	Value string `json:"value"`
	Input string `json:"input"`
}

type MintDetails struct {
	Amount          string        `json:"amount"`
	ContractAddress *string       `json:"contractAddress"`
	CollectionName  *string       `json:"collectionName"`
	TokenType       TokenStandard `json:"tokenType"`
	TokenID         string        `json:"tokenId"`
}

type SwapDetails struct {
	ContractAddress *string `json:"contractAddress"`
	Platform        string  `json:"platform"`
}

type ApproveDetails struct {
	Amount          string  `json:"amount"`
	ContractAddress *string `json:"contractAddress"`
	TokenName       *string `json:"tokenName"`
}

type BridgeDetails struct {
	Amount             string  `json:"amount"`
	ContractAddress    *string `json:"contractAddress"`
	TokenName          *string `json:"tokenName"`
	Platform           string  `json:"platform"`
	DestinationChainID *uint64 `json:"destinationChainId"`
}

type ContractCallDetails struct {
	Signature string  `json:"signature"`
	Params    []Param `json:"params"`
	Value     string  `json:"value"`
}

// ClassifiedTransaction is a closed sum type: Kind selects which single
// payload pointer is set.
type ClassifiedTransaction struct {
	Kind Kind
	Header

	Transfer     *TransferDetails
	Raw          *RawDetails
	Mint         *MintDetails
	Swap         *SwapDetails
	Approve      *ApproveDetails
	Bridge       *BridgeDetails
	ContractCall *ContractCallDetails
}

// Page is the classified output for one upstream page. An empty Cursor marks
// the end of history.
type Page struct {
	Transactions []ClassifiedTransaction `json:"transactions"`
	Cursor       string                  `json:"cursor"`
}

type wireHeader struct {
	Type      Kind   `json:"type"`
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp int64  `json:"timestamp"`
	ChainID   uint64 `json:"chainId"`
}

type wireTo struct {
	To string `json:"to"`
}

func (t ClassifiedTransaction) MarshalJSON() ([]byte, error) {
	head := wireHeader{Type: t.Kind, ID: t.ID, From: t.From, Timestamp: t.Timestamp, ChainID: t.ChainID}
	to := wireTo{To: t.To}
	switch t.Kind {
	case KindTransfer:
		if t.Transfer == nil {
			return nil, missingPayload(t.Kind)
		}
		return json.Marshal(struct {
			wireHeader
			wireTo
			*TransferDetails
		}{head, to, t.Transfer})
	case KindRaw:
		if t.Raw == nil {
			return nil, missingPayload(t.Kind)
		}
		return json.Marshal(struct {
			wireHeader
			wireTo
			*RawDetails
		}{head, to, t.Raw})
	case KindMint:
		if t.Mint == nil {
			return nil, missingPayload(t.Kind)
		}
		return json.Marshal(struct {
			wireHeader
			wireTo
			*MintDetails
		}{head, to, t.Mint})
	case KindSwap:
		if t.Swap == nil {
			return nil, missingPayload(t.Kind)
		}
		return json.Marshal(struct {
			wireHeader
			wireTo
			*SwapDetails
		}{head, to, t.Swap})
	case KindApprove:
		if t.Approve == nil {
			return nil, missingPayload(t.Kind)
		}
		return json.Marshal(struct {
			wireHeader
			*ApproveDetails
		}{head, t.Approve})
	case KindBridge:
		if t.Bridge == nil {
			return nil, missingPayload(t.Kind)
		}
		return json.Marshal(struct {
			wireHeader
			wireTo
			*BridgeDetails
		}{head, to, t.Bridge})
	case KindContractCall:
		if t.ContractCall == nil {
			return nil, missingPayload(t.Kind)
		}
		return json.Marshal(struct {
			wireHeader
			wireTo
			*ContractCallDetails
		}{head, to, t.ContractCall})
	default:
		return nil, fmt.Errorf("unknown transaction kind %q", t.Kind)
	}
}

func (t *ClassifiedTransaction) UnmarshalJSON(data []byte) error {
	var head struct {
		wireHeader
		wireTo
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	out := ClassifiedTransaction{
		Kind: head.Type,
		Header: Header{
			ID:        head.ID,
			From:      head.From,
			To:        head.To,
			Timestamp: head.Timestamp,
			ChainID:   head.ChainID,
		},
	}
	var target any
	switch head.Type {
	case KindTransfer:
		out.Transfer = &TransferDetails{}
		target = out.Transfer
	case KindRaw:
		out.Raw = &RawDetails{}
		target = out.Raw
	case KindMint:
		out.Mint = &MintDetails{}
		target = out.Mint
	case KindSwap:
		out.Swap = &SwapDetails{}
		target = out.Swap
	case KindApprove:
		out.Approve = &ApproveDetails{}
		target = out.Approve
	case KindBridge:
		out.Bridge = &BridgeDetails{}
		target = out.Bridge
	case KindContractCall:
		out.ContractCall = &ContractCallDetails{}
		target = out.ContractCall
	default:
		return fmt.Errorf("unknown transaction kind %q", head.Type)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return err
	}
	*t = out
	return nil
}

func missingPayload(kind Kind) error {
	return fmt.Errorf("%s transaction has no payload", kind)
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
