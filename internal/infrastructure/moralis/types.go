package moralis

import (
	"encoding/json"
	"strings"

	"txfeed/internal/domain"
)

type historyResponse struct {
	Cursor string              `json:"cursor"`
	Result []walletTransaction `json:"result"`
}

type walletTransaction struct {
	Hash           string              `json:"hash"`
	FromAddress    string              `json:"from_address"`
	ToAddress      string              `json:"to_address"`
	ToAddressLabel string              `json:"to_address_label"`
	Value          string              `json:"value"`
	Input          string              `json:"input"`
	BlockNumber    string              `json:"block_number"`
	BlockTimestamp string              `json:"block_timestamp"`
	DecodedCall    *domain.DecodedCall `json:"decoded_call"`
	Logs           []walletLog         `json:"logs"`
}

type walletLog struct {
	Address      string        `json:"address"`
	DecodedEvent *decodedEvent `json:"decoded_event"`
}

type decodedEvent struct {
	Signature string         `json:"signature"`
	Label     string         `json:"label"`
	Params    []domain.Param `json:"params"`
}

func (t walletTransaction) toDomain() (domain.RawTransaction, error) {
	block, err := parseBlock(t.BlockNumber)
	if err != nil {
		return domain.RawTransaction{}, err
	}
	logs := make([]domain.DecodedLog, 0, len(t.Logs))
	for _, l := range t.Logs {
		entry := domain.DecodedLog{Address: strings.ToLower(l.Address)}
		if l.DecodedEvent != nil {
			entry.Signature = l.DecodedEvent.Signature
			entry.Params = l.DecodedEvent.Params
		}
		logs = append(logs, entry)
	}
	return domain.RawTransaction{
		Hash:           t.Hash,
		From:           t.FromAddress,
		To:             t.ToAddress,
		ToLabel:        t.ToAddressLabel,
		Value:          t.Value,
		Input:          t.Input,
		BlockNumber:    block,
		BlockTimestamp: t.BlockTimestamp,
		DecodedCall:    t.DecodedCall,
		Logs:           logs,
	}, nil
}

type transferResponse[T any] struct {
	Cursor string `json:"cursor"`
	Result []T    `json:"result"`
}

type erc20Transfer struct {
	TokenName       string `json:"token_name"`
	TokenSymbol     string `json:"token_symbol"`
	TokenDecimals   string `json:"token_decimals"`
	Address         string `json:"address"`
	TransactionHash string `json:"transaction_hash"`
	BlockNumber     string `json:"block_number"`
	Value           string `json:"value"`
	ValueDecimal    string `json:"value_decimal"`
}

type nftTransfer struct {
	TokenAddress    string `json:"token_address"`
	TransactionHash string `json:"transaction_hash"`
	BlockNumber     string `json:"block_number"`
	TokenID         string `json:"token_id"`
	Amount          string `json:"amount"`
	ContractType    string `json:"contract_type"`
}

type statsResponse struct {
	Transactions struct {
		Total json.RawMessage `json:"total"`
	} `json:"transactions"`
}
