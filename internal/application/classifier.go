package application

import (
	"strconv"
	"strings"
	"time"

	"txfeed/internal/domain"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Evidence is everything a rule may consult besides the transaction itself.
type Evidence struct {
	ChainID   uint64
	Contracts domain.ContractBook
	Transfers TransferLookup
}

type rule struct {
	name  string
	match func(txn domain.RawTransaction, ev Evidence) bool
	build func(txn domain.RawTransaction, ev Evidence) domain.ClassifiedTransaction
}

// Classifier assigns exactly one kind to a transaction by walking an ordered
// rule chain. The last rule always matches.
type Classifier struct {
	rules []rule
}

func NewClassifier() *Classifier {
	return &Classifier{rules: []rule{
		{name: "ethTransfer", match: matchEthTransfer, build: buildEthTransfer},
		{name: "raw", match: matchRaw, build: buildRaw},
		{name: "tokenTransfer", match: matchTokenTransfer, build: buildTokenTransfer},
		{name: "mint", match: matchMint, build: buildMint},
		{name: "approve", match: matchApprove, build: buildApprove},
		{name: "swap", match: matchSwap, build: buildSwap},
		{name: "bridge", match: matchBridge, build: buildBridge},
		{name: "contractCall", match: matchAny, build: buildContractCall},
	}}
}

// RuleNames lists the rules in evaluation order.
func (c *Classifier) RuleNames() []string {
	names := make([]string, 0, len(c.rules))
	for _, r := range c.rules {
		names = append(names, r.name)
	}
	return names
}

// Classify is total: every transaction maps to exactly one variant.
func (c *Classifier) Classify(txn domain.RawTransaction, ev Evidence) domain.ClassifiedTransaction {
	if ev.Transfers == nil {
		ev.Transfers = emptyLookup{}
	}
	for _, r := range c.rules {
		if r.match(txn, ev) {
			return r.build(txn, ev)
		}
	}
	return buildContractCall(txn, ev)
}

func header(txn domain.RawTransaction, ev Evidence) domain.Header {
	return domain.Header{
		ID:        txn.Hash,
		From:      txn.From,
		To:        txn.To,
		Timestamp: parseTimestamp(txn.BlockTimestamp),
		ChainID:   ev.ChainID,
	}
}

// parseTimestamp returns unix milliseconds for an RFC 3339 or unix-seconds
// timestamp, zero when neither parses.
func parseTimestamp(raw string) int64 {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts.UnixMilli()
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return secs * 1000
	}
	return 0
}

func signature(txn domain.RawTransaction) string {
	if txn.DecodedCall == nil {
		return ""
	}
	return txn.DecodedCall.Signature
}

func callParams(txn domain.RawTransaction) []domain.Param {
	if txn.DecodedCall == nil {
		return nil
	}
	return txn.DecodedCall.Params
}

func hasEmptyInput(input string) bool {
	if strings.TrimSpace(input) == "" {
		return true
	}
	data, err := hexutil.Decode(strings.TrimSpace(input))
	return err == nil && len(data) == 0
}

func containsFold(s string, markers ...string) bool {
	lower := strings.ToLower(s)
	for _, marker := range markers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// paramOrValue returns the named call parameter, falling back to the native value.
func paramOrValue(txn domain.RawTransaction, name string) string {
	if p, ok := domain.LookupParam(callParams(txn), name); ok && p.String() != "" {
		return p.String()
	}
	return txn.Value
}

func tokenName(m domain.ContractMetadata) string {
	if m.Name != "" {
		return m.Name
	}
	return m.Symbol
}

func matchEthTransfer(txn domain.RawTransaction, _ Evidence) bool {
	return isPositive(txn.Value) && hasEmptyInput(txn.Input)
}

func buildEthTransfer(txn domain.RawTransaction, ev Evidence) domain.ClassifiedTransaction {
	return domain.ClassifiedTransaction{
		Kind:   domain.KindTransfer,
		Header: header(txn, ev),
		Transfer: &domain.TransferDetails{
			Amount:       FormatEther(txn.Value),
			TransferType: domain.StandardETH,
		},
	}
}

func matchRaw(txn domain.RawTransaction, _ Evidence) bool {
	return txn.DecodedCall == nil
}

func buildRaw(txn domain.RawTransaction, ev Evidence) domain.ClassifiedTransaction {
	return domain.ClassifiedTransaction{
		Kind:   domain.KindRaw,
		Header: header(txn, ev),
		Raw: &domain.RawDetails{
			Value: FormatEther(txn.Value),
			Input: txn.Input,
		},
	}
}

func matchTokenTransfer(txn domain.RawTransaction, ev Evidence) bool {
	if !strings.Contains(signature(txn), "transfer") {
		return false
	}
	if _, ok := ev.Transfers.FindFungible(txn.Hash); ok {
		return true
	}
	_, ok := ev.Transfers.FindNonFungible(txn.Hash)
	return ok
}

func buildTokenTransfer(txn domain.RawTransaction, ev Evidence) domain.ClassifiedTransaction {
	if transfer, ok := ev.Transfers.FindFungible(txn.Hash); ok {
		return fungibleTransfer(txn, ev, transfer)
	}
	transfer, _ := ev.Transfers.FindNonFungible(txn.Hash)
	return nonFungibleTransfer(txn, ev, transfer)
}

func fungibleTransfer(txn domain.RawTransaction, ev Evidence, transfer domain.FungibleTransfer) domain.ClassifiedTransaction {
	address := transfer.TokenAddress
	if address == "" {
		address = txn.To
	}
	standard := domain.StandardERC20
	if collection, ok := ev.Contracts.Collection(address); ok {
		if s, ok := collection.Standard(); ok {
			standard = s
		}
	}
	name := transfer.TokenName
	if meta, ok := ev.Contracts.Token(address); ok && tokenName(meta) != "" {
		name = tokenName(meta)
	}
	return domain.ClassifiedTransaction{
		Kind:   domain.KindTransfer,
		Header: header(txn, ev),
		Transfer: &domain.TransferDetails{
			Amount:          FormatUnits(transfer.Value, ev.Contracts.Decimals(address)),
			ContractAddress: domain.StringPtr(address),
			TokenName:       domain.StringPtr(name),
			TransferType:    standard,
		},
	}
}

func nonFungibleTransfer(txn domain.RawTransaction, ev Evidence, transfer domain.NonFungibleTransfer) domain.ClassifiedTransaction {
	address := transfer.TokenAddress
	if address == "" {
		address = txn.To
	}
	standard := transfer.ContractType
	var name string
	if collection, ok := ev.Contracts.Collection(address); ok {
		if s, ok := collection.Standard(); ok {
			standard = s
		}
		name = tokenName(collection)
	}
	if standard == "" {
		standard = domain.StandardERC721
	}
	amount := transfer.Amount
	if amount == "" {
		amount = "1"
	}
	return domain.ClassifiedTransaction{
		Kind:   domain.KindTransfer,
		Header: header(txn, ev),
		Transfer: &domain.TransferDetails{
			Amount:          amount,
			ContractAddress: domain.StringPtr(address),
			TokenName:       domain.StringPtr(name),
			TransferType:    standard,
			TokenID:         domain.StringPtr(transfer.TokenID),
		},
	}
}

func matchMint(txn domain.RawTransaction, _ Evidence) bool {
	return containsFold(signature(txn), "mint", "purchase")
}

func buildMint(txn domain.RawTransaction, ev Evidence) domain.ClassifiedTransaction {
	var (
		matched int
		ids     []string
	)
	for _, log := range txn.Logs {
		if !strings.Contains(log.Signature, "Transfer") {
			continue
		}
		matched++
		if p, ok := domain.LookupParam(log.Params, "value"); ok {
			ids = append(ids, p.String())
		}
	}
	tokenType := domain.StandardERC721
	var collectionName string
	if collection, ok := ev.Contracts.Collection(txn.To); ok {
		if s, ok := collection.Standard(); ok {
			tokenType = s
		}
		collectionName = tokenName(collection)
	}
	return domain.ClassifiedTransaction{
		Kind:   domain.KindMint,
		Header: header(txn, ev),
		Mint: &domain.MintDetails{
			Amount:          formatCount(matched),
			ContractAddress: domain.StringPtr(txn.To),
			CollectionName:  domain.StringPtr(collectionName),
			TokenType:       tokenType,
			TokenID:         strings.Join(ids, ","),
		},
	}
}

func matchApprove(txn domain.RawTransaction, _ Evidence) bool {
	return strings.Contains(signature(txn), "approve")
}

func buildApprove(txn domain.RawTransaction, ev Evidence) domain.ClassifiedTransaction {
	var name string
	if meta, ok := ev.Contracts.Token(txn.To); ok {
		name = tokenName(meta)
	}
	return domain.ClassifiedTransaction{
		Kind:   domain.KindApprove,
		Header: header(txn, ev),
		Approve: &domain.ApproveDetails{
			Amount:          FormatUnits(paramOrValue(txn, "value"), ev.Contracts.Decimals(txn.To)),
			ContractAddress: domain.StringPtr(txn.To),
			TokenName:       domain.StringPtr(name),
		},
	}
}

func matchSwap(txn domain.RawTransaction, _ Evidence) bool {
	return containsFold(signature(txn), "swap")
}

func buildSwap(txn domain.RawTransaction, ev Evidence) domain.ClassifiedTransaction {
	return domain.ClassifiedTransaction{
		Kind:   domain.KindSwap,
		Header: header(txn, ev),
		Swap: &domain.SwapDetails{
			ContractAddress: domain.StringPtr(txn.To),
			Platform:        PlatformLabel(txn.ToLabel),
		},
	}
}

func matchBridge(txn domain.RawTransaction, _ Evidence) bool {
	return containsFold(signature(txn), "sendtol2", "bridge")
}

func buildBridge(txn domain.RawTransaction, ev Evidence) domain.ClassifiedTransaction {
	var name string
	if meta, ok := ev.Contracts.Token(txn.To); ok {
		name = tokenName(meta)
	}
	var destination *uint64
	if p, ok := domain.LookupParam(callParams(txn), "chainId"); ok {
		if id, ok := parseChainID(p.String()); ok {
			destination = &id
		}
	}
	return domain.ClassifiedTransaction{
		Kind:   domain.KindBridge,
		Header: header(txn, ev),
		Bridge: &domain.BridgeDetails{
			Amount:             FormatEther(paramOrValue(txn, "value")),
			ContractAddress:    domain.StringPtr(txn.To),
			TokenName:          domain.StringPtr(name),
			Platform:           PlatformLabel(txn.ToLabel),
			DestinationChainID: destination,
		},
	}
}

func matchAny(domain.RawTransaction, Evidence) bool { return true }

func buildContractCall(txn domain.RawTransaction, ev Evidence) domain.ClassifiedTransaction {
	params := callParams(txn)
	if params == nil {
		params = []domain.Param{}
	}
	return domain.ClassifiedTransaction{
		Kind:   domain.KindContractCall,
		Header: header(txn, ev),
		ContractCall: &domain.ContractCallDetails{
			Signature: signature(txn),
			Params:    params,
			Value:     FormatEther(txn.Value),
		},
	}
}

type emptyLookup struct{}

func (emptyLookup) FindFungible(string) (domain.FungibleTransfer, bool) {
	return domain.FungibleTransfer{}, false
}

func (emptyLookup) FindNonFungible(string) (domain.NonFungibleTransfer, bool) {
	return domain.NonFungibleTransfer{}, false
}
