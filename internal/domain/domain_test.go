package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedTransaction_MarshalRequiresPayload(t *testing.T) {
	_, err := json.Marshal(ClassifiedTransaction{Kind: KindSwap})
	assert.Error(t, err)
	_, err = json.Marshal(ClassifiedTransaction{Kind: "teleport", Swap: &SwapDetails{}})
	assert.Error(t, err)
}

func TestClassifiedTransaction_BridgeWireShape(t *testing.T) {
	dest := uint64(10)
	txn := ClassifiedTransaction{
		Kind:   KindBridge,
		Header: Header{ID: "0x1", From: "0xa", To: "0xb", Timestamp: 1000, ChainID: 1},
		Bridge: &BridgeDetails{Amount: "1.0", ContractAddress: StringPtr("0xb"), Platform: "hop", DestinationChainID: &dest},
	}
	data, err := json.Marshal(txn)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type":"bridge","id":"0x1","from":"0xa","to":"0xb","timestamp":1000,"chainId":1,
		"amount":"1.0","contractAddress":"0xb","tokenName":null,"platform":"hop","destinationChainId":10
	}`, string(data))

	var decoded ClassifiedTransaction
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, txn, decoded)
}

func TestClassifiedTransaction_UnmarshalRejectsUnknownType(t *testing.T) {
	var txn ClassifiedTransaction
	assert.Error(t, json.Unmarshal([]byte(`{"type":"teleport"}`), &txn))
}

func TestParam_String(t *testing.T) {
	assert.Equal(t, "500000", StringParam("value", "500000").String())
	assert.Equal(t, "42", Param{Value: json.RawMessage(`42`)}.String())
	assert.Equal(t, `["a","b"]`, Param{Value: json.RawMessage(`["a","b"]`)}.String())
	assert.Equal(t, "", Param{}.String())
}

func TestRawPage_BlockRangeAndDestinations(t *testing.T) {
	_, _, ok := RawPage{}.BlockRange()
	assert.False(t, ok)

	page := RawPage{Transactions: []RawTransaction{
		{BlockNumber: 120, To: "0xAB"},
		{BlockNumber: 110, To: "0xab"},
		{BlockNumber: 100, To: ""},
		{BlockNumber: 90, To: "0xcd"},
	}}
	start, end, ok := page.BlockRange()
	require.True(t, ok)
	assert.Equal(t, uint64(90), start)
	assert.Equal(t, uint64(120), end)
	assert.Equal(t, []string{"0xab", "0xcd"}, page.DestinationAddresses())
}

func TestParseChain(t *testing.T) {
	chain, err := ParseChain("")
	require.NoError(t, err)
	assert.Equal(t, ChainEthereum, chain)
	assert.Equal(t, uint64(1), chain.ID())

	chain, err = ParseChain("Polygon")
	require.NoError(t, err)
	assert.Equal(t, uint64(137), chain.ID())

	_, err = ParseChain("solana")
	assert.True(t, errors.Is(err, ErrUnsupportedChain))
}

func TestUpstreamError(t *testing.T) {
	err := &UpstreamError{Op: "wallet_history", Status: 429, Err: errors.New("rate limited")}
	assert.True(t, errors.Is(err, ErrUpstreamFetch))
	assert.Equal(t, "wallet_history: status 429: rate limited", err.Error())
}

func TestContractBook_Defaults(t *testing.T) {
	book := NewContractBook()
	assert.Equal(t, DefaultDecimals, book.Decimals("0xunknown"))
	book.Fungible["0xabc"] = ContractMetadata{Decimals: 6}
	assert.Equal(t, 6, book.Decimals("0xABC"))

	standard, ok := ContractMetadata{ContractType: 1155}.Standard()
	assert.True(t, ok)
	assert.Equal(t, StandardERC1155, standard)
	_, ok = ContractMetadata{}.Standard()
	assert.False(t, ok)
}
