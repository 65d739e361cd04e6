package application

import (
	"context"
	"errors"
	"testing"

	"txfeed/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResolver_RequiresSource(t *testing.T) {
	_, err := NewResolver(nil, nil)
	assert.Error(t, err)
}

func TestResolver_DedupsAndSplitsBooks(t *testing.T) {
	contracts := &fakeContracts{
		fungible: []domain.ContractMetadata{
			{ChainID: 1, Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Decimals: 6},
			{ChainID: 137, Address: "0x2791bca1f2de4661ed88a30c99a7a9449aa84174", Symbol: "USDC.e", Decimals: 6},
		},
		nonFungible: []domain.ContractMetadata{
			{Address: "0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d", Name: "BAYC", ContractType: 721},
		},
	}
	resolver, err := NewResolver(contracts, nil)
	require.NoError(t, err)

	book, err := resolver.Resolve(context.Background(), 1, []string{
		"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
		"0xA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48",
		"0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d",
		"",
	})
	require.NoError(t, err)

	require.Len(t, contracts.keys, 2)
	for _, keys := range contracts.keys {
		require.Len(t, keys, 2)
		assert.Equal(t, uint64(1), keys[0].ChainID)
		assert.Equal(t, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", keys[0].Address)
	}

	assert.Equal(t, 6, book.Decimals("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"))
	_, ok := book.Token("0x2791bca1f2de4661ed88a30c99a7a9449aa84174")
	assert.False(t, ok, "metadata from another chain is dropped")
	collection, ok := book.Collection("0xBC4CA0EDA7647A8AB7C2061C2E118A18A936F13D")
	require.True(t, ok)
	assert.Equal(t, "BAYC", collection.Name)
	assert.Equal(t, domain.DefaultDecimals, book.Decimals("0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d"))
}

func TestResolver_EmptyInputSkipsLookups(t *testing.T) {
	contracts := &fakeContracts{}
	resolver, err := NewResolver(contracts, nil)
	require.NoError(t, err)

	book, err := resolver.Resolve(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Empty(t, book.Fungible)
	assert.Equal(t, 0, contracts.calls())
}

func TestResolver_FailureFailsWholeResolution(t *testing.T) {
	contracts := &fakeContracts{err: errors.New("metadata down")}
	resolver, err := NewResolver(contracts, nil)
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), 1, []string{"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metadata down")
}
