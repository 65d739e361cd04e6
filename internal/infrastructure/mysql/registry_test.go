package mysql

import (
	"testing"

	"txfeed/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestLookupQuery(t *testing.T) {
	query, args := lookupQuery(fungibleTable, "decimals", []domain.ContractKey{
		{ChainID: 1, Address: "0xABC"},
		{ChainID: 137, Address: "0xdef"},
	})

	assert.Equal(t,
		"SELECT chain_id, address, external_id, symbol, name, image, decimals FROM fungible_contracts WHERE (chain_id = ? AND address = ?) OR (chain_id = ? AND address = ?)",
		query)
	assert.Equal(t, []any{uint64(1), "0xabc", uint64(137), "0xdef"}, args)
}

func TestNewRegistry_RequiresDSN(t *testing.T) {
	_, err := NewRegistry("")
	assert.Error(t, err)
}
