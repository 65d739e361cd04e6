package domain

import "strings"

// DefaultDecimals applies to tokens whose metadata could not be resolved.
const DefaultDecimals = 18

// ContractKey identifies a contract on a chain.
type ContractKey struct {
	ChainID uint64 `json:"chainId"`
	Address string `json:"address"`
}

// ContractMetadata describes a token or collection contract. Decimals is only
// meaningful for fungible tokens and ContractType (721 or 1155) only for NFTs.
type ContractMetadata struct {
	ID           string `json:"id,omitempty"`
	ChainID      uint64 `json:"chainId"`
	Address      string `json:"address"`
	Symbol       string `json:"symbol"`
	Name         string `json:"name"`
	Image        string `json:"image,omitempty"`
	Decimals     int    `json:"decimals"`
	ContractType int    `json:"contractType,omitempty"`
}

// Standard maps an NFT contract type to its token standard.
func (m ContractMetadata) Standard() (TokenStandard, bool) {
	switch m.ContractType {
	case 721:
		return StandardERC721, true
	case 1155:
		return StandardERC1155, true
	default:
		return "", false
	}
}

// ContractBook holds the metadata resolved for one page, split into fungible
// and non-fungible contracts and keyed by lower-cased address.
type ContractBook struct {
	Fungible    map[string]ContractMetadata
	NonFungible map[string]ContractMetadata
}

func NewContractBook() ContractBook {
	return ContractBook{
		Fungible:    make(map[string]ContractMetadata),
		NonFungible: make(map[string]ContractMetadata),
	}
}

func (b ContractBook) Token(address string) (ContractMetadata, bool) {
	m, ok := b.Fungible[strings.ToLower(address)]
	return m, ok
}

func (b ContractBook) Collection(address string) (ContractMetadata, bool) {
	m, ok := b.NonFungible[strings.ToLower(address)]
	return m, ok
}

// Decimals returns the resolved decimals for a fungible token, DefaultDecimals
// when the contract is unknown.
func (b ContractBook) Decimals(address string) int {
	if m, ok := b.Token(address); ok {
		return m.Decimals
	}
	return DefaultDecimals
}
