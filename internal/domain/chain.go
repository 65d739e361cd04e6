package domain

import (
	"fmt"
	"strings"
)

// Chain is the upstream chain identifier used in query strings.
type Chain string

const (
	ChainEthereum Chain = "eth"
	ChainPolygon  Chain = "polygon"
)

var chainIDs = map[Chain]uint64{
	ChainEthereum: 1,
	ChainPolygon:  137,
}

// ParseChain validates a chain name. An empty name selects Ethereum.
func ParseChain(raw string) (Chain, error) {
	name := Chain(strings.ToLower(strings.TrimSpace(raw)))
	if name == "" {
		return ChainEthereum, nil
	}
	if _, ok := chainIDs[name]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedChain, raw)
	}
	return name, nil
}

// ID returns the numeric chain id.
func (c Chain) ID() uint64 {
	return chainIDs[c]
}
