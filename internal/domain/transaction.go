package domain

import (
	"encoding/json"
	"strings"
)

// RawTransaction is a wallet transaction as returned by the upstream indexer,
// optionally carrying the decoded method call and decoded event logs.
type RawTransaction struct {
	Hash           string
	From           string
	To             string
	ToLabel        string
	Value          string
	Input          string
	BlockNumber    uint64
	BlockTimestamp string
	DecodedCall    *DecodedCall
	Logs           []DecodedLog
}

// DecodedCall is a method invocation recovered from the transaction input.
type DecodedCall struct {
	Signature string  `json:"signature"`
	Label     string  `json:"label,omitempty"`
	Type      string  `json:"type,omitempty"`
	Params    []Param `json:"params"`
}

// DecodedLog is an event log; Signature is empty when the event was not decoded.
type DecodedLog struct {
	Address   string
	Signature string
	Params    []Param
}

// Param is a named decoded argument. Value keeps the upstream JSON as-is so
// tuple and array arguments survive untouched.
type Param struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
	Type  string          `json:"type,omitempty"`
}

// String renders the parameter value, unquoting JSON strings.
func (p Param) String() string {
	if len(p.Value) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(p.Value, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(p.Value))
}

// StringParam builds a Param holding a JSON string value.
func StringParam(name, value string) Param {
	raw, _ := json.Marshal(value)
	return Param{Name: name, Value: raw}
}

// LookupParam returns the first parameter with the given name.
func LookupParam(params []Param, name string) (Param, bool) {
	for _, p := range params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// RawPage is one newest-first page of wallet transactions.
type RawPage struct {
	Transactions []RawTransaction
	Cursor       string
}

// BlockRange returns the [start, end] block range covered by the page.
// ok is false for an empty page.
func (p RawPage) BlockRange() (start, end uint64, ok bool) {
	if len(p.Transactions) == 0 {
		return 0, 0, false
	}
	return p.Transactions[len(p.Transactions)-1].BlockNumber, p.Transactions[0].BlockNumber, true
}

// DestinationAddresses returns the distinct non-empty destination addresses
// of the page, in first-seen order.
func (p RawPage) DestinationAddresses() []string {
	seen := make(map[string]struct{}, len(p.Transactions))
	out := make([]string, 0, len(p.Transactions))
	for _, txn := range p.Transactions {
		addr := strings.ToLower(strings.TrimSpace(txn.To))
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}
