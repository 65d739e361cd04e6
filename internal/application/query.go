package application

import "txfeed/internal/domain"

// PageRequest selects one page of a wallet's classified history. An empty
// Cursor starts from the newest transaction.
type PageRequest struct {
	Chain   domain.Chain
	Address string
	Cursor  string
}

// TransactionCount is the wallet's total transaction count.
type TransactionCount struct {
	Count         uint64 `json:"count"`
	WalletAddress string `json:"walletAddress"`
}
