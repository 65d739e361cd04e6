package domain

// FungibleTransfer is an ERC-20 style token movement belonging to a transaction.
type FungibleTransfer struct {
	TokenAddress  string
	TokenName     string
	TokenSymbol   string
	TokenDecimals string
	TxHash        string
	BlockNumber   uint64
	Value         string
	ValueDecimal  string
}

func (t FungibleTransfer) TransactionHash() string { return t.TxHash }
func (t FungibleTransfer) Block() uint64           { return t.BlockNumber }

// NonFungibleTransfer is an ERC-721 or ERC-1155 token movement.
type NonFungibleTransfer struct {
	TokenAddress string
	TxHash       string
	BlockNumber  uint64
	TokenID      string
	Amount       string
	ContractType TokenStandard
}

func (t NonFungibleTransfer) TransactionHash() string { return t.TxHash }
func (t NonFungibleTransfer) Block() uint64           { return t.BlockNumber }

// TransferPage is one page of a transfer stream plus the cursor for the next one.
type TransferPage[T any] struct {
	Records []T
	Cursor  string
}

// TransferQuery scopes a transfer stream fetch to the parent page's block range.
type TransferQuery struct {
	Chain     Chain
	Address   string
	FromBlock uint64
	ToBlock   uint64
	Limit     int
	Cursor    string
}

// TransactionQuery selects one page of wallet transactions.
type TransactionQuery struct {
	Chain   Chain
	Address string
	Cursor  string
	Limit   int
}
