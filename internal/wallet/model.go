package wallet

import "time"

// Wallet is a user's coin account. Coins live in the ledger under AccountCode.
type Wallet struct {
	OwnerID     string    `json:"owner_id"`
	AccountCode string    `json:"account_code"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Balance is the spendable coin balance of a wallet.
type Balance struct {
	OwnerID string    `json:"owner_id"`
	Amount  int64     `json:"balance"`
	AsOf    time.Time `json:"as_of"`
}
