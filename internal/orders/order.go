package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChargingOrder tops up a user's balance. The amount lives outside the
// balance until the order reaches completed; operators may later correct
// the amount.
type ChargingOrder struct {
	ID           int64
	UserID       int64
	Amount       decimal.Decimal
	Status       Status
	PaymentProof string // file id or URL of the submitted proof, may be empty
	AdminNotes   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PurchaseOrder buys a catalog item. Price is snapshotted from the item at
// creation and debited immediately as an optimistic hold.
type PurchaseOrder struct {
	ID            int64
	UserID        int64
	ItemID        int64
	Price         decimal.Decimal
	GameAccountID string
	Status        Status
	AdminNotes    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// APIOrder is a purchase fulfilled by the remote top-up provider. Status
// only moves through the reconciliation poller; there is no manual path.
type APIOrder struct {
	ID              int64
	UserID          int64
	ExternalOrderID int64
	GameCode        string
	Denomination    string
	PlayerID        string
	PlayerName      string // resolved by the provider, may be empty
	ServerID        string
	Price           decimal.Decimal // local settlement currency
	Status          Status
	APIMessage      string
	Remark          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
