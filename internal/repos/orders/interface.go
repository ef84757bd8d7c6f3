package orders

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	domain "github.com/virtualgoods/ordercore/internal/orders"
)

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrItemNotFound        = errors.New("item not found")
	ErrDuplicateExternalID = errors.New("duplicate external order id")
)

// Orders persists the three order kinds. The ...ForUpdate getters take a
// FOR UPDATE row lock; every status or amount mutation must go through one
// of them first, inside the same transaction.
type Orders interface {
	CreateCharging(ctx context.Context, o domain.ChargingOrder) (int64, error)
	GetChargingForUpdate(tx *sql.Tx, id int64) (domain.ChargingOrder, error)
	UpdateChargingStatus(tx *sql.Tx, id int64, st domain.Status) error
	SetChargingAmount(tx *sql.Tx, id int64, amount decimal.Decimal) error
	SetChargingNotes(ctx context.Context, id int64, notes string) error
	ListChargingByUser(ctx context.Context, userID int64) ([]domain.ChargingOrder, error)

	CreatePurchase(tx *sql.Tx, o domain.PurchaseOrder) (int64, error)
	GetPurchaseForUpdate(tx *sql.Tx, id int64) (domain.PurchaseOrder, error)
	UpdatePurchaseStatus(tx *sql.Tx, id int64, st domain.Status) error
	SetPurchaseNotes(ctx context.Context, id int64, notes string) error
	ListPurchaseByUser(ctx context.Context, userID int64) ([]domain.PurchaseOrder, error)

	// GetItemPrice resolves a catalog item to its current price; purchase
	// creation snapshots it onto the order row.
	GetItemPrice(tx *sql.Tx, itemID int64) (decimal.Decimal, error)

	CreateAPI(tx *sql.Tx, o domain.APIOrder) (int64, error)
	GetAPIForUpdate(tx *sql.Tx, id int64) (domain.APIOrder, error)
	UpdateAPIResult(tx *sql.Tx, id int64, st domain.Status, message, playerName string) error
	ListOpenAPI(ctx context.Context) ([]domain.APIOrder, error)
	ListAPIByUser(ctx context.Context, userID int64) ([]domain.APIOrder, error)
}
