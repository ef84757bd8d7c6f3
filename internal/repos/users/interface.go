package users

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrUserNotFound = errors.New("user not found")

// Users is the balance ledger. ApplyDelta is the only balance mutation in
// the whole system; callers must run it inside the same transaction that
// persists the order status change that produced the delta.
type Users interface {
	Create(ctx context.Context, userID int64) error
	Exists(tx *sql.Tx, userID int64) error
	GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error)
	LockAndGetBalance(tx *sql.Tx, userID int64) (decimal.Decimal, error)
	ApplyDelta(tx *sql.Tx, userID int64, delta decimal.Decimal) error
}
