package orders

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/virtualgoods/ordercore/internal/infra/pgutils"
	domain "github.com/virtualgoods/ordercore/internal/orders"
)

// SetStatus applies an operator-requested status change in one
// transaction:
//
//  1. Lock the order row and read its previous status.
//  2. Check the owning user exists (missing user aborts everything).
//  3. Compute the balance delta for (old, new).
//  4. Persist the new status, then the delta, together.
//
// After commit the user is notified best-effort.
func (s *Service) SetStatus(ctx context.Context, kind domain.Kind, orderID int64, newStatus string) error {
	if kind == domain.KindAPI {
		return ErrManualAPITransition
	}

	st, err := domain.ParseStatus(kind, newStatus)
	if err != nil {
		return err
	}

	var (
		userID int64
		amount decimal.Decimal
	)

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		switch kind {
		case domain.KindCharging:
			o, err := s.orders.GetChargingForUpdate(tx, orderID)
			if err != nil {
				return err
			}

			userID, amount = o.UserID, o.Amount

			err = s.requireUser(tx, kind, orderID, o.UserID)
			if err != nil {
				return err
			}

			return s.transition(tx, kind, orderID, o.UserID, o.Status, st, o.Amount)

		default: // domain.KindPurchase
			o, err := s.orders.GetPurchaseForUpdate(tx, orderID)
			if err != nil {
				return err
			}

			userID, amount = o.UserID, o.Price

			err = s.requireUser(tx, kind, orderID, o.UserID)
			if err != nil {
				return err
			}

			return s.transition(tx, kind, orderID, o.UserID, o.Status, st, o.Price)
		}
	})
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}

	s.notifyBestEffort(ctx, userID, statusMessage(kind, orderID, st, amount))

	return nil
}

// transition writes the new status and applies the decided delta inside
// the caller's transaction.
func (s *Service) transition(tx *sql.Tx, kind domain.Kind, orderID, userID int64, old, new domain.Status, amount decimal.Decimal) error {
	delta := domain.Decide(kind, old, new, amount)

	var err error

	switch kind {
	case domain.KindCharging:
		err = s.orders.UpdateChargingStatus(tx, orderID, new)
	default:
		err = s.orders.UpdatePurchaseStatus(tx, orderID, new)
	}
	if err != nil {
		return err
	}

	if !delta.IsZero() {
		err = s.users.ApplyDelta(tx, userID, delta)
		if err != nil {
			return err
		}
	}

	return nil
}

// CorrectAmount retroactively changes a charging order's amount. If the
// order is already completed the balance was credited with the old amount,
// so the difference is applied under the same row lock a racing status
// change would take.
func (s *Service) CorrectAmount(ctx context.Context, orderID int64, newAmount decimal.Decimal) error {
	if !newAmount.IsPositive() {
		return ErrInvalidAmount
	}

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		o, err := s.orders.GetChargingForUpdate(tx, orderID)
		if err != nil {
			return err
		}

		if o.Status == domain.StatusCompleted {
			err = s.requireUser(tx, domain.KindCharging, orderID, o.UserID)
			if err != nil {
				return err
			}

			delta := newAmount.Sub(o.Amount)
			if !delta.IsZero() {
				err = s.users.ApplyDelta(tx, o.UserID, delta)
				if err != nil {
					return err
				}
			}
		}

		return s.orders.SetChargingAmount(tx, orderID, newAmount)
	})
	if err != nil {
		return fmt.Errorf("correct amount: %w", err)
	}

	return nil
}

// SetNotes attaches operator notes to a charging or purchase order.
func (s *Service) SetNotes(ctx context.Context, kind domain.Kind, orderID int64, notes string) error {
	switch kind {
	case domain.KindCharging:
		return s.orders.SetChargingNotes(ctx, orderID, notes)
	case domain.KindPurchase:
		return s.orders.SetPurchaseNotes(ctx, orderID, notes)
	default:
		return fmt.Errorf("notes not supported for %s orders", kind)
	}
}

func statusMessage(kind domain.Kind, orderID int64, st domain.Status, amount decimal.Decimal) string {
	switch kind {
	case domain.KindCharging:
		return fmt.Sprintf("Your top-up order #%d is now %s (amount %s)", orderID, st, amount.StringFixed(2))
	default:
		return fmt.Sprintf("Your purchase order #%d is now %s", orderID, st)
	}
}
