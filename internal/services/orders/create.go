package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/virtualgoods/ordercore/internal/infra/pgutils"
	domain "github.com/virtualgoods/ordercore/internal/orders"
	"github.com/virtualgoods/ordercore/internal/provider"
	"github.com/virtualgoods/ordercore/internal/repos/users"
)

// RegisterUser creates the user row if it does not exist yet.
func (s *Service) RegisterUser(ctx context.Context, userID int64) error {
	return s.users.Create(ctx, userID)
}

// CreateChargingOrder records a pending top-up. Nothing is credited here;
// the money enters the balance only when the order reaches completed.
func (s *Service) CreateChargingOrder(ctx context.Context, userID int64, amount decimal.Decimal, paymentProof string) (int64, error) {
	if !amount.IsPositive() {
		return 0, ErrInvalidAmount
	}

	_, err := s.users.GetBalance(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("create charging order: %w", err)
	}

	id, err := s.orders.CreateCharging(ctx, domain.ChargingOrder{
		UserID:       userID,
		Amount:       amount,
		Status:       domain.StatusPending,
		PaymentProof: paymentProof,
	})
	if err != nil {
		return 0, fmt.Errorf("create charging order: %w", err)
	}

	return id, nil
}

// CreatePurchaseOrder snapshots the item's price onto the order and debits
// it immediately as an optimistic hold, atomically with the insert.
func (s *Service) CreatePurchaseOrder(ctx context.Context, userID, itemID int64, gameAccountID string) (int64, error) {
	var id int64

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.users.Exists(tx, userID)
		if err != nil {
			return err
		}

		price, err := s.orders.GetItemPrice(tx, itemID)
		if err != nil {
			return err
		}

		id, err = s.orders.CreatePurchase(tx, domain.PurchaseOrder{
			UserID:        userID,
			ItemID:        itemID,
			Price:         price,
			GameAccountID: gameAccountID,
			Status:        domain.StatusPending,
		})
		if err != nil {
			return err
		}

		return s.users.ApplyDelta(tx, userID, price.Neg())
	})
	if err != nil {
		return 0, fmt.Errorf("create purchase order: %w", err)
	}

	return id, nil
}

type CreateAPIOrderInput struct {
	UserID       int64
	GameCode     string
	Denomination string
	PlayerID     string
	ServerID     string
	Remark       string
	Price        decimal.Decimal // local settlement currency, resolved by the caller
}

// CreateAPIOrder places the order with the remote provider, then records
// it locally and debits its price in one transaction. The reconciliation
// poller takes over from there.
func (s *Service) CreateAPIOrder(ctx context.Context, in CreateAPIOrderInput) (int64, error) {
	if !in.Price.IsPositive() {
		return 0, ErrInvalidAmount
	}

	_, err := s.users.GetBalance(ctx, in.UserID)
	if err != nil {
		return 0, fmt.Errorf("create api order: %w", err)
	}

	created, err := s.remote.CreateOrder(ctx, provider.CreateOrderRequest{
		GameCode:      in.GameCode,
		CatalogueName: in.Denomination,
		PlayerID:      in.PlayerID,
		ServerID:      in.ServerID,
		Remark:        in.Remark,
	})
	if err != nil {
		return 0, fmt.Errorf("create api order: place remote order: %w", err)
	}

	var id int64

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.users.Exists(tx, in.UserID)
		if err != nil {
			if errors.Is(err, users.ErrUserNotFound) {
				return fmt.Errorf("%w: user %d vanished after remote order %d was placed",
					ErrConsistencyFault, in.UserID, created.ExternalOrderID)
			}

			return err
		}

		id, err = s.orders.CreateAPI(tx, domain.APIOrder{
			UserID:          in.UserID,
			ExternalOrderID: created.ExternalOrderID,
			GameCode:        in.GameCode,
			Denomination:    in.Denomination,
			PlayerID:        in.PlayerID,
			ServerID:        in.ServerID,
			Price:           in.Price,
			Status:          domain.StatusPending,
			Remark:          in.Remark,
		})
		if err != nil {
			return err
		}

		return s.users.ApplyDelta(tx, in.UserID, in.Price.Neg())
	})
	if err != nil {
		return 0, fmt.Errorf("create api order: %w", err)
	}

	return id, nil
}
