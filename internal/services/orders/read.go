package orders

import (
	"context"

	"github.com/shopspring/decimal"

	domain "github.com/virtualgoods/ordercore/internal/orders"
)

// Read-only projections. No locks; suitable for the GET endpoints.

func (s *Service) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	return s.users.GetBalance(ctx, userID)
}

func (s *Service) ListChargingOrders(ctx context.Context, userID int64) ([]domain.ChargingOrder, error) {
	return s.orders.ListChargingByUser(ctx, userID)
}

func (s *Service) ListPurchaseOrders(ctx context.Context, userID int64) ([]domain.PurchaseOrder, error) {
	return s.orders.ListPurchaseByUser(ctx, userID)
}

func (s *Service) ListAPIOrders(ctx context.Context, userID int64) ([]domain.APIOrder, error) {
	return s.orders.ListAPIByUser(ctx, userID)
}
