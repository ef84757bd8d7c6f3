package orders

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	ordersrepo "github.com/virtualgoods/ordercore/internal/repos/orders"
)

func (r *ordersRepo) GetItemPrice(tx *sql.Tx, itemID int64) (decimal.Decimal, error) {
	var price decimal.Decimal

	err := tx.QueryRow(`
		SELECT price
		FROM items
		WHERE id = $1
	`, itemID).Scan(&price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ordersrepo.ErrItemNotFound
		}

		return decimal.Zero, fmt.Errorf("get item price: %w", err)
	}

	return price, nil
}
