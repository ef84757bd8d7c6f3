package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/virtualgoods/ordercore/internal/orders"
	ordersrepo "github.com/virtualgoods/ordercore/internal/repos/orders"
)

const purchaseColumns = `
	id, user_id, item_id, price, game_account_id, status,
	COALESCE(admin_notes, ''),
	created_at, updated_at`

func scanPurchase(row interface{ Scan(...any) error }) (domain.PurchaseOrder, error) {
	var o domain.PurchaseOrder

	err := row.Scan(
		&o.ID, &o.UserID, &o.ItemID, &o.Price, &o.GameAccountID, &o.Status,
		&o.AdminNotes,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}

	return o, nil
}

// CreatePurchase inserts inside the caller's transaction so the optimistic
// hold on the user's balance commits atomically with the order row.
func (r *ordersRepo) CreatePurchase(tx *sql.Tx, o domain.PurchaseOrder) (int64, error) {
	var id int64

	err := tx.QueryRow(`
		INSERT INTO purchase_orders (user_id, item_id, price, game_account_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, o.UserID, o.ItemID, o.Price, o.GameAccountID, o.Status).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert purchase order: %w", err)
	}

	return id, nil
}

func (r *ordersRepo) GetPurchaseForUpdate(tx *sql.Tx, id int64) (domain.PurchaseOrder, error) {
	o, err := scanPurchase(tx.QueryRow(`
		SELECT`+purchaseColumns+`
		FROM purchase_orders
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PurchaseOrder{}, ordersrepo.ErrOrderNotFound
		}

		return domain.PurchaseOrder{}, fmt.Errorf("lock/get purchase order: %w", err)
	}

	return o, nil
}

func (r *ordersRepo) UpdatePurchaseStatus(tx *sql.Tx, id int64, st domain.Status) error {
	return execOne(tx, `
		UPDATE purchase_orders
		SET status = $2, updated_at = now()
		WHERE id = $1
	`, "update purchase status", id, st)
}

func (r *ordersRepo) SetPurchaseNotes(ctx context.Context, id int64, notes string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE purchase_orders
		SET admin_notes = NULLIF($2, ''), updated_at = now()
		WHERE id = $1
	`, id, notes)
	if err != nil {
		return fmt.Errorf("set purchase notes: %w", err)
	}

	return requireOneAffected(res)
}

func (r *ordersRepo) ListPurchaseByUser(ctx context.Context, userID int64) ([]domain.PurchaseOrder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT`+purchaseColumns+`
		FROM purchase_orders
		WHERE user_id = $1
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	defer rows.Close()

	var out []domain.PurchaseOrder

	for rows.Next() {
		o, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}

		out = append(out, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase orders: %w", err)
	}

	return out, nil
}
