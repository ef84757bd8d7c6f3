package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	domain "github.com/virtualgoods/ordercore/internal/orders"
	ordersrepo "github.com/virtualgoods/ordercore/internal/repos/orders"
)

const chargingColumns = `
	id, user_id, amount, status,
	COALESCE(payment_proof, ''), COALESCE(admin_notes, ''),
	created_at, updated_at`

func scanCharging(row interface{ Scan(...any) error }) (domain.ChargingOrder, error) {
	var o domain.ChargingOrder

	err := row.Scan(
		&o.ID, &o.UserID, &o.Amount, &o.Status,
		&o.PaymentProof, &o.AdminNotes,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return domain.ChargingOrder{}, err
	}

	return o, nil
}

func (r *ordersRepo) CreateCharging(ctx context.Context, o domain.ChargingOrder) (int64, error) {
	var id int64

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO charging_balance_orders (user_id, amount, status, payment_proof)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING id
	`, o.UserID, o.Amount, o.Status, o.PaymentProof).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert charging order: %w", err)
	}

	return id, nil
}

func (r *ordersRepo) GetChargingForUpdate(tx *sql.Tx, id int64) (domain.ChargingOrder, error) {
	o, err := scanCharging(tx.QueryRow(`
		SELECT`+chargingColumns+`
		FROM charging_balance_orders
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ChargingOrder{}, ordersrepo.ErrOrderNotFound
		}

		return domain.ChargingOrder{}, fmt.Errorf("lock/get charging order: %w", err)
	}

	return o, nil
}

func (r *ordersRepo) UpdateChargingStatus(tx *sql.Tx, id int64, st domain.Status) error {
	return execOne(tx, `
		UPDATE charging_balance_orders
		SET status = $2, updated_at = now()
		WHERE id = $1
	`, "update charging status", id, st)
}

func (r *ordersRepo) SetChargingAmount(tx *sql.Tx, id int64, amount decimal.Decimal) error {
	return execOne(tx, `
		UPDATE charging_balance_orders
		SET amount = $2, updated_at = now()
		WHERE id = $1
	`, "set charging amount", id, amount)
}

func (r *ordersRepo) SetChargingNotes(ctx context.Context, id int64, notes string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE charging_balance_orders
		SET admin_notes = NULLIF($2, ''), updated_at = now()
		WHERE id = $1
	`, id, notes)
	if err != nil {
		return fmt.Errorf("set charging notes: %w", err)
	}

	return requireOneAffected(res)
}

func (r *ordersRepo) ListChargingByUser(ctx context.Context, userID int64) ([]domain.ChargingOrder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT`+chargingColumns+`
		FROM charging_balance_orders
		WHERE user_id = $1
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list charging orders: %w", err)
	}
	defer rows.Close()

	var out []domain.ChargingOrder

	for rows.Next() {
		o, err := scanCharging(rows)
		if err != nil {
			return nil, fmt.Errorf("scan charging order: %w", err)
		}

		out = append(out, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate charging orders: %w", err)
	}

	return out, nil
}

// execOne runs a single-row mutation and maps zero affected rows to
// ErrOrderNotFound.
func execOne(tx *sql.Tx, query, what string, args ...any) error {
	res, err := tx.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}

	return requireOneAffected(res)
}

func requireOneAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return ordersrepo.ErrOrderNotFound
	}

	return nil
}
