package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/virtualgoods/ordercore/internal/orders"
	ordersrepo "github.com/virtualgoods/ordercore/internal/repos/orders"
)

const apiColumns = `
	id, user_id, external_order_id, game_code, denomination, player_id,
	COALESCE(player_name, ''), COALESCE(server_id, ''),
	price, status,
	COALESCE(api_message, ''), COALESCE(remark, ''),
	created_at, updated_at`

func scanAPI(row interface{ Scan(...any) error }) (domain.APIOrder, error) {
	var o domain.APIOrder

	err := row.Scan(
		&o.ID, &o.UserID, &o.ExternalOrderID, &o.GameCode, &o.Denomination, &o.PlayerID,
		&o.PlayerName, &o.ServerID,
		&o.Price, &o.Status,
		&o.APIMessage, &o.Remark,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return domain.APIOrder{}, err
	}

	return o, nil
}

func (r *ordersRepo) CreateAPI(tx *sql.Tx, o domain.APIOrder) (int64, error) {
	var id int64

	err := tx.QueryRow(`
		INSERT INTO api_purchase_orders (
			user_id, external_order_id, game_code, denomination, player_id,
			server_id, price, status, remark
		)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, NULLIF($9, ''))
		RETURNING id
	`, o.UserID, o.ExternalOrderID, o.GameCode, o.Denomination, o.PlayerID,
		o.ServerID, o.Price, o.Status, o.Remark).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ordersrepo.ErrDuplicateExternalID
		}

		return 0, fmt.Errorf("insert api order: %w", err)
	}

	return id, nil
}

func (r *ordersRepo) GetAPIForUpdate(tx *sql.Tx, id int64) (domain.APIOrder, error) {
	o, err := scanAPI(tx.QueryRow(`
		SELECT`+apiColumns+`
		FROM api_purchase_orders
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.APIOrder{}, ordersrepo.ErrOrderNotFound
		}

		return domain.APIOrder{}, fmt.Errorf("lock/get api order: %w", err)
	}

	return o, nil
}

// UpdateAPIResult persists the poller's observation: new status plus any
// metadata the provider returned. Empty message/player name leave the
// stored values untouched.
func (r *ordersRepo) UpdateAPIResult(tx *sql.Tx, id int64, st domain.Status, message, playerName string) error {
	return execOne(tx, `
		UPDATE api_purchase_orders
		SET status = $2,
		    api_message = COALESCE(NULLIF($3, ''), api_message),
		    player_name = COALESCE(NULLIF($4, ''), player_name),
		    updated_at = now()
		WHERE id = $1
	`, "update api order result", id, st, message, playerName)
}

// ListOpenAPI returns every API order the poller still has to reconcile.
func (r *ordersRepo) ListOpenAPI(ctx context.Context) ([]domain.APIOrder, error) {
	return r.listAPI(ctx, `
		SELECT`+apiColumns+`
		FROM api_purchase_orders
		WHERE status IN ($1, $2)
		ORDER BY id
	`, domain.StatusPending, domain.StatusProcessing)
}

func (r *ordersRepo) ListAPIByUser(ctx context.Context, userID int64) ([]domain.APIOrder, error) {
	return r.listAPI(ctx, `
		SELECT`+apiColumns+`
		FROM api_purchase_orders
		WHERE user_id = $1
		ORDER BY id
	`, userID)
}

func (r *ordersRepo) listAPI(ctx context.Context, query string, args ...any) ([]domain.APIOrder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list api orders: %w", err)
	}
	defer rows.Close()

	var out []domain.APIOrder

	for rows.Next() {
		o, err := scanAPI(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api order: %w", err)
		}

		out = append(out, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate api orders: %w", err)
	}

	return out, nil
}
