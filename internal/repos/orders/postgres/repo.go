package orders

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	ordersrepo "github.com/virtualgoods/ordercore/internal/repos/orders"
)

var _ ordersrepo.Orders = (*ordersRepo)(nil)

type ordersRepo struct{ db *sql.DB }

func New(db *sql.DB) *ordersRepo {
	return &ordersRepo{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
