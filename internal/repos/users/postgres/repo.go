package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/virtualgoods/ordercore/internal/repos/users"
)

var _ users.Users = (*usersRepo)(nil)

type usersRepo struct{ db *sql.DB }

func New(db *sql.DB) *usersRepo {
	return &usersRepo{db: db}
}

func (r *usersRepo) Create(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, balance)
		VALUES ($1, 0)
		ON CONFLICT (id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *usersRepo) Exists(tx *sql.Tx, userID int64) error {
	var one int

	err := tx.QueryRow(`
		SELECT 1
		FROM users
		WHERE id = $1
	`, userID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return users.ErrUserNotFound
		}

		return fmt.Errorf("check user exists: %w", err)
	}

	return nil
}
