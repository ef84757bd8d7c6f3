// Package orders implements the operator-facing order operations: status
// transitions, amount corrections, notes, creation, and the read models.
// Every balance-affecting path runs as one transaction that locks the
// order row before reading its previous status.
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	domain "github.com/virtualgoods/ordercore/internal/orders"
	ordersrepo "github.com/virtualgoods/ordercore/internal/repos/orders"
	pgorders "github.com/virtualgoods/ordercore/internal/repos/orders/postgres"
	"github.com/virtualgoods/ordercore/internal/repos/users"
	pgusers "github.com/virtualgoods/ordercore/internal/repos/users/postgres"

	"github.com/virtualgoods/ordercore/internal/notify"
	"github.com/virtualgoods/ordercore/internal/provider"
)

var (
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrManualAPITransition rejects operator status changes on API
	// purchase orders; only the reconciliation poller moves those.
	ErrManualAPITransition = errors.New("api purchase orders have no manual transition path")

	// ErrConsistencyFault marks a locked order whose owning user is
	// missing. Unreachable under foreign-key integrity; never guessed at.
	ErrConsistencyFault = errors.New("consistency fault")
)

type Service struct {
	db       *sql.DB
	users    users.Users
	orders   ordersrepo.Orders
	remote   provider.Client
	notifier notify.Notifier
}

func New(db *sql.DB, remote provider.Client, notifier notify.Notifier) *Service {
	return &Service{
		db:       db,
		users:    pgusers.New(db),
		orders:   pgorders.New(db),
		remote:   remote,
		notifier: notifier,
	}
}

// requireUser maps a missing owner to ErrConsistencyFault so the caller's
// transaction aborts without a partial write.
func (s *Service) requireUser(tx *sql.Tx, kind domain.Kind, orderID, userID int64) error {
	err := s.users.Exists(tx, userID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return fmt.Errorf("%w: %s order %d references missing user %d",
				ErrConsistencyFault, kind, orderID, userID)
		}

		return err
	}

	return nil
}

// notifyBestEffort delivers a post-commit notification. A failure is
// logged and swallowed; the committed mutation stands.
func (s *Service) notifyBestEffort(ctx context.Context, userID int64, message string) {
	err := s.notifier.Notify(ctx, userID, message)
	if err != nil {
		slog.Error("user notification failed", "user_id", userID, "error", err)
	}
}
