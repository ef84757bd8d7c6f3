// Package reconciler runs the background job that reconciles API purchase
// orders against the remote provider: it polls every open order, maps the
// provider's status vocabulary onto the local one, and applies the
// one-shot terminal refund inside a row-locked transaction.
package reconciler

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/virtualgoods/ordercore/internal/infra/pgutils"
	"github.com/virtualgoods/ordercore/internal/notify"
	domain "github.com/virtualgoods/ordercore/internal/orders"
	"github.com/virtualgoods/ordercore/internal/provider"
	ordersrepo "github.com/virtualgoods/ordercore/internal/repos/orders"
	pgorders "github.com/virtualgoods/ordercore/internal/repos/orders/postgres"
	"github.com/virtualgoods/ordercore/internal/repos/users"
	pgusers "github.com/virtualgoods/ordercore/internal/repos/users/postgres"
)

type Config struct {
	Interval    time.Duration
	CallTimeout time.Duration
}

type Reconciler struct {
	db       *sql.DB
	users    users.Users
	orders   ordersrepo.Orders
	remote   provider.Client
	notifier notify.Notifier
	cfg      Config

	// cycleMu serializes cycles: a tick that fires while the previous
	// cycle is still draining is skipped, never stacked.
	cycleMu sync.Mutex
}

func New(db *sql.DB, remote provider.Client, notifier notify.Notifier, cfg Config) *Reconciler {
	return &Reconciler{
		db:       db,
		users:    pgusers.New(db),
		orders:   pgorders.New(db),
		remote:   remote,
		notifier: notifier,
		cfg:      cfg,
	}
}

// Run polls on a fixed interval until ctx is canceled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := r.RunOnce(ctx)
			if err != nil {
				slog.Error("reconciliation cycle failed", "error", err)
			}
		}
	}
}

// RunOnce processes every open API order. One order's failure is logged
// and never aborts the rest of the batch. Returns immediately if another
// cycle is still running.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	if !r.cycleMu.TryLock() {
		slog.Warn("previous reconciliation cycle still running, skipping")

		return nil
	}
	defer r.cycleMu.Unlock()

	open, err := r.orders.ListOpenAPI(ctx)
	if err != nil {
		return fmt.Errorf("list open api orders: %w", err)
	}

	if len(open) == 0 {
		return nil
	}

	slog.Info("reconciling api orders", "count", len(open))

	for _, o := range open {
		err := r.reconcileOrder(ctx, o)
		if err != nil {
			slog.Error("reconcile api order failed",
				"order_id", o.ID, "external_order_id", o.ExternalOrderID, "error", err)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return nil
}

func (r *Reconciler) reconcileOrder(ctx context.Context, o domain.APIOrder) error {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()

	remote, err := r.remote.GetOrderStatus(callCtx, o.ExternalOrderID, o.GameCode)
	if err != nil {
		// Transient: the order keeps its last known state and is retried
		// next cycle.
		return fmt.Errorf("query provider: %w", err)
	}

	if !remote.Success {
		return nil
	}

	mapped, ok := MapProviderStatus(remote.Status)
	if !ok {
		slog.Debug("unrecognized provider status, skipping",
			"order_id", o.ID, "status", remote.Status)

		return nil
	}

	if mapped == o.Status {
		return nil
	}

	var (
		userID   int64
		refunded bool
		applied  domain.Status
	)

	err = pgutils.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		// Re-read under lock: an admin or a previous cycle may have moved
		// the order since the unlocked list read.
		cur, err := r.orders.GetAPIForUpdate(tx, o.ID)
		if err != nil {
			return err
		}

		userID = cur.UserID

		if cur.Status == mapped {
			applied = cur.Status

			return nil
		}

		err = r.users.Exists(tx, cur.UserID)
		if err != nil {
			return fmt.Errorf("api order %d owner %d: %w", cur.ID, cur.UserID, err)
		}

		delta := domain.Decide(domain.KindAPI, cur.Status, mapped, cur.Price)

		err = r.orders.UpdateAPIResult(tx, cur.ID, mapped, remote.Message, remote.PlayerName)
		if err != nil {
			return err
		}

		if !delta.IsZero() {
			err = r.users.ApplyDelta(tx, cur.UserID, delta)
			if err != nil {
				return err
			}

			refunded = true
		}

		applied = mapped

		return nil
	})
	if err != nil {
		return err
	}

	if applied == mapped && domain.IsTerminalAPI(mapped) {
		r.notifyTerminal(ctx, userID, o, mapped, refunded)
	}

	return nil
}

func (r *Reconciler) notifyTerminal(ctx context.Context, userID int64, o domain.APIOrder, st domain.Status, refunded bool) {
	var msg string

	switch st {
	case domain.StatusCompleted:
		msg = fmt.Sprintf("Your order #%d (%s, %s) has been completed", o.ID, o.GameCode, o.Denomination)
	case domain.StatusFailed:
		msg = fmt.Sprintf("Your order #%d (%s, %s) has failed", o.ID, o.GameCode, o.Denomination)
	default:
		msg = fmt.Sprintf("Your order #%d (%s, %s) has been cancelled", o.ID, o.GameCode, o.Denomination)
	}

	if refunded {
		msg += fmt.Sprintf("; %s has been refunded to your balance", o.Price.StringFixed(2))
	}

	err := r.notifier.Notify(ctx, userID, msg)
	if err != nil {
		slog.Error("terminal notification failed", "user_id", userID, "order_id", o.ID, "error", err)
	}
}
