package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/virtualgoods/ordercore/internal/api"
	"github.com/virtualgoods/ordercore/internal/infra/logging"
	"github.com/virtualgoods/ordercore/internal/infra/pgutils"
	"github.com/virtualgoods/ordercore/internal/notify"
	"github.com/virtualgoods/ordercore/internal/provider"
	"github.com/virtualgoods/ordercore/internal/services/orders"
	"github.com/virtualgoods/ordercore/internal/services/reconciler"
	"github.com/virtualgoods/ordercore/pkg/envconf"
	"github.com/virtualgoods/ordercore/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	db, err := pgutils.OpenDB(ctx, cfg.Postgres.DSN, cfg.Postgres.pool())
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	shutdownqueue.Add(func(context.Context) error {
		slog.Info("Close database pool")

		return db.Close()
	})

	remote := provider.NewClient(cfg.Provider.clientConfig())
	notifier := notify.LogNotifier{}

	orderSrv := orders.New(db, remote, notifier)

	// --- Reconciliation poller ---
	rec := reconciler.New(db, remote, notifier, cfg.Reconciler.config())

	recCtx, recStop := context.WithCancel(ctx)
	recDone := make(chan struct{})

	go func() {
		defer close(recDone)
		rec.Run(recCtx)
	}()

	shutdownqueue.Add(func(c context.Context) error {
		slog.Info("Stop reconciliation poller")
		recStop()

		select {
		case <-recDone:
			return nil
		case <-c.Done():
			return fmt.Errorf("stop reconciler: %w", c.Err())
		}
	})

	// --- HTTP server ---
	srv := api.NewServer(cfg.Port, orderSrv)

	// Register HTTP server graceful shutdown
	shutdownqueue.Add(func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	// Run server
	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started", "port", cfg.Port)

	// --- Wait until either context cancels or server errors out ---
	select {
	case <-ctx.Done():
		// graceful path; deferred shutdownqueue.Shutdown will run
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
