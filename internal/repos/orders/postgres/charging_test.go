package orders

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/virtualgoods/ordercore/internal/infra/pgtestutil"
	domain "github.com/virtualgoods/ordercore/internal/orders"
	ordersrepo "github.com/virtualgoods/ordercore/internal/repos/orders"
)

func seedOwner(t *testing.T, db *sql.DB, id int64) {
	t.Helper()

	_, err := db.Exec(`INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, id)
	if err != nil {
		t.Fatalf("seed user(%d): %v", id, err)
	}
}

func seedItem(t *testing.T, db *sql.DB, name, price string) int64 {
	t.Helper()

	var id int64

	err := db.QueryRow(`INSERT INTO items (name, price) VALUES ($1, $2) RETURNING id`, name, price).Scan(&id)
	if err != nil {
		t.Fatalf("seed item %q: %v", name, err)
	}

	return id
}

func inTx(t *testing.T, ctx context.Context, db *sql.DB, fn func(tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	fn(tx)

	err = tx.Commit()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestOrders_Charging_CreateAndGet(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	seedOwner(t, db, 10)

	repo := New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := repo.CreateCharging(ctx, domain.ChargingOrder{
		UserID:       10,
		Amount:       decimal.RequireFromString("15.00"),
		Status:       domain.StatusPending,
		PaymentProof: "receipt-abc123",
	})
	if err != nil {
		t.Fatalf("create charging: %v", err)
	}

	inTx(t, ctx, db, func(tx *sql.Tx) {
		got, err := repo.GetChargingForUpdate(tx, id)
		if err != nil {
			t.Fatalf("get for update: %v", err)
		}

		if got.UserID != 10 {
			t.Fatalf("user id mismatch: got %d", got.UserID)
		}
		if got.Status != domain.StatusPending {
			t.Fatalf("status mismatch: got %s", got.Status)
		}
		if !got.Amount.Equal(decimal.RequireFromString("15.00")) {
			t.Fatalf("amount mismatch: got %s", got.Amount)
		}
		if got.PaymentProof != "receipt-abc123" {
			t.Fatalf("payment proof mismatch: got %q", got.PaymentProof)
		}
		if got.AdminNotes != "" {
			t.Fatalf("expected empty notes, got %q", got.AdminNotes)
		}
	})
}

func TestOrders_Charging_UpdateStatusAndAmount(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	seedOwner(t, db, 11)

	repo := New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := repo.CreateCharging(ctx, domain.ChargingOrder{
		UserID: 11,
		Amount: decimal.RequireFromString("5.00"),
		Status: domain.StatusPending,
	})
	if err != nil {
		t.Fatalf("create charging: %v", err)
	}

	inTx(t, ctx, db, func(tx *sql.Tx) {
		err := repo.UpdateChargingStatus(tx, id, domain.StatusCompleted)
		if err != nil {
			t.Fatalf("update status: %v", err)
		}

		err = repo.SetChargingAmount(tx, id, decimal.RequireFromString("7.50"))
		if err != nil {
			t.Fatalf("set amount: %v", err)
		}
	})

	inTx(t, ctx, db, func(tx *sql.Tx) {
		got, err := repo.GetChargingForUpdate(tx, id)
		if err != nil {
			t.Fatalf("get for update: %v", err)
		}

		if got.Status != domain.StatusCompleted {
			t.Fatalf("status mismatch: got %s", got.Status)
		}
		if !got.Amount.Equal(decimal.RequireFromString("7.50")) {
			t.Fatalf("amount mismatch: got %s", got.Amount)
		}
	})
}

func TestOrders_Charging_NotFound(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = repo.GetChargingForUpdate(tx, 9999)
	if !errors.Is(err, ordersrepo.ErrOrderNotFound) {
		t.Fatalf("get: expected ErrOrderNotFound, got: %v", err)
	}

	err = repo.UpdateChargingStatus(tx, 9999, domain.StatusCompleted)
	if !errors.Is(err, ordersrepo.ErrOrderNotFound) {
		t.Fatalf("update: expected ErrOrderNotFound, got: %v", err)
	}
}

func TestOrders_Charging_NotesAndList(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	seedOwner(t, db, 12)
	seedOwner(t, db, 13)

	repo := New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, err := repo.CreateCharging(ctx, domain.ChargingOrder{
		UserID: 12, Amount: decimal.RequireFromString("1.00"), Status: domain.StatusPending,
	})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}

	_, err = repo.CreateCharging(ctx, domain.ChargingOrder{
		UserID: 12, Amount: decimal.RequireFromString("2.00"), Status: domain.StatusPending,
	})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	// Other user's order must not show up in the listing.
	_, err = repo.CreateCharging(ctx, domain.ChargingOrder{
		UserID: 13, Amount: decimal.RequireFromString("3.00"), Status: domain.StatusPending,
	})
	if err != nil {
		t.Fatalf("create other: %v", err)
	}

	err = repo.SetChargingNotes(ctx, first, "verified against bank statement")
	if err != nil {
		t.Fatalf("set notes: %v", err)
	}

	got, err := repo.ListChargingByUser(ctx, 12)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(got))
	}
	if got[0].ID != first {
		t.Fatalf("expected id order, got first=%d", got[0].ID)
	}
	if got[0].AdminNotes != "verified against bank statement" {
		t.Fatalf("notes mismatch: got %q", got[0].AdminNotes)
	}
}
