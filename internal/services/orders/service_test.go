package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/virtualgoods/ordercore/internal/infra/pgtestutil"
	domain "github.com/virtualgoods/ordercore/internal/orders"
	"github.com/virtualgoods/ordercore/internal/provider"
	ordersrepo "github.com/virtualgoods/ordercore/internal/repos/orders"
)

type fakeProvider struct {
	mu       sync.Mutex
	nextID   int64
	createFn func(req provider.CreateOrderRequest) (provider.CreatedOrder, error)
	statusFn func(externalOrderID int64) (provider.OrderStatus, error)
}

func (f *fakeProvider) CreateOrder(_ context.Context, req provider.CreateOrderRequest) (provider.CreatedOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createFn != nil {
		return f.createFn(req)
	}

	f.nextID++

	return provider.CreatedOrder{ExternalOrderID: f.nextID, Status: "pending"}, nil
}

func (f *fakeProvider) GetOrderStatus(_ context.Context, externalOrderID int64, _ string) (provider.OrderStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.statusFn != nil {
		return f.statusFn(externalOrderID)
	}

	return provider.OrderStatus{Success: true, Status: "pending"}, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, _ int64, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.messages = append(n.messages, message)

	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.messages)
}

func newTestService(t *testing.T) (*Service, *fakeProvider, *recordingNotifier, func()) {
	t.Helper()

	db, cleanup := pgtestutil.NewTestDB(t)

	remote := &fakeProvider{}
	notifier := &recordingNotifier{}

	return New(db, remote, notifier), remote, notifier, cleanup
}

func mustBalance(t *testing.T, ctx context.Context, svc *Service, userID int64, want string) {
	t.Helper()

	got, err := svc.GetBalance(ctx, userID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}

	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("balance mismatch: want %s, got %s", want, got)
	}
}

func TestService_ChargingLifecycle(t *testing.T) {
	t.Parallel()

	svc, _, notifier, cleanup := newTestService(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := svc.RegisterUser(ctx, 100)
	if err != nil {
		t.Fatalf("register user: %v", err)
	}

	id, err := svc.CreateChargingOrder(ctx, 100, decimal.RequireFromString("15.00"), "receipt-1")
	if err != nil {
		t.Fatalf("create charging order: %v", err)
	}

	// Creation credits nothing.
	mustBalance(t, ctx, svc, 100, "0.00")

	// pending -> completed credits the amount.
	err = svc.SetStatus(ctx, domain.KindCharging, id, "completed")
	if err != nil {
		t.Fatalf("set completed: %v", err)
	}
	mustBalance(t, ctx, svc, 100, "15.00")

	// completed -> completed is a no-op for the balance.
	err = svc.SetStatus(ctx, domain.KindCharging, id, "completed")
	if err != nil {
		t.Fatalf("set completed again: %v", err)
	}
	mustBalance(t, ctx, svc, 100, "15.00")

	// completed -> failed withdraws it again.
	err = svc.SetStatus(ctx, domain.KindCharging, id, "failed")
	if err != nil {
		t.Fatalf("set failed: %v", err)
	}
	mustBalance(t, ctx, svc, 100, "0.00")

	if notifier.count() != 3 {
		t.Fatalf("expected 3 notifications, got %d", notifier.count())
	}
}

func TestService_ChargingCreate_Validation(t *testing.T) {
	t.Parallel()

	svc, _, _, cleanup := newTestService(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := svc.CreateChargingOrder(ctx, 100, decimal.Zero, "")
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: expected ErrInvalidAmount, got: %v", err)
	}

	_, err = svc.CreateChargingOrder(ctx, 100, decimal.RequireFromString("-3.00"), "")
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative amount: expected ErrInvalidAmount, got: %v", err)
	}

	// Unregistered user cannot open a top-up order.
	_, err = svc.CreateChargingOrder(ctx, 404, decimal.RequireFromString("1.00"), "")
	if err == nil {
		t.Fatal("expected error for unknown user, got nil")
	}
}

func TestService_PurchaseLifecycle(t *testing.T) {
	t.Parallel()

	svc, _, _, cleanup := newTestService(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := svc.RegisterUser(ctx, 200)
	if err != nil {
		t.Fatalf("register user: %v", err)
	}

	var itemID int64

	err = svc.db.QueryRowContext(ctx,
		`INSERT INTO items (name, price) VALUES ('86 Diamonds', '1.49') RETURNING id`).Scan(&itemID)
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}

	id, err := svc.CreatePurchaseOrder(ctx, 200, itemID, "uid-1")
	if err != nil {
		t.Fatalf("create purchase order: %v", err)
	}

	// The hold is debited immediately; a zero balance goes negative.
	mustBalance(t, ctx, svc, 200, "-1.49")

	// pending -> processing stays inside the holding group.
	err = svc.SetStatus(ctx, domain.KindPurchase, id, "processing")
	if err != nil {
		t.Fatalf("set processing: %v", err)
	}
	mustBalance(t, ctx, svc, 200, "-1.49")

	// processing -> cancelled refunds the hold.
	err = svc.SetStatus(ctx, domain.KindPurchase, id, "cancelled")
	if err != nil {
		t.Fatalf("set cancelled: %v", err)
	}
	mustBalance(t, ctx, svc, 200, "0.00")

	// cancelled -> refunded stays inside the refunded group.
	err = svc.SetStatus(ctx, domain.KindPurchase, id, "refunded")
	if err != nil {
		t.Fatalf("set refunded: %v", err)
	}
	mustBalance(t, ctx, svc, 200, "0.00")

	// refunded -> completed re-debits.
	err = svc.SetStatus(ctx, domain.KindPurchase, id, "completed")
	if err != nil {
		t.Fatalf("set completed: %v", err)
	}
	mustBalance(t, ctx, svc, 200, "-1.49")
}

func TestService_SetStatus_Rejections(t *testing.T) {
	t.Parallel()

	svc, _, _, cleanup := newTestService(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := svc.SetStatus(ctx, domain.KindAPI, 1, "failed")
	if !errors.Is(err, ErrManualAPITransition) {
		t.Fatalf("api kind: expected ErrManualAPITransition, got: %v", err)
	}

	err = svc.SetStatus(ctx, domain.KindCharging, 1, "refunded")
	if err == nil {
		t.Fatal("charging order accepted a refunded status")
	}

	err = svc.SetStatus(ctx, domain.KindCharging, 1, "bogus")
	if err == nil {
		t.Fatal("accepted unknown status token")
	}

	err = svc.SetStatus(ctx, domain.KindCharging, 9999, "completed")
	if !errors.Is(err, ordersrepo.ErrOrderNotFound) {
		t.Fatalf("missing order: expected ErrOrderNotFound, got: %v", err)
	}
}

func TestService_CorrectAmount(t *testing.T) {
	t.Parallel()

	svc, _, _, cleanup := newTestService(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := svc.RegisterUser(ctx, 300)
	if err != nil {
		t.Fatalf("register user: %v", err)
	}

	id, err := svc.CreateChargingOrder(ctx, 300, decimal.RequireFromString("10.00"), "")
	if err != nil {
		t.Fatalf("create charging order: %v", err)
	}

	// Correcting a pending order touches only the stored amount.
	err = svc.CorrectAmount(ctx, id, decimal.RequireFromString("12.00"))
	if err != nil {
		t.Fatalf("correct pending: %v", err)
	}
	mustBalance(t, ctx, svc, 300, "0.00")

	err = svc.SetStatus(ctx, domain.KindCharging, id, "completed")
	if err != nil {
		t.Fatalf("set completed: %v", err)
	}
	mustBalance(t, ctx, svc, 300, "12.00")

	// Correcting a completed order applies the difference.
	err = svc.CorrectAmount(ctx, id, decimal.RequireFromString("8.50"))
	if err != nil {
		t.Fatalf("correct completed: %v", err)
	}
	mustBalance(t, ctx, svc, 300, "8.50")

	// A later reversal withdraws the corrected amount, not the original.
	err = svc.SetStatus(ctx, domain.KindCharging, id, "cancelled")
	if err != nil {
		t.Fatalf("set cancelled: %v", err)
	}
	mustBalance(t, ctx, svc, 300, "0.00")

	err = svc.CorrectAmount(ctx, id, decimal.Zero)
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero correction: expected ErrInvalidAmount, got: %v", err)
	}
}

func TestService_CreateAPIOrder(t *testing.T) {
	t.Parallel()

	svc, remote, _, cleanup := newTestService(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := svc.RegisterUser(ctx, 400)
	if err != nil {
		t.Fatalf("register user: %v", err)
	}

	in := CreateAPIOrderInput{
		UserID:       400,
		GameCode:     "genshin",
		Denomination: "60 Crystals",
		PlayerID:     "800123",
		ServerID:     "asia",
		Price:        decimal.RequireFromString("0.99"),
	}

	id, err := svc.CreateAPIOrder(ctx, in)
	if err != nil {
		t.Fatalf("create api order: %v", err)
	}

	mustBalance(t, ctx, svc, 400, "-0.99")

	got, err := svc.ListAPIOrders(ctx, 400)
	if err != nil {
		t.Fatalf("list api orders: %v", err)
	}

	if len(got) != 1 || got[0].ID != id {
		t.Fatalf("unexpected listing: %+v", got)
	}
	if got[0].Status != domain.StatusPending {
		t.Fatalf("status mismatch: got %s", got[0].Status)
	}
	if got[0].ExternalOrderID == 0 {
		t.Fatal("external order id not recorded")
	}

	// A provider failure must leave no local trace and no debit.
	remote.createFn = func(provider.CreateOrderRequest) (provider.CreatedOrder, error) {
		return provider.CreatedOrder{}, provider.ErrRemoteFailure
	}

	_, err = svc.CreateAPIOrder(ctx, in)
	if !errors.Is(err, provider.ErrRemoteFailure) {
		t.Fatalf("expected ErrRemoteFailure, got: %v", err)
	}

	mustBalance(t, ctx, svc, 400, "-0.99")

	got, err = svc.ListAPIOrders(ctx, 400)
	if err != nil {
		t.Fatalf("list api orders: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("failed remote order left a local row: %d orders", len(got))
	}
}

// Two racing transitions on the same order must serialize on the row lock:
// the net effect equals applying them one after another.
func TestService_SetStatus_ConcurrentSerializes(t *testing.T) {
	t.Parallel()

	svc, _, _, cleanup := newTestService(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	err := svc.RegisterUser(ctx, 500)
	if err != nil {
		t.Fatalf("register user: %v", err)
	}

	id, err := svc.CreateChargingOrder(ctx, 500, decimal.RequireFromString("5.00"), "")
	if err != nil {
		t.Fatalf("create charging order: %v", err)
	}

	var wg sync.WaitGroup

	errCh := make(chan error, 4)

	for i := 0; i < 2; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			errCh <- svc.SetStatus(ctx, domain.KindCharging, id, "completed")
		}()
		go func() {
			defer wg.Done()
			errCh <- svc.SetStatus(ctx, domain.KindCharging, id, "completed")
		}()
	}

	wg.Wait()
	close(errCh)

	for e := range errCh {
		if e != nil {
			t.Fatalf("concurrent set status: %v", e)
		}
	}

	// Only the first transition into completed credits; the rest observe
	// completed under the lock and decide a zero delta.
	mustBalance(t, ctx, svc, 500, "5.00")
}
