package orders

import "fmt"

// Kind discriminates the three order types. Dispatch on it explicitly;
// the kinds share a status vocabulary but not a lifecycle.
type Kind string

const (
	KindCharging Kind = "charging"
	KindPurchase Kind = "purchase"
	KindAPI      Kind = "api_purchase"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindCharging, KindPurchase, KindAPI:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown order kind %q", s)
	}
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded" // purchase orders only
)

// statusSets lists the statuses each kind may hold. Only purchase orders
// have the explicit refunded state; the other kinds end in failed/cancelled.
var statusSets = map[Kind]map[Status]bool{
	KindCharging: {
		StatusPending: true, StatusProcessing: true, StatusCompleted: true,
		StatusFailed: true, StatusCancelled: true,
	},
	KindPurchase: {
		StatusPending: true, StatusProcessing: true, StatusCompleted: true,
		StatusFailed: true, StatusCancelled: true, StatusRefunded: true,
	},
	KindAPI: {
		StatusPending: true, StatusProcessing: true, StatusCompleted: true,
		StatusFailed: true, StatusCancelled: true,
	},
}

// ParseStatus validates a status token against the given kind's vocabulary.
func ParseStatus(kind Kind, s string) (Status, error) {
	set, ok := statusSets[kind]
	if !ok {
		return "", fmt.Errorf("unknown order kind %q", kind)
	}

	st := Status(s)
	if !set[st] {
		return "", fmt.Errorf("invalid status %q for %s order", s, kind)
	}

	return st, nil
}

// Payment-hold classification for purchase orders. While a purchase order
// sits in an active status the user's money is held; moving to a refund
// status returns it.
var (
	purchaseActive = map[Status]bool{
		StatusPending: true, StatusProcessing: true, StatusCompleted: true,
	}
	purchaseRefund = map[Status]bool{
		StatusFailed: true, StatusCancelled: true, StatusRefunded: true,
	}
)

// HoldsPayment reports whether a purchase order in st keeps the user's
// money held.
func HoldsPayment(st Status) bool { return purchaseActive[st] }

// RefundsPayment reports whether st is a purchase refund state.
func RefundsPayment(st Status) bool { return purchaseRefund[st] }

// IsTerminalAPI reports whether the reconciliation poller should stop
// polling an API order in st.
func IsTerminalAPI(st Status) bool {
	return st == StatusCompleted || st == StatusFailed || st == StatusCancelled
}
