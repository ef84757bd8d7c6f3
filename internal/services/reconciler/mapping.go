package reconciler

import (
	"strings"

	domain "github.com/virtualgoods/ordercore/internal/orders"
)

// providerStatuses translates the provider's vocabulary onto local API
// order statuses. Matching is case-insensitive and "canceled" is an
// accepted alias of "cancelled".
var providerStatuses = map[string]domain.Status{
	"pending":    domain.StatusPending,
	"processing": domain.StatusProcessing,
	"completed":  domain.StatusCompleted,
	"failed":     domain.StatusFailed,
	"cancelled":  domain.StatusCancelled,
	"canceled":   domain.StatusCancelled,
}

// MapProviderStatus returns the local status for a provider token, or
// false for unrecognized tokens. An unrecognized token is a safe no-op for
// the poller, not an error: the order is retried next cycle.
func MapProviderStatus(token string) (domain.Status, bool) {
	st, ok := providerStatuses[strings.ToLower(strings.TrimSpace(token))]

	return st, ok
}
