package orders

import "github.com/shopspring/decimal"

// Decide maps a status transition to the signed balance delta it must
// apply to the owning user, in the same transaction that persists the new
// status.
//
// The mapping is pure and total: any status may follow any other (operators
// need to reverse mistakes in both directions), and calling it twice for
// the same (old, new) pair yields the same delta. Correctness therefore
// rests on the caller reading old under a row lock so that repeat or racing
// observations see the already-committed status and compute zero.
func Decide(kind Kind, old, new Status, amount decimal.Decimal) decimal.Decimal {
	switch kind {
	case KindCharging:
		// Money is credited exactly once on entry into completed and taken
		// back exactly once on exit from it.
		if old != StatusCompleted && new == StatusCompleted {
			return amount
		}
		if old == StatusCompleted && new != StatusCompleted {
			return amount.Neg()
		}

	case KindPurchase:
		// The hold placed at creation follows the active/refund boundary.
		if HoldsPayment(old) && RefundsPayment(new) {
			return amount
		}
		if RefundsPayment(old) && HoldsPayment(new) {
			return amount.Neg()
		}

	case KindAPI:
		// Refund-only, one shot. There is no reverse path for API orders,
		// so a non-terminal old status is the gate: once the order has been
		// observed terminal, later observations compute zero.
		if !IsTerminalAPI(old) && (new == StatusFailed || new == StatusCancelled) {
			return amount
		}
	}

	return decimal.Zero
}
