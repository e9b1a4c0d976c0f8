package orders

import "fmt"

// transitions is the explicit state machine: the happy path runs
// pending -> confirmed -> shipped -> delivered, and cancelled is reachable
// from any non-terminal state. delivered and cancelled are terminal.
var transitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered, StatusCancelled},
	StatusDelivered: {},
	StatusCancelled: {},
}

// ValidStatus reports whether s is a member of the status enumeration.
func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError rejects an illegal status change, naming both
// states.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// InsufficientStockError rejects a placement, naming the offending product
// and the quantity still available.
type InsufficientStockError struct {
	ProductName string
	Available   int
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for %s. Only %d available", e.ProductName, e.Available)
}
