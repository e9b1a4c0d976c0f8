// Package orders implements the order placement and fulfillment workflow:
// atomic placement (stock check, header + line items, conditional
// decrement, pickup scheduling, cart clear) and validated status
// transitions with an append-only history.
package orders

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrProductNotFound aborts a placement referencing an unknown product.
	ErrProductNotFound = errors.New("product not found")
	// ErrNotInvolved gates status updates to retailers whose products
	// appear in the order.
	ErrNotInvolved = errors.New("caller has no product in this order")
)

// Store is the persistence boundary for orders. PlaceOrder must be atomic:
// either the header, all line items, all decrements, any pickup rows and
// the cart clear land together, or none of them do.
type Store interface {
	PlaceOrder(ctx context.Context, no NewOrder) (Order, error)
	GetOrderByID(ctx context.Context, id string) (Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]Order, error)
	ListOrdersByRetailer(ctx context.Context, retailerID string) ([]Order, error)
	RetailerInOrder(ctx context.Context, orderID, retailerID string) (bool, error)
	UpdateStatus(ctx context.Context, orderID, status, changedBy, comment string) error
	History(ctx context.Context, orderID string) ([]StatusHistoryEntry, error)
}

// Conf wraps the Store interface so handlers depend on a struct rather than
// the connection type directly.
type Conf struct {
	Store
}

func NewConf(s Store) (Conf, error) {
	if s == nil {
		return Conf{}, fmt.Errorf("store is nil")
	}
	return Conf{Store: s}, nil
}

// Placement is the validated input to CreateOrder. Totals come from the
// client and are persisted as stated; line-item prices are stamped from the
// live product rows inside the transaction.
type Placement struct {
	UserID          string
	TotalAmount     float64
	GSTAmount       float64
	ShippingAmount  float64
	ShippingAddress json.RawMessage
	PaymentDetails  json.RawMessage
	DeliveryMethod  string
	PickupDatetime  *time.Time
	Items           []NewOrderItem
}

// CreateOrder runs the placement workflow. Deliberately not idempotent:
// submitting the same placement twice creates two orders and decrements
// stock twice.
func (c *Conf) CreateOrder(ctx context.Context, p Placement) (Order, error) {
	if len(p.Items) == 0 {
		return Order{}, fmt.Errorf("placement has no items")
	}

	subtotal := p.TotalAmount - p.GSTAmount - p.ShippingAmount
	if subtotal < 0 {
		subtotal = 0
	}

	no := NewOrder{
		ID:              uuid.NewString(),
		OrderNumber:     GenerateOrderNumber(),
		UserID:          p.UserID,
		Subtotal:        subtotal,
		GSTAmount:       p.GSTAmount,
		ShippingAmount:  p.ShippingAmount,
		TotalAmount:     p.TotalAmount,
		ShippingAddress: p.ShippingAddress,
		PaymentDetails:  p.PaymentDetails,
		DeliveryMethod:  p.DeliveryMethod,
		PickupDatetime:  p.PickupDatetime,
		Items:           p.Items,
	}
	if no.DeliveryMethod == "" {
		no.DeliveryMethod = DeliveryMethodDelivery
	}

	order, err := c.PlaceOrder(ctx, no)
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

// Transition moves an order to newStatus on behalf of changedBy, enforcing
// the transition table and the retailer-involvement gate, and appending a
// history row when a comment is supplied. It returns the updated order and
// the status it moved from.
func (c *Conf) Transition(ctx context.Context, orderID, newStatus, changedBy, comment string, requireInvolvement bool) (Order, string, error) {
	if !ValidStatus(newStatus) {
		return Order{}, "", fmt.Errorf("unknown status %q", newStatus)
	}

	order, err := c.GetOrderByID(ctx, orderID)
	if err != nil {
		return Order{}, "", err
	}

	if requireInvolvement {
		involved, err := c.RetailerInOrder(ctx, orderID, changedBy)
		if err != nil {
			return Order{}, "", err
		}
		if !involved {
			return Order{}, "", ErrNotInvolved
		}
	}

	if !CanTransition(order.Status, newStatus) {
		return Order{}, "", InvalidTransitionError{From: order.Status, To: newStatus}
	}

	if err := c.UpdateStatus(ctx, orderID, newStatus, changedBy, comment); err != nil {
		return Order{}, "", err
	}

	oldStatus := order.Status
	order.Status = newStatus
	return order, oldStatus, nil
}

const base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateOrderNumber builds the human-readable order number
// ORD-<millisecond timestamp>-<5 random base36 chars>. Uniqueness is
// probabilistic; the unique index on order_number is the backstop.
func GenerateOrderNumber() string {
	suffix := make([]byte, 5)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(base36Alphabet))))
		if err != nil {
			// crypto/rand failing is unrecoverable at this level;
			// fall back to a timestamp-derived digit.
			n = big.NewInt(time.Now().UnixNano() % int64(len(base36Alphabet)))
		}
		suffix[i] = base36Alphabet[n.Int64()]
	}
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), suffix)
}
