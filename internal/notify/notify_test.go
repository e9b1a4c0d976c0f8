package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchaseMessage(t *testing.T) {
	msg := PurchaseMessage("ORD-1756710000000-AB3X9")
	assert.Contains(t, msg, "ORD-1756710000000-AB3X9")
	assert.Contains(t, msg, "placed")
}

func TestStatusMessage(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{"confirmed", "Your order ORD-1-AAAAA has been confirmed."},
		{"shipped", "Good news! Your order ORD-1-AAAAA has been shipped."},
		{"delivered", "Your order ORD-1-AAAAA has been delivered. Enjoy!"},
		{"cancelled", "Your order ORD-1-AAAAA has been cancelled."},
		{"pending", "Your order ORD-1-AAAAA is pending."},
		{"something-else", "Your order ORD-1-AAAAA has been updated."},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusMessage("ORD-1-AAAAA", tt.status))
		})
	}
}

func TestSend_NoContact(t *testing.T) {
	n := &Conf{}
	err := n.Send(context.Background(), "", "", "subject", "message")
	require.Error(t, err)
}

func TestSend_SMSWithoutGateway(t *testing.T) {
	n := &Conf{}
	err := n.Send(context.Background(), "5551234567", "user@example.com", "subject", "message")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sms gateway")
}

func TestSend_EmailWithoutSMTP(t *testing.T) {
	n := &Conf{}
	err := n.Send(context.Background(), "", "user@example.com", "subject", "message")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp")
}
