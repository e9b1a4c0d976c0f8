package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"

	"github.com/AviralYO/oops-ecommerce-sub000/internal/orders"
	"github.com/AviralYO/oops-ecommerce-sub000/pkg/logkey"
)

// paymentActor is recorded as the changer on webhook-driven transitions.
const paymentActor = "payment-gateway"

// Webhook consumes payment gateway events. A succeeded payment intent
// carrying an order_id in its metadata confirms the order through the same
// transition machinery as the retailer endpoints.
func (h *Handler) Webhook(c *gin.Context) {
	traceId := uuid.NewString()
	const MaxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	var event stripe.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		slog.Error("failed to bind webhook event", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var paymentIntent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
			slog.Error("failed to unmarshal payment intent", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		orderId := paymentIntent.Metadata["order_id"]
		if orderId == "" {
			slog.Error("payment intent without order_id", slog.String(logkey.TraceID, traceId),
				slog.String("PaymentIntentID", paymentIntent.ID))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "order_id metadata missing"})
			return
		}
		slog.Info("payment intent succeeded", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, orderId), slog.String("PaymentIntentID", paymentIntent.ID))

		order, oldStatus, err := h.o.Transition(c.Request.Context(), orderId, orders.StatusConfirmed,
			paymentActor, "Payment received", false)
		if err != nil {
			var transitionErr orders.InvalidTransitionError
			switch {
			case errors.Is(err, orders.ErrNotFound):
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			case errors.As(err, &transitionErr):
				// Replayed webhook for an already-confirmed order.
				slog.Info("webhook transition skipped", slog.String(logkey.TraceID, traceId),
					slog.String(logkey.OrderID, orderId), slog.String(logkey.ERROR, err.Error()))
				c.Status(http.StatusOK)
			default:
				slog.Error("failed to confirm order", slog.String(logkey.TraceID, traceId),
					slog.String(logkey.OrderID, orderId), slog.String(logkey.ERROR, err.Error()))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm order"})
			}
			return
		}

		go h.statusChangedFanout(traceId, order, oldStatus, paymentActor)
		c.Status(http.StatusOK)

	default:
		slog.Info("unhandled event type", slog.String(logkey.TraceID, traceId), slog.String("event_type", string(event.Type)))
		c.JSON(http.StatusOK, gin.H{
			"message": "Event type not handled",
			"event":   event.Type,
		})
	}
}
