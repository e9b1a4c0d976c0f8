package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AviralYO/oops-ecommerce-sub000/internal/auth"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/notify"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/orders"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/stores/kafka"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/users"
	"github.com/AviralYO/oops-ecommerce-sub000/pkg/ctxmanage"
	"github.com/AviralYO/oops-ecommerce-sub000/pkg/logkey"
)

type UpdateStatusRequest struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status" validate:"required,oneof=pending confirmed shipped delivered cancelled"`
	Comment string `json:"comment"`
}

// UpdateOrderStatus serves both PATCH /orders/:id and
// PATCH /retailer/orders/update-status. The caller must have a product in
// the order; the transition must be legal per the transition table. On
// success the history is appended (when a comment was supplied) and the
// customer is notified best-effort.
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	orderID := c.Param("id")
	if orderID == "" {
		orderID = req.OrderID
	}
	if orderID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "order_id is required"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		slog.Error("validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "status must be one of pending, confirmed, shipped, delivered, cancelled"})
		return
	}

	requireInvolvement := !claims.HasRole(auth.RoleAdmin)
	order, oldStatus, err := h.o.Transition(c.Request.Context(), orderID, req.Status, claims.Subject, req.Comment, requireInvolvement)
	if err != nil {
		var transitionErr orders.InvalidTransitionError
		switch {
		case errors.Is(err, orders.ErrNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		case errors.Is(err, orders.ErrNotInvolved):
			slog.Error("status update by uninvolved retailer", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.OrderID, orderID), slog.String(logkey.UserID, claims.Subject))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You have no products in this order"})
		case errors.As(err, &transitionErr):
			slog.Error("illegal status transition", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.OrderID, orderID), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": transitionErr.Error()})
		default:
			slog.Error("error updating order status", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order status"})
		}
		return
	}

	go h.statusChangedFanout(traceId, order, oldStatus, claims.Subject)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order": gin.H{
			"id":           order.ID,
			"order_number": order.OrderNumber,
			"status":       order.Status,
		},
	})
}

// statusChangedFanout emits the Kafka event and the canned customer
// notification for a committed transition. Failures are logged only.
func (h *Handler) statusChangedFanout(traceId string, order orders.Order, oldStatus, changedBy string) {
	if h.k != nil {
		jsonData, err := json.Marshal(kafka.StatusChangedEvent{
			OrderID:   order.ID,
			OldStatus: oldStatus,
			NewStatus: order.Status,
			ChangedBy: changedBy,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			slog.Error("failed to marshal StatusChangedEvent", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		} else if err := h.k.ProduceMessage(kafka.TopicStatusChanged, []byte(order.ID), jsonData); err != nil {
			slog.Error("failed to produce status-changed event", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		}
	}

	if h.u == nil || h.n == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	user, err := h.u.GetUserByID(ctx, order.UserID)
	if err != nil {
		slog.Error("failed to load user for notification", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
		return
	}
	phone := users.ContactPhone(user)
	email := user.Email
	if phone != "" {
		email = ""
	}
	err = h.n.Send(ctx, phone, email, "Order Update", notify.StatusMessage(order.OrderNumber, order.Status))
	if err != nil {
		slog.Error("failed to send status notification", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
	}
}
