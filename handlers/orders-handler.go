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

type PlaceOrderItem struct {
	ProductID string  `json:"product_id" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	Price     float64 `json:"price" validate:"gte=0"`
}

type PlaceOrderRequest struct {
	TotalAmount     *float64         `json:"total_amount" validate:"required"`
	GSTAmount       float64          `json:"gst_amount"`
	ShippingAmount  float64          `json:"shipping_amount"`
	ShippingAddress json.RawMessage  `json:"shipping_address" validate:"required"`
	PaymentDetails  json.RawMessage  `json:"payment_details"`
	DeliveryMethod  string           `json:"delivery_method" validate:"omitempty,oneof=delivery pickup"`
	PickupDatetime  *time.Time       `json:"pickup_datetime"`
	Items           []PlaceOrderItem `json:"items" validate:"required,min=1,dive"`
}

// PlaceOrder runs the placement workflow: availability check, order header
// and line items, conditional stock decrement, pickup scheduling, cart
// clear — all in one transaction — then best-effort event and notification
// fan-out that never touches the response.
func (h *Handler) PlaceOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		slog.Error("validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "total_amount, shipping_address and at least one item are required"})
		return
	}
	if *req.TotalAmount < 0 {
		slog.Error("negative total amount", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "total_amount must be non-negative"})
		return
	}
	if string(req.ShippingAddress) == "null" {
		slog.Error("missing shipping address", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "shipping_address is required"})
		return
	}

	items := make([]orders.NewOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, orders.NewOrderItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	order, err := h.o.CreateOrder(c.Request.Context(), orders.Placement{
		UserID:          claims.Subject,
		TotalAmount:     *req.TotalAmount,
		GSTAmount:       req.GSTAmount,
		ShippingAmount:  req.ShippingAmount,
		ShippingAddress: req.ShippingAddress,
		PaymentDetails:  req.PaymentDetails,
		DeliveryMethod:  req.DeliveryMethod,
		PickupDatetime:  req.PickupDatetime,
		Items:           items,
	})
	if err != nil {
		var stockErr orders.InsufficientStockError
		switch {
		case errors.As(err, &stockErr):
			slog.Error("insufficient stock", slog.String(logkey.TraceID, traceId),
				slog.String("Product", stockErr.ProductName), slog.Int("Available", stockErr.Available))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": stockErr.Error()})
		case errors.Is(err, orders.ErrProductNotFound):
			slog.Error("unknown product in placement", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "One or more products do not exist"})
		default:
			slog.Error("error placing order", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to place order"})
		}
		return
	}

	go h.orderPlacedFanout(traceId, order)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order": gin.H{
			"id":           order.ID,
			"order_number": order.OrderNumber,
			"status":       order.Status,
		},
	})
}

// orderPlacedFanout emits Kafka events and the purchase confirmation.
// Failures are logged and never surfaced.
func (h *Handler) orderPlacedFanout(traceId string, order orders.Order) {
	if h.k != nil {
		for _, item := range order.Items {
			jsonData, err := json.Marshal(kafka.OrderPlacedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				ProductID:   item.ProductID,
				Quantity:    item.Quantity,
				CreatedAt:   time.Now().UTC(),
			})
			if err != nil {
				slog.Error("failed to marshal OrderPlacedEvent", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
				continue
			}
			if err := h.k.ProduceMessage(kafka.TopicOrderPlaced, []byte(order.ID), jsonData); err != nil {
				slog.Error("failed to produce order-placed event", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			}
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
	err = h.n.Send(ctx, phone, email, "Order Confirmation", notify.PurchaseMessage(order.OrderNumber))
	if err != nil {
		slog.Error("failed to send purchase confirmation", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
		return
	}
	slog.Info("purchase confirmation sent", slog.String(logkey.TraceID, traceId), slog.String(logkey.OrderID, order.ID))
}

// ListOrders returns the caller's orders, newest first.
func (h *Handler) ListOrders(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	list, err := h.o.ListOrdersByUser(c.Request.Context(), claims.Subject)
	if err != nil {
		slog.Error("error listing orders", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

// GetOrder returns one order to its owner or to a retailer with a product
// in it.
func (h *Handler) GetOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	orderID := c.Param("id")

	order, err := h.o.GetOrderByID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		slog.Error("error fetching order", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}

	if order.UserID != claims.Subject && !claims.HasRole(auth.RoleAdmin) {
		involved, err := h.o.RetailerInOrder(c.Request.Context(), orderID, claims.Subject)
		if err != nil || !involved {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// ListRetailerOrders returns the orders containing the caller's products.
func (h *Handler) ListRetailerOrders(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	list, err := h.o.ListOrdersByRetailer(c.Request.Context(), claims.Subject)
	if err != nil {
		slog.Error("error listing retailer orders", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

// OrderHistory returns the append-only status history of an order.
func (h *Handler) OrderHistory(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	orderID := c.Param("id")

	order, err := h.o.GetOrderByID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		slog.Error("error fetching order", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}
	if order.UserID != claims.Subject && !claims.HasRole(auth.RoleAdmin) {
		involved, err := h.o.RetailerInOrder(c.Request.Context(), orderID, claims.Subject)
		if err != nil || !involved {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
	}

	history, err := h.o.History(c.Request.Context(), orderID)
	if err != nil {
		slog.Error("error fetching history", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}
