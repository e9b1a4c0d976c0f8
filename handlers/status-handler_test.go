package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AviralYO/oops-ecommerce-sub000/internal/auth"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/orders"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/products"
)

func seedOrder(t *testing.T, store *orders.MemoryStore, oConf orders.Conf) orders.Order {
	t.Helper()
	store.SeedProduct(products.Product{ID: "p1", RetailerID: "retailer-1", Name: "Widget", Price: 10, Quantity: 12})
	order, err := oConf.CreateOrder(context.Background(), orders.Placement{
		UserID:          "user-1",
		TotalAmount:     10,
		ShippingAddress: json.RawMessage(`{"city":"Pune"}`),
		Items:           []orders.NewOrderItem{{ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)
	return order
}

func TestUpdateOrderStatusEndpoint_Success(t *testing.T) {
	store := orders.NewMemoryStore()
	h, oConf := newTestHandler(t, store)
	order := seedOrder(t, store, oConf)

	r := gin.New()
	r.PATCH("/orders/:id", withClaims("retailer-1", auth.RoleRetailer), h.UpdateOrderStatus)

	w := doJSON(t, r, http.MethodPatch, "/orders/"+order.ID, map[string]any{
		"status":  orders.StatusConfirmed,
		"comment": "Payment verified",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Success bool `json:"success"`
		Order   struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"order"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, order.ID, resp.Order.ID)
	assert.Equal(t, orders.StatusConfirmed, resp.Order.Status)

	history, err := oConf.History(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Payment verified", history[0].Comment)
	assert.Equal(t, "retailer-1", history[0].ChangedBy)
}

func TestUpdateOrderStatusEndpoint_BodyOrderID(t *testing.T) {
	store := orders.NewMemoryStore()
	h, oConf := newTestHandler(t, store)
	order := seedOrder(t, store, oConf)

	// The retailer dashboard route carries the order id in the body.
	r := gin.New()
	r.PATCH("/retailer/orders/update-status", withClaims("retailer-1", auth.RoleRetailer), h.UpdateOrderStatus)

	w := doJSON(t, r, http.MethodPatch, "/retailer/orders/update-status", map[string]any{
		"order_id": order.ID,
		"status":   orders.StatusConfirmed,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got, err := oConf.GetOrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusConfirmed, got.Status)
}

func TestUpdateOrderStatusEndpoint_IllegalTransition(t *testing.T) {
	store := orders.NewMemoryStore()
	h, oConf := newTestHandler(t, store)
	order := seedOrder(t, store, oConf)

	r := gin.New()
	r.PATCH("/orders/:id", withClaims("retailer-1", auth.RoleRetailer), h.UpdateOrderStatus)

	w := doJSON(t, r, http.MethodPatch, "/orders/"+order.ID, map[string]any{
		"status": orders.StatusDelivered,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "cannot transition order from pending to delivered", resp.Error)

	got, err := oConf.GetOrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, got.Status)
}

func TestUpdateOrderStatusEndpoint_UninvolvedRetailer(t *testing.T) {
	store := orders.NewMemoryStore()
	h, oConf := newTestHandler(t, store)
	order := seedOrder(t, store, oConf)

	r := gin.New()
	r.PATCH("/orders/:id", withClaims("retailer-2", auth.RoleRetailer), h.UpdateOrderStatus)

	w := doJSON(t, r, http.MethodPatch, "/orders/"+order.ID, map[string]any{
		"status": orders.StatusConfirmed,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateOrderStatusEndpoint_AdminBypassesInvolvement(t *testing.T) {
	store := orders.NewMemoryStore()
	h, oConf := newTestHandler(t, store)
	order := seedOrder(t, store, oConf)

	r := gin.New()
	r.PATCH("/orders/:id", withClaims("admin-1", auth.RoleAdmin), h.UpdateOrderStatus)

	w := doJSON(t, r, http.MethodPatch, "/orders/"+order.ID, map[string]any{
		"status": orders.StatusCancelled,
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestUpdateOrderStatusEndpoint_NotFound(t *testing.T) {
	store := orders.NewMemoryStore()
	h, _ := newTestHandler(t, store)

	r := gin.New()
	r.PATCH("/orders/:id", withClaims("retailer-1", auth.RoleRetailer), h.UpdateOrderStatus)

	w := doJSON(t, r, http.MethodPatch, "/orders/missing", map[string]any{
		"status": orders.StatusConfirmed,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateOrderStatusEndpoint_InvalidStatusValue(t *testing.T) {
	store := orders.NewMemoryStore()
	h, oConf := newTestHandler(t, store)
	order := seedOrder(t, store, oConf)

	r := gin.New()
	r.PATCH("/orders/:id", withClaims("retailer-1", auth.RoleRetailer), h.UpdateOrderStatus)

	w := doJSON(t, r, http.MethodPatch, "/orders/"+order.ID, map[string]any{
		"status": "paid",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateOrderStatusEndpoint_MissingOrderID(t *testing.T) {
	store := orders.NewMemoryStore()
	h, _ := newTestHandler(t, store)

	r := gin.New()
	r.PATCH("/retailer/orders/update-status", withClaims("retailer-1", auth.RoleRetailer), h.UpdateOrderStatus)

	w := doJSON(t, r, http.MethodPatch, "/retailer/orders/update-status", map[string]any{
		"status": orders.StatusConfirmed,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
