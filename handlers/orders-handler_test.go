package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AviralYO/oops-ecommerce-sub000/internal/auth"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/orders"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/products"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// withClaims stands in for the authentication middleware, placing the
// caller's claims directly on the request context.
func withClaims(userID string, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := auth.Claims{
			Roles:            roles,
			RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
		}
		ctx := context.WithValue(c.Request.Context(), auth.ClaimsKey, claims)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func newTestHandler(t *testing.T, store *orders.MemoryStore) (*Handler, orders.Conf) {
	t.Helper()
	oConf, err := orders.NewConf(store)
	require.NoError(t, err)
	pConf, err := products.NewConf(products.NewMemoryStore())
	require.NoError(t, err)
	return NewHandler(oConf, pConf, nil, nil, nil, nil, nil, nil), oConf
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func placeOrderBody(productID string, quantity int) map[string]any {
	return map[string]any{
		"total_amount":     float64(quantity) * 10,
		"shipping_address": map[string]string{"street": "1 Main St", "city": "Pune"},
		"items": []map[string]any{
			{"product_id": productID, "quantity": quantity, "price": 10.0},
		},
	}
}

func TestPlaceOrderEndpoint_Success(t *testing.T) {
	store := orders.NewMemoryStore()
	store.SeedProduct(products.Product{ID: "p1", RetailerID: "retailer-1", Name: "Widget", Price: 10, Quantity: 12})
	store.AddCartLine("user-1", "p1", 3)
	h, _ := newTestHandler(t, store)

	r := gin.New()
	r.POST("/orders/place", withClaims("user-1", auth.RoleUser), h.PlaceOrder)

	w := doJSON(t, r, http.MethodPost, "/orders/place", placeOrderBody("p1", 3))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Success bool `json:"success"`
		Order   struct {
			ID          string `json:"id"`
			OrderNumber string `json:"order_number"`
			Status      string `json:"status"`
		} `json:"order"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Order.ID)
	assert.Regexp(t, regexp.MustCompile(`^ORD-\d+-[0-9A-Z]{5}$`), resp.Order.OrderNumber)
	assert.Equal(t, orders.StatusPending, resp.Order.Status)

	p, ok := store.Product("p1")
	require.True(t, ok)
	assert.Equal(t, 9, p.Quantity)
	assert.Equal(t, products.StatusLowStock, p.Status)
	assert.Equal(t, 0, store.CartSize("user-1"))
}

func TestPlaceOrderEndpoint_InsufficientStock(t *testing.T) {
	store := orders.NewMemoryStore()
	store.SeedProduct(products.Product{ID: "p1", RetailerID: "retailer-1", Name: "Widget", Price: 10, Quantity: 2})
	h, _ := newTestHandler(t, store)

	r := gin.New()
	r.POST("/orders/place", withClaims("user-1", auth.RoleUser), h.PlaceOrder)

	w := doJSON(t, r, http.MethodPost, "/orders/place", placeOrderBody("p1", 5))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Insufficient stock for Widget. Only 2 available", resp.Error)

	assert.Equal(t, 0, store.OrderCount())
	p, _ := store.Product("p1")
	assert.Equal(t, 2, p.Quantity)
}

func TestPlaceOrderEndpoint_UnknownProduct(t *testing.T) {
	store := orders.NewMemoryStore()
	h, _ := newTestHandler(t, store)

	r := gin.New()
	r.POST("/orders/place", withClaims("user-1", auth.RoleUser), h.PlaceOrder)

	w := doJSON(t, r, http.MethodPost, "/orders/place", placeOrderBody("nope", 1))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, store.OrderCount())
}

func TestPlaceOrderEndpoint_ValidationFailures(t *testing.T) {
	store := orders.NewMemoryStore()
	store.SeedProduct(products.Product{ID: "p1", RetailerID: "retailer-1", Name: "Widget", Price: 10, Quantity: 12})
	h, _ := newTestHandler(t, store)

	r := gin.New()
	r.POST("/orders/place", withClaims("user-1", auth.RoleUser), h.PlaceOrder)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing total_amount", map[string]any{
			"shipping_address": map[string]string{"city": "Pune"},
			"items":            []map[string]any{{"product_id": "p1", "quantity": 1}},
		}},
		{"negative total_amount", map[string]any{
			"total_amount":     -1.0,
			"shipping_address": map[string]string{"city": "Pune"},
			"items":            []map[string]any{{"product_id": "p1", "quantity": 1}},
		}},
		{"null shipping_address", map[string]any{
			"total_amount":     10.0,
			"shipping_address": nil,
			"items":            []map[string]any{{"product_id": "p1", "quantity": 1}},
		}},
		{"no items", map[string]any{
			"total_amount":     10.0,
			"shipping_address": map[string]string{"city": "Pune"},
			"items":            []map[string]any{},
		}},
		{"zero quantity item", map[string]any{
			"total_amount":     10.0,
			"shipping_address": map[string]string{"city": "Pune"},
			"items":            []map[string]any{{"product_id": "p1", "quantity": 0}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/orders/place", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
	assert.Equal(t, 0, store.OrderCount())
	p, _ := store.Product("p1")
	assert.Equal(t, 12, p.Quantity)
}

func TestPlaceOrderEndpoint_NoClaims(t *testing.T) {
	store := orders.NewMemoryStore()
	h, _ := newTestHandler(t, store)

	r := gin.New()
	r.POST("/orders/place", h.PlaceOrder)

	w := doJSON(t, r, http.MethodPost, "/orders/place", placeOrderBody("p1", 1))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetOrderEndpoint_Access(t *testing.T) {
	store := orders.NewMemoryStore()
	store.SeedProduct(products.Product{ID: "p1", RetailerID: "retailer-1", Name: "Widget", Price: 10, Quantity: 12})
	h, oConf := newTestHandler(t, store)

	order, err := oConf.CreateOrder(context.Background(), orders.Placement{
		UserID:          "user-1",
		TotalAmount:     10,
		ShippingAddress: json.RawMessage(`{"city":"Pune"}`),
		Items:           []orders.NewOrderItem{{ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)

	cases := []struct {
		name   string
		userID string
		roles  []string
		want   int
	}{
		{"owner", "user-1", []string{auth.RoleUser}, http.StatusOK},
		{"involved retailer", "retailer-1", []string{auth.RoleRetailer}, http.StatusOK},
		{"admin", "someone-else", []string{auth.RoleAdmin}, http.StatusOK},
		{"stranger", "user-2", []string{auth.RoleUser}, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/orders/:id", withClaims(tc.userID, tc.roles...), h.GetOrder)
			w := doJSON(t, r, http.MethodGet, "/orders/"+order.ID, nil)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}

	r := gin.New()
	r.GET("/orders/:id", withClaims("user-1", auth.RoleUser), h.GetOrder)
	w := doJSON(t, r, http.MethodGet, "/orders/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
