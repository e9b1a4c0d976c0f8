package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	consulapi "github.com/hashicorp/consul/api"

	"github.com/AviralYO/oops-ecommerce-sub000/internal/auth"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/cart"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/notify"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/orders"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/products"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/stores/kafka"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/users"
	"github.com/AviralYO/oops-ecommerce-sub000/middleware"
)

type Handler struct {
	o        orders.Conf
	p        products.Conf
	cConf    *cart.Conf
	u        *users.Conf
	n        *notify.Conf
	k        *kafka.Conf
	client   *consulapi.Client
	keys     *auth.Keys
	validate *validator.Validate
}

func NewHandler(o orders.Conf, p products.Conf, cConf *cart.Conf, u *users.Conf,
	n *notify.Conf, k *kafka.Conf, client *consulapi.Client, keys *auth.Keys) *Handler {
	return &Handler{
		o:        o,
		p:        p,
		cConf:    cConf,
		u:        u,
		n:        n,
		k:        k,
		client:   client,
		keys:     keys,
		validate: validator.New(),
	}
}

func API(endpointPrefix string, resolver *auth.Resolver, h *Handler) *gin.Engine {
	r := gin.New()
	mode := os.Getenv("GIN_MODE")
	if mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	m, err := middleware.NewMid(resolver)
	if err != nil {
		panic(err)
	}

	r.Use(middleware.Logger(), gin.Recovery())
	r.GET("/ping", healthCheck)

	v1 := r.Group(endpointPrefix)
	{
		v1.POST("/webhook", h.Webhook)
		v1.POST("/signup", h.Signup)
		v1.POST("/login", h.Login)
		v1.POST("/otp/request", h.RequestOTP)
		v1.POST("/otp/verify", h.VerifyOTP)

		v1.GET("/products/list", h.ListProducts)
		v1.GET("/products/view/:id", h.GetProduct)
		v1.GET("/products/stock/:productID", h.ProductStock)

		v1.Use(m.Authentication())

		v1.GET("/users/profile", h.Profile)

		v1.POST("/cart/add-item", m.Authorize(h.AddToCart, auth.RoleUser))
		v1.GET("/cart/items", m.Authorize(h.GetActiveCartItems, auth.RoleUser))
		v1.DELETE("/cart/items/:productID", m.Authorize(h.RemoveFromCart, auth.RoleUser))

		v1.POST("/orders/place", m.Authorize(h.PlaceOrder, auth.RoleUser))
		v1.GET("/orders", m.Authorize(h.ListOrders, auth.RoleUser))
		v1.GET("/orders/:id", h.GetOrder)
		v1.GET("/orders/:id/history", h.OrderHistory)
		v1.PATCH("/orders/:id", m.Authorize(h.UpdateOrderStatus, auth.RoleRetailer, auth.RoleWholesaler, auth.RoleAdmin))

		v1.GET("/retailer/orders", m.Authorize(h.ListRetailerOrders, auth.RoleRetailer, auth.RoleWholesaler))
		v1.PATCH("/retailer/orders/update-status", m.Authorize(h.UpdateOrderStatus, auth.RoleRetailer, auth.RoleWholesaler, auth.RoleAdmin))

		v1.POST("/products/create", m.Authorize(h.CreateProduct, auth.RoleRetailer, auth.RoleWholesaler))
		v1.PUT("/products/update/:id", m.Authorize(h.UpdateProduct, auth.RoleRetailer, auth.RoleWholesaler))
		v1.DELETE("/products/delete/:id", m.Authorize(h.DeleteProduct, auth.RoleRetailer, auth.RoleWholesaler))
	}
	return r
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
