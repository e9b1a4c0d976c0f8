package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AviralYO/oops-ecommerce-sub000/internal/auth"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/cart"
	"github.com/AviralYO/oops-ecommerce-sub000/internal/products"
	"github.com/AviralYO/oops-ecommerce-sub000/pkg/ctxmanage"
	"github.com/AviralYO/oops-ecommerce-sub000/pkg/logkey"
)

func (h *Handler) AddToCart(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userId := claims.Subject

	var request struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		slog.Error("invalid request body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if request.ProductID == "" || request.Quantity <= 0 {
		slog.Error("invalid product ID or quantity", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Product ID and quantity must be valid"})
		return
	}

	product, err := h.p.GetByID(c.Request.Context(), request.ProductID)
	if err != nil {
		if errors.Is(err, products.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		slog.Error("error fetching product details", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product details"})
		return
	}

	if request.Quantity > product.Quantity {
		slog.Error("insufficient stock", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ProductID, request.ProductID), slog.Int("Requested", request.Quantity), slog.Int("Available", product.Quantity))
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Insufficient stock available"})
		return
	}

	err = h.cConf.AddToCartDB(c.Request.Context(), userId, request.ProductID, request.Quantity, product.Quantity)
	if err != nil {
		slog.Error("error adding product to cart", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()), slog.String(logkey.ProductID, request.ProductID), slog.Int("Quantity", request.Quantity))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to add product to cart"})
		return
	}

	slog.Info("product added to cart", slog.String(logkey.TraceID, traceId),
		slog.String(logkey.ProductID, request.ProductID), slog.Int("Quantity", request.Quantity), slog.String(logkey.UserID, userId))
	c.JSON(http.StatusOK, gin.H{"message": "Product added to cart successfully"})
}

func (h *Handler) GetActiveCartItems(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	cartResponse, err := h.cConf.GetActiveCartItems(c.Request.Context(), claims.Subject)
	if err != nil {
		slog.Error("error fetching active cart items", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()), slog.String(logkey.UserID, claims.Subject))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart items"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": cartResponse.Items})
}

func (h *Handler) RemoveFromCart(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	productID := c.Param("productID")

	err := h.cConf.RemoveFromCart(c.Request.Context(), claims.Subject, productID)
	if err != nil {
		if errors.Is(err, cart.ErrNotInCart) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Product not in cart"})
			return
		}
		slog.Error("error removing cart item", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()), slog.String(logkey.ProductID, productID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove cart item"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product removed from cart"})
}
