// Package middleware wires authentication and request logging into the gin
// pipeline. Authentication supports both credential schemes: a bearer
// access token (header or cookie) and the opaque session cookie issued by
// the one-time-code login path.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AviralYO/oops-ecommerce-sub000/internal/auth"
	"github.com/AviralYO/oops-ecommerce-sub000/pkg/ctxmanage"
	"github.com/AviralYO/oops-ecommerce-sub000/pkg/logkey"
)

const (
	accessTokenCookie = "access_token"
	sessionCookie     = "session_id"
)

type Mid struct {
	resolver *auth.Resolver
}

func NewMid(resolver *auth.Resolver) (*Mid, error) {
	if resolver == nil {
		return nil, errors.New("resolver is nil")
	}
	return &Mid{resolver: resolver}, nil
}

// Authentication resolves the caller's identity and stores the claims in
// the request context. Requests with no credential, or with a credential
// that fails validation, are rejected with 401.
func (m *Mid) Authentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := ctxmanage.GetTraceIdOfRequest(c)

		claims, err := m.resolver.Resolve(c.Request.Context(), extractCredential(c))
		if err != nil {
			if errors.Is(err, auth.ErrNoCredential) {
				slog.Error("no credential on request", slog.String(logkey.TraceID, traceID))
			} else {
				slog.Error("credential rejected", slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		ctx := context.WithValue(c.Request.Context(), auth.ClaimsKey, claims)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Authorize wraps a handler so only callers holding one of the given roles
// reach it.
func (m *Mid) Authorize(next gin.HandlerFunc, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := ctxmanage.GetTraceIdOfRequest(c)
		claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
		if !ok {
			slog.Error("claims not found", slog.String(logkey.TraceID, traceID))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		for _, role := range roles {
			if claims.HasRole(role) {
				next(c)
				return
			}
		}
		slog.Error("role not permitted", slog.String(logkey.TraceID, traceID),
			slog.String(logkey.UserID, claims.Subject))
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	}
}

// extractCredential pulls both credential schemes off the request. The
// bearer token comes from the Authorization header or the access_token
// cookie; the opaque session id from its cookie.
func extractCredential(c *gin.Context) auth.Credential {
	var cred auth.Credential

	authHeader := c.Request.Header.Get("Authorization")
	if after, found := strings.CutPrefix(authHeader, "Bearer "); found {
		cred.BearerToken = strings.TrimSpace(after)
	}
	if cred.BearerToken == "" {
		if cookie, err := c.Cookie(accessTokenCookie); err == nil {
			cred.BearerToken = cookie
		}
	}
	if cookie, err := c.Cookie(sessionCookie); err == nil {
		cred.SessionID = cookie
	}
	return cred
}
