// Package auth issues and validates the credentials accepted by the API:
// RS256 access tokens for the password/OAuth login path and opaque session
// ids for the one-time-code path. Handlers read the resolved Claims from the
// request context.
package auth

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

// ClaimsKey is the request-context key under which middleware stores the
// authenticated caller's claims.
const ClaimsKey ctxKey = 1

const (
	RoleUser       = "user"
	RoleRetailer   = "retailer"
	RoleWholesaler = "wholesaler"
	RoleAdmin      = "admin"
)

// Claims carries the caller's identity and roles. Subject is the user id.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims include the given role.
func (c Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Keys holds the RSA key pair used to sign and verify access tokens.
type Keys struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

// NewKeys parses PEM-encoded RSA keys. The private key may be nil-length for
// verify-only deployments.
func NewKeys(privatePEM, publicPEM []byte) (*Keys, error) {
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	k := &Keys{publicKey: publicKey}
	if len(privatePEM) > 0 {
		privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
		if err != nil {
			return nil, fmt.Errorf("parsing private key: %w", err)
		}
		k.privateKey = privateKey
	}
	return k, nil
}

// GenerateToken signs an access token for the user with the given roles.
func (k *Keys) GenerateToken(userID string, roles []string, validFor time.Duration) (string, error) {
	if k.privateKey == nil {
		return "", fmt.Errorf("no private key configured")
	}
	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "marketplace",
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validFor)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(k.privateKey)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies the signature and expiry of an access token and
// returns its claims.
func (k *Keys) ValidateToken(tokenStr string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return k.publicKey, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return Claims{}, fmt.Errorf("invalid token")
	}
	return claims, nil
}
