package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoCredential signals that a strategy found nothing to act on, so the
// resolver may consult the next strategy.
var ErrNoCredential = errors.New("no credential present")

// Credential carries the raw credentials extracted from a request. Either
// field may be empty.
type Credential struct {
	BearerToken string
	SessionID   string
}

// SessionStore resolves an opaque session id to the user it was issued for.
// Implemented by the users package against the sessions table.
type SessionStore interface {
	UserBySession(ctx context.Context, sessionID string) (userID string, roles []string, err error)
}

// Strategy resolves one credential scheme. A strategy returns
// ErrNoCredential when its scheme is absent from the request; any other
// error is authoritative and stops the chain.
type Strategy interface {
	Resolve(ctx context.Context, cred Credential) (Claims, error)
}

// BearerStrategy validates signed access tokens.
type BearerStrategy struct {
	Keys *Keys
}

func (s BearerStrategy) Resolve(ctx context.Context, cred Credential) (Claims, error) {
	if cred.BearerToken == "" {
		return Claims{}, ErrNoCredential
	}
	claims, err := s.Keys.ValidateToken(cred.BearerToken)
	if err != nil {
		return Claims{}, fmt.Errorf("bearer token rejected: %w", err)
	}
	return claims, nil
}

// SessionStrategy exchanges opaque session ids issued by the one-time-code
// login path.
type SessionStrategy struct {
	Store SessionStore
}

func (s SessionStrategy) Resolve(ctx context.Context, cred Credential) (Claims, error) {
	if cred.SessionID == "" {
		return Claims{}, ErrNoCredential
	}
	userID, roles, err := s.Store.UserBySession(ctx, cred.SessionID)
	if err != nil {
		return Claims{}, fmt.Errorf("session rejected: %w", err)
	}
	return Claims{
		Roles:            roles,
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
	}, nil
}

// Resolver tries each strategy in fixed order. The bearer token is the
// primary scheme; the session id is consulted only once the bearer scheme is
// verified absent.
type Resolver struct {
	strategies []Strategy
}

func NewResolver(keys *Keys, sessions SessionStore) *Resolver {
	return &Resolver{strategies: []Strategy{
		BearerStrategy{Keys: keys},
		SessionStrategy{Store: sessions},
	}}
}

// Resolve maps the request's credentials to claims. It returns
// ErrNoCredential when no strategy found a credential to act on.
func (r *Resolver) Resolve(ctx context.Context, cred Credential) (Claims, error) {
	for _, s := range r.strategies {
		claims, err := s.Resolve(ctx, cred)
		if errors.Is(err, ErrNoCredential) {
			continue
		}
		if err != nil {
			return Claims{}, err
		}
		return claims, nil
	}
	return Claims{}, ErrNoCredential
}
