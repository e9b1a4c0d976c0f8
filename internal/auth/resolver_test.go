package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeys(t *testing.T) *Keys {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return &Keys{privateKey: key, publicKey: &key.PublicKey}
}

type fakeSessionStore struct {
	sessions map[string]string
}

func (f fakeSessionStore) UserBySession(ctx context.Context, sessionID string) (string, []string, error) {
	userID, ok := f.sessions[sessionID]
	if !ok {
		return "", nil, errors.New("session not found")
	}
	return userID, []string{RoleUser}, nil
}

func TestResolver_BearerToken(t *testing.T) {
	keys := testKeys(t)
	r := NewResolver(keys, fakeSessionStore{})

	token, err := keys.GenerateToken("user-1", []string{RoleRetailer}, time.Hour)
	require.NoError(t, err)

	claims, err := r.Resolve(context.Background(), Credential{BearerToken: token})
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.True(t, claims.HasRole(RoleRetailer))
	assert.False(t, claims.HasRole(RoleAdmin))
}

func TestResolver_InvalidBearerDoesNotFallThrough(t *testing.T) {
	keys := testKeys(t)
	store := fakeSessionStore{sessions: map[string]string{"sess-1": "user-1"}}
	r := NewResolver(keys, store)

	// A malformed token is an authoritative rejection, not an absent
	// credential, so the valid session id must not rescue the request.
	_, err := r.Resolve(context.Background(), Credential{
		BearerToken: "not-a-token",
		SessionID:   "sess-1",
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCredential)
}

func TestResolver_ExpiredBearerRejected(t *testing.T) {
	keys := testKeys(t)
	r := NewResolver(keys, fakeSessionStore{})

	token, err := keys.GenerateToken("user-1", []string{RoleUser}, -time.Minute)
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), Credential{BearerToken: token})
	require.Error(t, err)
}

func TestResolver_SessionOnly(t *testing.T) {
	keys := testKeys(t)
	store := fakeSessionStore{sessions: map[string]string{"sess-1": "user-2"}}
	r := NewResolver(keys, store)

	claims, err := r.Resolve(context.Background(), Credential{SessionID: "sess-1"})
	require.NoError(t, err)
	assert.Equal(t, "user-2", claims.Subject)
	assert.True(t, claims.HasRole(RoleUser))
}

func TestResolver_UnknownSession(t *testing.T) {
	keys := testKeys(t)
	r := NewResolver(keys, fakeSessionStore{})

	_, err := r.Resolve(context.Background(), Credential{SessionID: "missing"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCredential)
}

func TestResolver_NoCredential(t *testing.T) {
	keys := testKeys(t)
	r := NewResolver(keys, fakeSessionStore{})

	_, err := r.Resolve(context.Background(), Credential{})
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestValidateToken_WrongKeyRejected(t *testing.T) {
	signer := testKeys(t)
	verifier := testKeys(t)

	token, err := signer.GenerateToken("user-1", []string{RoleUser}, time.Hour)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
}
