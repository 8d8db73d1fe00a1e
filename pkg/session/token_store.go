package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

const tokenStoreLogPrefix = "session:token_store"

// TokenStore is an in-memory Authenticator with expiring tokens. It is
// the reference implementation of the Authenticator contract, sized for
// tests, the CLI, and single-node deployments; real session backends
// plug in behind the same interface.
type TokenStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	tokens map[string]tokenEntry
	now    func() time.Time
}

type tokenEntry struct {
	identity Identity
	expires  time.Time
}

// NewTokenStore creates a TokenStore whose tokens expire after ttl.
// A non-positive ttl means tokens never expire.
func NewTokenStore(ttl time.Duration) *TokenStore {
	return &TokenStore{
		ttl:    ttl,
		tokens: make(map[string]tokenEntry),
		now:    time.Now,
	}
}

// Issue mints a random token for the given identity and stores it.
func (s *TokenStore) Issue(identity Identity) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s - failed to generate token: %w", tokenStoreLogPrefix, err)
	}
	token := hex.EncodeToString(buf)
	s.Add(token, identity)
	return token, nil
}

// Add registers a caller under a fixed token. Used for deterministic
// tokens in tests and local deployments; Issue is preferred otherwise.
func (s *TokenStore) Add(token string, identity Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = tokenEntry{identity: identity, expires: s.expiry()}
}

// Revoke removes a token. Revoking an unknown token is a no-op.
func (s *TokenStore) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// Authenticate resolves a token to its identity. Unknown and expired
// tokens return ErrUnauthorized; expired entries are removed.
func (s *TokenStore) Authenticate(_ context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tokens[token]
	if !ok {
		return Identity{}, ErrUnauthorized
	}
	if !entry.expires.IsZero() && s.now().After(entry.expires) {
		delete(s.tokens, token)
		return Identity{}, ErrUnauthorized
	}
	return entry.identity, nil
}

func (s *TokenStore) expiry() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(s.ttl)
}
