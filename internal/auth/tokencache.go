package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
)

// TokenCache holds each signed-in user's OAuth token set, keyed by user id
// and guarded by a reader/writer lock. Tokens are refreshed on every access
// through the oauth2 TokenSource; the caller persists the token back to
// session storage only when Get reports a material change. Concurrent
// requests for the same user serialize on the lock for the duration of a
// cache read or write, not for the whole request.
type TokenCache struct {
	mu     sync.RWMutex
	tokens map[string]*oauth2.Token
	config *oauth2.Config
}

func NewTokenCache(config *oauth2.Config) *TokenCache {
	return &TokenCache{
		tokens: make(map[string]*oauth2.Token),
		config: config,
	}
}

// Put stores a user's token set, typically right after sign-in or when a
// session is rehydrated.
func (c *TokenCache) Put(userID string, token *oauth2.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[userID] = token
}

// Get returns the user's current token, refreshing it when expired. The
// second result reports whether the token materially changed and should be
// persisted back to the session.
func (c *TokenCache) Get(ctx context.Context, userID string) (*oauth2.Token, bool, error) {
	c.mu.RLock()
	cached, ok := c.tokens[userID]
	c.mu.RUnlock()

	if !ok {
		return nil, false, fmt.Errorf("auth: no token cached for user %s", userID)
	}

	fresh, err := c.config.TokenSource(ctx, cached).Token()
	if err != nil {
		return nil, false, fmt.Errorf("auth: refresh token for user %s: %w", userID, err)
	}

	if !tokenChanged(cached, fresh) {
		return cached, false, nil
	}

	c.mu.Lock()
	c.tokens[userID] = fresh
	c.mu.Unlock()

	return fresh, true, nil
}

// Remove drops a user's cached token, e.g. on logout or identity replacement.
func (c *TokenCache) Remove(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, userID)
}

func tokenChanged(old, fresh *oauth2.Token) bool {
	return old.AccessToken != fresh.AccessToken ||
		old.RefreshToken != fresh.RefreshToken ||
		!old.Expiry.Equal(fresh.Expiry)
}

// MarshalToken serializes a token set for session storage.
func MarshalToken(token *oauth2.Token) ([]byte, error) {
	return json.Marshal(token)
}

// UnmarshalToken restores a token set from session storage.
func UnmarshalToken(data []byte) (*oauth2.Token, error) {
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("auth: decode stored token: %w", err)
	}
	return &token, nil
}
