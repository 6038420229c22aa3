package auth_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"membership/internal/auth"
	"membership/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func testToken(accessToken string, expiry time.Time) *oauth2.Token {
	return &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		Expiry:      expiry,
	}
}

func TestTokenCache_Get(t *testing.T) {
	t.Run("unknown_user", func(t *testing.T) {
		cache := auth.NewTokenCache(auth.NewAuthenticator(config.AuthConfig{}).OAuthConfig())

		_, _, err := cache.Get(context.Background(), "nobody")
		assert.Error(t, err)
	})

	t.Run("valid_token_is_returned_unchanged", func(t *testing.T) {
		cache := auth.NewTokenCache(auth.NewAuthenticator(config.AuthConfig{}).OAuthConfig())
		token := testToken("access-1", time.Now().Add(time.Hour))
		cache.Put("u1", token)

		got, changed, err := cache.Get(context.Background(), "u1")
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, "access-1", got.AccessToken)
	})

	t.Run("expired_token_is_refreshed_and_flagged", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"access-2","refresh_token":"refresh-2","token_type":"Bearer","expires_in":3600}`)
		}))
		defer server.Close()

		authenticator := auth.NewAuthenticator(config.AuthConfig{
			TokenURL: server.URL + "/token",
			ClientID: "client-id",
		})
		cache := auth.NewTokenCache(authenticator.OAuthConfig())

		expired := testToken("access-1", time.Now().Add(-time.Hour))
		expired.RefreshToken = "refresh-1"
		cache.Put("u1", expired)

		got, changed, err := cache.Get(context.Background(), "u1")
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "access-2", got.AccessToken)

		// The refreshed token is now the cached one.
		again, changed, err := cache.Get(context.Background(), "u1")
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, "access-2", again.AccessToken)
	})

	t.Run("removed_user", func(t *testing.T) {
		cache := auth.NewTokenCache(auth.NewAuthenticator(config.AuthConfig{}).OAuthConfig())
		cache.Put("u1", testToken("access-1", time.Now().Add(time.Hour)))
		cache.Remove("u1")

		_, _, err := cache.Get(context.Background(), "u1")
		assert.Error(t, err)
	})
}

func TestTokenRoundTrip(t *testing.T) {
	token := testToken("access-1", time.Now().Add(time.Hour).Truncate(time.Second))
	token.RefreshToken = "refresh-1"

	data, err := auth.MarshalToken(token)
	require.NoError(t, err)

	restored, err := auth.UnmarshalToken(data)
	require.NoError(t, err)
	assert.Equal(t, token.AccessToken, restored.AccessToken)
	assert.Equal(t, token.RefreshToken, restored.RefreshToken)
	assert.True(t, token.Expiry.Equal(restored.Expiry))
}

func TestUnmarshalToken_Garbage(t *testing.T) {
	_, err := auth.UnmarshalToken([]byte("{not json"))
	assert.Error(t, err)
}
