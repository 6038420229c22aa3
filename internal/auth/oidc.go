// Package auth implements interactive sign-in against the identity provider
// (OAuth2 authorization code with OIDC claims) and the per-user token cache.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"

	"membership/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

var ErrNoIDToken = errors.New("auth: token response carries no id_token")

// Claims is the subset of ID-token claims the application uses.
type Claims struct {
	Subject string
	Name    string
	Email   string
	Roles   []string
}

func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// Authenticator drives the authorization-code sign-in flow.
type Authenticator struct {
	config    *oauth2.Config
	adminRole string
}

func NewAuthenticator(cfg config.AuthConfig) *Authenticator {
	return &Authenticator{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthorizeURL,
				TokenURL: cfg.TokenURL,
			},
		},
		adminRole: cfg.AdminRole,
	}
}

// OAuthConfig exposes the underlying oauth2 config for the token cache.
func (a *Authenticator) OAuthConfig() *oauth2.Config {
	return a.config
}

// AuthCodeURL builds the provider sign-in URL for the given anti-forgery state.
func (a *Authenticator) AuthCodeURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades the authorization code for a token set.
func (a *Authenticator) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: code exchange: %w", err)
	}
	return token, nil
}

// ExtractClaims reads the identity claims out of the ID token. The token was
// just obtained over TLS straight from the provider's token endpoint, so the
// signature is not re-verified locally.
func (a *Authenticator) ExtractClaims(token *oauth2.Token) (*Claims, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, ErrNoIDToken
	}
	return ParseClaims(rawIDToken)
}

// IsAdmin reports whether the claims carry the configured admin role.
func (a *Authenticator) IsAdmin(c *Claims) bool {
	return c.HasRole(a.adminRole)
}

// ParseClaims decodes an ID token's claim set without signature verification.
func ParseClaims(rawIDToken string) (*Claims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawIDToken, claims); err != nil {
		return nil, fmt.Errorf("auth: parse id_token: %w", err)
	}

	c := &Claims{}

	// The directory-issued object id identifies the user; fall back to the
	// standard subject claim.
	if oid, ok := claims["oid"].(string); ok && oid != "" {
		c.Subject = oid
	} else if sub, ok := claims["sub"].(string); ok {
		c.Subject = sub
	}

	if name, ok := claims["name"].(string); ok {
		c.Name = name
	}
	if email, ok := claims["preferred_username"].(string); ok && email != "" {
		c.Email = email
	} else if email, ok := claims["email"].(string); ok {
		c.Email = email
	}

	if rawRoles, ok := claims["roles"].([]any); ok {
		for _, r := range rawRoles {
			if role, ok := r.(string); ok {
				c.Roles = append(c.Roles, role)
			}
		}
	}

	if c.Subject == "" {
		return nil, fmt.Errorf("auth: id_token carries no subject")
	}

	return c, nil
}

// RandomState generates an unguessable state parameter.
func RandomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
