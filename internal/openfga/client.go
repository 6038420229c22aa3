// Package openfga wraps the OpenFGA SDK for relationship-based authorization
// of directory management actions.
package openfga

import (
	"context"
	"fmt"
	"log/slog"

	"membership/internal/config"

	"github.com/openfga/go-sdk/client"
	"github.com/openfga/go-sdk/credentials"
)

// Client wraps the OpenFGA SDK client. When disabled (development) every
// check allows.
type Client struct {
	fga    *client.OpenFgaClient
	config config.OpenFGAConfig
}

func NewClient(cfg config.OpenFGAConfig) (*Client, error) {
	if !cfg.Enabled {
		slog.Info("OpenFGA is disabled")
		return &Client{config: cfg}, nil
	}

	fgaClient, err := client.NewSdkClient(&client.ClientConfiguration{
		ApiHost: cfg.APIHost,
		StoreId: cfg.StoreID,
		Credentials: &credentials.Credentials{
			Method: credentials.CredentialsMethodApiToken,
			Config: &credentials.Config{
				ApiToken: cfg.APIToken,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenFGA client: %w", err)
	}

	c := &Client{
		fga:    fgaClient,
		config: cfg,
	}

	if err := c.verifyConnection(); err != nil {
		return nil, fmt.Errorf("failed to verify OpenFGA connection: %w", err)
	}

	slog.Info("OpenFGA client initialized successfully",
		"store_id", cfg.StoreID, "model_id", cfg.ModelID)

	return c, nil
}

func (c *Client) IsEnabled() bool {
	return c.config.Enabled && c.fga != nil
}

func (c *Client) verifyConnection() error {
	if !c.config.Enabled {
		return nil
	}

	ctx := context.Background()

	response, err := c.fga.GetStore(ctx).Execute()
	if err != nil {
		return fmt.Errorf("failed to get store: %w", err)
	}

	if response.Id != c.config.StoreID {
		return fmt.Errorf("store ID mismatch: expected %s, got %s",
			c.config.StoreID, response.Id)
	}

	modelResponse, err := c.fga.ReadAuthorizationModel(ctx).Execute()
	if err != nil {
		return fmt.Errorf("failed to read authorization model: %w", err)
	}

	if modelResponse.AuthorizationModel.Id != c.config.ModelID {
		slog.Warn("Authorization model ID mismatch",
			"expected", c.config.ModelID,
			"actual", modelResponse.AuthorizationModel.Id)
	}

	return nil
}

// CheckPermission runs a single relationship check.
func (c *Client) CheckPermission(ctx context.Context, userID, relation, objectType, objectID string) (bool, error) {
	body := client.ClientCheckRequest{
		User:     fmt.Sprintf("user:%s", userID),
		Relation: relation,
		Object:   fmt.Sprintf("%s:%s", objectType, objectID),
	}

	response, err := c.fga.Check(ctx).Body(body).Execute()
	if err != nil {
		return false, fmt.Errorf("openfga check: %w", err)
	}

	return response.GetAllowed(), nil
}

// WriteTuple creates a relationship tuple.
func (c *Client) WriteTuple(ctx context.Context, userID, relation, objectType, objectID string) error {
	body := client.ClientWriteRequest{
		Writes: []client.ClientTupleKey{{
			User:     fmt.Sprintf("user:%s", userID),
			Relation: relation,
			Object:   fmt.Sprintf("%s:%s", objectType, objectID),
		}},
	}

	if _, err := c.fga.Write(ctx).Body(body).Execute(); err != nil {
		return fmt.Errorf("openfga write tuple: %w", err)
	}
	return nil
}

// DeleteTuple removes a relationship tuple.
func (c *Client) DeleteTuple(ctx context.Context, userID, relation, objectType, objectID string) error {
	body := client.ClientWriteRequest{
		Deletes: []client.ClientTupleKeyWithoutCondition{{
			User:     fmt.Sprintf("user:%s", userID),
			Relation: relation,
			Object:   fmt.Sprintf("%s:%s", objectType, objectID),
		}},
	}

	if _, err := c.fga.Write(ctx).Body(body).Execute(); err != nil {
		return fmt.Errorf("openfga delete tuple: %w", err)
	}
	return nil
}
