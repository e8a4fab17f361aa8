package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/naveenspark/household/pkg/domain"
)

// ListAssets returns the caller's assets.
func (c *Client) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	var assets []domain.Asset
	if err := c.get(ctx, "/api/assets", &assets); err != nil {
		return nil, fmt.Errorf("client.ListAssets: %w", err)
	}
	return assets, nil
}

// GetAsset fetches a single asset by ID.
func (c *Client) GetAsset(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	var a domain.Asset
	if err := c.get(ctx, assetPath(id), &a); err != nil {
		return nil, fmt.Errorf("client.GetAsset: %w", err)
	}
	return &a, nil
}

// CreateAsset creates a cash holding or loan.
func (c *Client) CreateAsset(ctx context.Context, in domain.AssetInput) (*domain.Asset, error) {
	var created domain.Asset
	if err := c.post(ctx, "/api/assets", in, &created); err != nil {
		return nil, fmt.Errorf("client.CreateAsset: %w", err)
	}
	return &created, nil
}

// UpdateAsset changes the fields set in patch.
func (c *Client) UpdateAsset(ctx context.Context, id uuid.UUID, patch domain.AssetPatch) (*domain.Asset, error) {
	var updated domain.Asset
	if err := c.put(ctx, assetPath(id), patch, &updated); err != nil {
		return nil, fmt.Errorf("client.UpdateAsset: %w", err)
	}
	return &updated, nil
}

// DeleteAsset removes an asset.
func (c *Client) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	if err := c.delete(ctx, assetPath(id)); err != nil {
		return fmt.Errorf("client.DeleteAsset: %w", err)
	}
	return nil
}

func assetPath(id uuid.UUID) string {
	return "/api/assets/" + url.PathEscape(id.String())
}
