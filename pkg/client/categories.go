package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/naveenspark/household/pkg/domain"
)

// ListCategories returns the categories for one transaction type.
func (c *Client) ListCategories(ctx context.Context, typ domain.TransactionType) ([]domain.Category, error) {
	params := url.Values{}
	params.Set("type", string(typ))

	var cats []domain.Category
	if err := c.get(ctx, "/api/categories?"+params.Encode(), &cats); err != nil {
		return nil, fmt.Errorf("client.ListCategories: %w", err)
	}
	return cats, nil
}

// ListAllCategories returns every category of both types.
func (c *Client) ListAllCategories(ctx context.Context) ([]domain.Category, error) {
	var cats []domain.Category
	if err := c.get(ctx, "/api/categories/all", &cats); err != nil {
		return nil, fmt.Errorf("client.ListAllCategories: %w", err)
	}
	return cats, nil
}
