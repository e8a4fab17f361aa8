package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/naveenspark/household/pkg/domain"
)

// ListTransactions returns the caller's transactions, newest first, narrowed by filter.
func (c *Client) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	params := url.Values{}
	if filter.Type != "" {
		params.Set("transaction_type", string(filter.Type))
	}
	if !filter.StartDate.IsZero() {
		params.Set("start_date", filter.StartDate.String())
	}
	if !filter.EndDate.IsZero() {
		params.Set("end_date", filter.EndDate.String())
	}

	path := "/api/transactions"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var txs []domain.Transaction
	if err := c.get(ctx, path, &txs); err != nil {
		return nil, fmt.Errorf("client.ListTransactions: %w", err)
	}
	return txs, nil
}

// GetTransaction fetches a single transaction by ID.
func (c *Client) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var tx domain.Transaction
	if err := c.get(ctx, transactionPath(id), &tx); err != nil {
		return nil, fmt.Errorf("client.GetTransaction: %w", err)
	}
	return &tx, nil
}

// CreateTransaction records an income or expense.
func (c *Client) CreateTransaction(ctx context.Context, in domain.TransactionInput) (*domain.Transaction, error) {
	var created domain.Transaction
	if err := c.post(ctx, "/api/transactions", in, &created); err != nil {
		return nil, fmt.Errorf("client.CreateTransaction: %w", err)
	}
	return &created, nil
}

// UpdateTransaction changes the fields set in patch.
func (c *Client) UpdateTransaction(ctx context.Context, id uuid.UUID, patch domain.TransactionPatch) (*domain.Transaction, error) {
	var updated domain.Transaction
	if err := c.put(ctx, transactionPath(id), patch, &updated); err != nil {
		return nil, fmt.Errorf("client.UpdateTransaction: %w", err)
	}
	return &updated, nil
}

// DeleteTransaction removes a transaction.
func (c *Client) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	if err := c.delete(ctx, transactionPath(id)); err != nil {
		return fmt.Errorf("client.DeleteTransaction: %w", err)
	}
	return nil
}

func transactionPath(id uuid.UUID) string {
	return "/api/transactions/" + url.PathEscape(id.String())
}
