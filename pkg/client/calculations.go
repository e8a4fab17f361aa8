package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/naveenspark/household/pkg/domain"
)

// GetSummary returns total assets, total liabilities and net worth.
func (c *Client) GetSummary(ctx context.Context) (*domain.SummarySnapshot, error) {
	var s domain.SummarySnapshot
	if err := c.get(ctx, "/api/calculations/summary", &s); err != nil {
		return nil, fmt.Errorf("client.GetSummary: %w", err)
	}
	return &s, nil
}

// GetMonthly returns income and expense totals for a month.
// Zero year or month lets the server pick the current one.
func (c *Client) GetMonthly(ctx context.Context, year, month int) (*domain.MonthlySnapshot, error) {
	params := url.Values{}
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}
	if month > 0 {
		params.Set("month", strconv.Itoa(month))
	}

	path := "/api/calculations/monthly"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var m domain.MonthlySnapshot
	if err := c.get(ctx, path, &m); err != nil {
		return nil, fmt.Errorf("client.GetMonthly: %w", err)
	}
	return &m, nil
}
