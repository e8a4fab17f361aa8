package client

import (
	"context"
	"fmt"
	"net/http"
)

// Health is the API liveness response.
type Health struct {
	Status string `json:"status"`
}

// Health calls the unauthenticated liveness endpoint.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	resp, err := c.Request(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, fmt.Errorf("client.Health: %w", err)
	}
	h := &Health{Status: "ok"}
	if resp.Kind == KindJSON {
		if err := resp.Decode(h); err != nil {
			return nil, fmt.Errorf("client.Health: %w", err)
		}
	}
	return h, nil
}
