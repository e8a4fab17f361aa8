package identity

import (
	"context"
	"errors"
	"time"

	"github.com/naveenspark/household/internal/logging"
)

// RunAutoRefresh refreshes the stored token shortly before it expires until
// ctx is cancelled. When the provider refuses the refresh token the stored
// token is cleared and SignedOut is published.
func (c *Client) RunAutoRefresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Debug("auto refresh started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("auto refresh stopped")
			return
		case <-ticker.C:
			c.refreshIfExpiring(ctx, refreshMargin(interval))
		}
	}
}

// refreshMargin is how close to expiry a token must be before it is refreshed.
// Two ticks of slack means a token never expires between checks.
func refreshMargin(interval time.Duration) time.Duration {
	if m := 2 * interval; m > time.Minute {
		return m
	}
	return time.Minute
}

func (c *Client) refreshIfExpiring(ctx context.Context, margin time.Duration) {
	tok, err := c.store.Read()
	if err != nil {
		c.logger.Warn("auto refresh: read token", logging.FieldError, err)
		return
	}
	if tok == nil || tok.RefreshToken == "" {
		return
	}
	exp := expiryOf(tok)
	if exp.IsZero() || exp.Sub(c.now()) > margin {
		return
	}

	_, err = c.Refresh(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrTokenRejected):
		c.logger.Info("refresh token rejected, signing out", logging.FieldError, err)
		if err := c.store.Clear(); err != nil {
			c.logger.Warn("auto refresh: clear token", logging.FieldError, err)
		}
		c.publish(Event{Kind: SignedOut})
	case ctx.Err() != nil:
	default:
		c.logger.Warn("auto refresh failed", logging.FieldError, err)
	}
}
