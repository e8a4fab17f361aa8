package tui

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/naveenspark/household/internal/identity"
	"github.com/naveenspark/household/internal/session"
	"github.com/naveenspark/household/pkg/client"
	"github.com/naveenspark/household/pkg/domain"
)

// truncStr truncates a string to maxLen runes, appending an ellipsis if needed.
func truncStr(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + "…"
}

// errorText renders an error for inline display. Known kinds get a short
// message and, where there is one, a remediation line.
func errorText(err error) string {
	if err == nil {
		return ""
	}
	var (
		unavailable *client.BackendUnavailableError
		timeout     *client.RequestTimeoutError
		unreachable *client.UnreachableError
		invalid     *domain.ValidationError
		resolution  *session.SessionResolutionTimeoutError
		httpErr     *client.HTTPError
	)
	if provider, ok := identity.AsAuthProviderError(err); ok {
		return provider.Error() + "\n " + provider.Remediation()
	}
	switch {
	case errors.As(err, &invalid):
		return invalid.Error()
	case errors.As(err, &unavailable):
		return unavailable.Error() + "\n " + unavailable.Remediation
	case errors.As(err, &timeout):
		return "request timed out, press r to retry"
	case errors.As(err, &resolution):
		return "could not confirm your session in time"
	case errors.As(err, &unreachable):
		return unreachable.Error()
	case errors.As(err, &httpErr):
		return fmt.Sprintf("%s (HTTP %d)", httpErr.Message, httpErr.StatusCode)
	}
	return err.Error()
}

// shortID returns the first block of a UUID string.
func shortID(s string) string {
	if i := strings.IndexByte(s, '-'); i > 0 {
		return s[:i]
	}
	return s
}

// padRight pads s with spaces to width display cells.
func padRight(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}
