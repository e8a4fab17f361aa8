package identity

import (
	"errors"
	"fmt"
)

// AuthProviderError is a sign-in failure caused by identity provider configuration.
// It is fatal to the sign-in attempt and carries text telling the user how to fix it.
type AuthProviderError interface {
	error
	Remediation() string
}

// ProviderConfigError reports a disabled or unknown sign-in provider.
type ProviderConfigError struct {
	Provider string
	Detail   string
}

func (e *ProviderConfigError) Error() string {
	return fmt.Sprintf("sign-in provider %q is not available: %s", e.Provider, e.Detail)
}

// Remediation explains how to enable the provider.
func (e *ProviderConfigError) Remediation() string {
	return fmt.Sprintf("Enable the %q provider in the identity service dashboard "+
		"(Authentication > Providers), or set HOUSEHOLD_AUTH_PROVIDER to an enabled one.", e.Provider)
}

// RedirectMismatchError reports that the provider rejected the callback address.
type RedirectMismatchError struct {
	RedirectTarget string
	Detail         string
}

func (e *RedirectMismatchError) Error() string {
	return fmt.Sprintf("redirect address %s was rejected: %s", e.RedirectTarget, e.Detail)
}

// Remediation explains how to allow the callback address.
func (e *RedirectMismatchError) Remediation() string {
	return fmt.Sprintf("Add %s to the allowed redirect URLs of the identity service "+
		"(Authentication > URL Configuration) and to the OAuth client's authorized redirect URIs.", e.RedirectTarget)
}

// AsAuthProviderError returns the AuthProviderError in err's chain, if any.
func AsAuthProviderError(err error) (AuthProviderError, bool) {
	var pc *ProviderConfigError
	if errors.As(err, &pc) {
		return pc, true
	}
	var rm *RedirectMismatchError
	if errors.As(err, &rm) {
		return rm, true
	}
	return nil, false
}

// ErrTokenRejected is returned when the provider refuses an access or refresh token.
var ErrTokenRejected = errors.New("token rejected by identity provider")

// StatusError is an unexpected non-2xx response from the identity provider.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("identity provider HTTP %d: %s", e.StatusCode, e.Message)
}
