package session

import (
	"crypto/sha256"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// Callback is the data the identity provider appends to the redirect fragment.
type Callback struct {
	AccessToken      string
	RefreshToken     string
	TokenType        string
	ExpiresIn        int
	Error            string
	ErrorDescription string
}

// HasToken reports whether the callback carries an access token.
func (c *Callback) HasToken() bool {
	return c != nil && c.AccessToken != ""
}

// ParseCallback extracts redirect data from location's fragment. It returns
// the location with the fragment removed, or cb == nil when the fragment
// holds neither a token nor a provider error.
func ParseCallback(location string) (stripped string, cb *Callback, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return location, nil, err
	}
	frag := u.EscapedFragment()
	if frag == "" {
		return location, nil, nil
	}
	values, err := url.ParseQuery(frag)
	if err != nil {
		return location, nil, nil
	}
	cb = &Callback{
		AccessToken:      values.Get("access_token"),
		RefreshToken:     values.Get("refresh_token"),
		TokenType:        values.Get("token_type"),
		Error:            values.Get("error"),
		ErrorDescription: values.Get("error_description"),
	}
	if cb.AccessToken == "" && cb.Error == "" {
		return location, nil, nil
	}
	cb.ExpiresIn, _ = strconv.Atoi(values.Get("expires_in")) //nolint:errcheck // zero when absent

	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), cb, nil
}

// canonicalTarget returns location moved onto the canonical host, keeping
// path, query and fragment. ok is false when no move is needed.
func canonicalTarget(location, canonical string) (string, bool) {
	if canonical == "" {
		return "", false
	}
	cu, err := url.Parse(canonical)
	if err != nil || cu.Host == "" {
		return "", false
	}
	lu, err := url.Parse(location)
	if err != nil {
		return "", false
	}
	if strings.EqualFold(lu.Host, cu.Host) {
		return "", false
	}
	lu.Scheme = cu.Scheme
	lu.Host = cu.Host
	return lu.String(), true
}

// Ledger remembers which redirect tokens have been exchanged so that a reload
// or a second delivery never submits the same token twice. It keeps only
// digests. A Ledger may be shared by successive Managers.
type Ledger struct {
	mu   sync.Mutex
	seen map[[sha256.Size]byte]struct{}
}

// NewLedger returns an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{seen: make(map[[sha256.Size]byte]struct{})}
}

// Claim records token and reports whether it was new.
func (l *Ledger) Claim(token string) bool {
	sum := sha256.Sum256([]byte(token))
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[sum]; ok {
		return false
	}
	l.seen[sum] = struct{}{}
	return true
}
