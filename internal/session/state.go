package session

import "github.com/naveenspark/household/pkg/domain"

// Phase is the bootstrap progress of a Manager.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDetectingCallback
	PhaseExchangingToken
	PhaseResolved
	// PhaseRedirected is terminal: the callback landed on a non-canonical
	// host and was forwarded there unprocessed.
	PhaseRedirected
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDetectingCallback:
		return "detecting_callback"
	case PhaseExchangingToken:
		return "exchanging_token"
	case PhaseResolved:
		return "resolved"
	case PhaseRedirected:
		return "redirected"
	default:
		return "unknown"
	}
}

// Auth is whether a user is signed in.
type Auth int

const (
	Unauthenticated Auth = iota
	Authenticated
)

func (a Auth) String() string {
	if a == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// State is a snapshot of the session. User is set only when Auth is Authenticated.
type State struct {
	Phase Phase
	Auth  Auth
	User  *domain.AuthenticatedUser
	// Checking is true while a background session query may still upgrade
	// an optimistic Unauthenticated state.
	Checking bool
	// Err is the most recent resolution or sign-in failure, for display.
	Err error
}

// Resolved reports whether bootstrap has reached a decidable state.
func (s State) Resolved() bool {
	return s.Phase == PhaseResolved || s.Phase == PhaseRedirected
}

func (s State) clone() State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
