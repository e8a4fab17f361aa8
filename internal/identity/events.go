package identity

import (
	"github.com/naveenspark/household/pkg/domain"
)

// EventKind is a provider session transition.
type EventKind int

const (
	SignedIn EventKind = iota + 1
	SignedOut
	TokenRefreshed
)

func (k EventKind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	case TokenRefreshed:
		return "token_refreshed"
	default:
		return "unknown"
	}
}

// Event is one session-change notification. Session is nil for SignedOut.
type Event struct {
	Kind    EventKind
	Session *domain.Session
}

const eventBuffer = 8

// Subscribe returns a stream of session-change events and a function that
// ends the subscription and closes the channel. A subscriber that falls
// behind loses its oldest undelivered events.
func (c *Client) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, eventBuffer)

	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subMu.Unlock()

	done := false
	return ch, func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if done {
			return
		}
		done = true
		delete(c.subs, id)
		close(ch)
	}
}

func (c *Client) publish(ev Event) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
