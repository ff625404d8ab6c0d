package queue

import (
	"context"
	"errors"
)

// ErrSubscriptionClosed is returned by Next once the subscription is closed
var ErrSubscriptionClosed = errors.New("subscription closed")

// Message is one raw event delivered by a channel
type Message struct {
	ID      string
	Event   string
	Payload []byte
}

// Channel is a push transport carrying named events
type Channel interface {
	// Subscribe returns once the subscription is established. Only events
	// published after that point are delivered.
	Subscribe(ctx context.Context, event string) (Subscription, error)
	Close() error
}

// Subscription delivers messages in arrival order
type Subscription interface {
	// Next blocks until a message arrives, ctx is done or the subscription
	// is closed.
	Next(ctx context.Context) (Message, error)
	Close() error
}
