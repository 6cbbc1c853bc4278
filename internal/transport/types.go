package transport

import (
	"context"
	"errors"
)

// ErrDeliveryFailed marks a destination that did not confirm a message.
// The event stays out of the ledger and is retried by the next run.
var ErrDeliveryFailed = errors.New("delivery failed")

// Message is a rich chat notification. It only lives for the duration of
// formatting and delivery.
type Message struct {
	Title       string
	URL         string
	Description string
	Author      Author
	Color       int
	ImageURL    string
}

type Author struct {
	Name    string
	URL     string
	IconURL string
}

// Sender delivers a Message to one destination.
//
// Send returns nil only on confirmed delivery.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	// Name identifies the destination in logs and metrics. It must not leak secrets.
	Name() string
}
