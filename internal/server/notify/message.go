// Package notify delivers outbound email notifications. Delivery is
// best-effort: callers hand messages to a Dispatcher and move on.
package notify

import "context"

// Message is one outbound notification.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Sender delivers a message synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
