// Package notify delivers rendered notification emails.
package notify

import "context"

// Message is one outbound email.
type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string
	HTML    bool
}

// Sender delivers a message to its recipient.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
