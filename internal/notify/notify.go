// Package notify defines the mail dispatch collaborator. The verification
// core depends only on the Dispatcher interface; which transport actually
// delivers the message is wiring.
package notify

import "context"

// Message is a rendered email ready for delivery.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Dispatcher sends a message. Delivery failures must be returned, never
// swallowed: the caller decides what a failed confirmation email means.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}
