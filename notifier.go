package shopAuth

import "context"

// Notifier delivers a text message to a destination address, typically an
// SMS to a phone number. Send is synchronous and may fail.
type Notifier interface {
	Send(ctx context.Context, to, body string) error
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(ctx context.Context, to, body string) error

// Send calls f.
func (f NotifierFunc) Send(ctx context.Context, to, body string) error {
	return f(ctx, to, body)
}
