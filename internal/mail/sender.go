// Package mail delivers outbound email for the booking backend.
//
// Senders are small and composable: SMTPSender talks to a relay through
// gomail, LogSender only logs (local development and tests), and
// BreakerSender guards any Sender with a circuit breaker so a dead relay
// fails jobs quickly instead of tying up the worker. CancellationHandler is
// the queue handler that renders and sends the cancellation notice.
package mail

import "context"

// Message is a rendered email.
type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string
	// HTML selects text/html instead of text/plain for Body.
	HTML bool
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}
