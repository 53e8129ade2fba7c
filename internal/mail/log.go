package mail

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogSender writes messages to the logger instead of delivering them. It is
// selected when no SMTP host is configured.
type LogSender struct {
	Logger *zerolog.Logger
}

// Send logs the envelope and body at info level.
func (s LogSender) Send(ctx context.Context, m Message) error {
	lg := s.Logger
	if lg == nil {
		lg = &log.Logger
	}
	lg.Info().
		Str("to", m.To).
		Str("subject", m.Subject).
		Str("body", m.Body).
		Msg("mail (log sender)")
	return nil
}
