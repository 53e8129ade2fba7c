package mail

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

// ErrRelayUnavailable is returned while the breaker is open.
var ErrRelayUnavailable = errors.New("mail relay unavailable")

// BreakerSettings configures BreakerSender.
type BreakerSettings struct {
	// MaxFailures consecutive failures trip the breaker. Defaults to 5.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before probing. Defaults to 30s.
	OpenTimeout time.Duration
}

// BreakerSender wraps a Sender with a circuit breaker.
type BreakerSender struct {
	next    Sender
	breaker *gobreaker.CircuitBreaker[any]
}

// NewBreakerSender guards next with a breaker named "mail".
func NewBreakerSender(next Sender, st BreakerSettings) *BreakerSender {
	if st.MaxFailures == 0 {
		st.MaxFailures = 5
	}
	if st.OpenTimeout <= 0 {
		st.OpenTimeout = 30 * time.Second
	}
	settings := gobreaker.Settings{
		Name:        "mail",
		MaxRequests: 1,
		Timeout:     st.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= st.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	}
	return &BreakerSender{next: next, breaker: gobreaker.NewCircuitBreaker[any](settings)}
}

// Send delegates to the wrapped sender unless the breaker is open.
func (s *BreakerSender) Send(ctx context.Context, m Message) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.next.Send(ctx, m)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrRelayUnavailable
	}
	return err
}

// State exposes the breaker state for health reporting.
func (s *BreakerSender) State() gobreaker.State {
	return s.breaker.State()
}
