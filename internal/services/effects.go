package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var effectFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "booking_effect_failures_total",
		Help: "Secondary effects (notifications, job enqueue) that failed after the primary write succeeded.",
	},
	[]string{"effect"},
)

func init() {
	prometheus.MustRegister(effectFailures)
}

// EffectRunner executes secondary effects of a successful operation. An
// effect's failure is logged and counted; it never changes the outcome of the
// operation that triggered it.
type EffectRunner interface {
	Go(ctx context.Context, name string, fn func(ctx context.Context) error)
}

// AsyncEffects runs each effect on its own goroutine with a context detached
// from the request, so the response does not wait for it and a client
// disconnect does not abort it.
type AsyncEffects struct {
	// Timeout bounds each effect. Zero means no limit.
	Timeout time.Duration

	wg sync.WaitGroup
}

// Go schedules fn and returns immediately.
func (e *AsyncEffects) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ectx := context.WithoutCancel(ctx)
		if e.Timeout > 0 {
			var cancel context.CancelFunc
			ectx, cancel = context.WithTimeout(ectx, e.Timeout)
			defer cancel()
		}
		runEffect(ectx, name, fn)
	}()
}

// Wait blocks until every scheduled effect has returned. Used on shutdown.
func (e *AsyncEffects) Wait() {
	e.wg.Wait()
}

// InlineEffects runs effects synchronously on the caller's goroutine.
type InlineEffects struct{}

// Go runs fn before returning.
func (InlineEffects) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	runEffect(ctx, name, fn)
}

func runEffect(ctx context.Context, name string, fn func(ctx context.Context) error) {
	var err error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
			}
		}()
		err = fn(ctx)
	}()
	if err != nil {
		effectFailures.WithLabelValues(name).Inc()
		log.Error().Err(err).Str("effect", name).Msg("secondary effect failed")
	}
}
