package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestAsyncEffects_DetachedFromCaller(t *testing.T) {
	e := &AsyncEffects{Timeout: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sawErr atomic.Value
	e.Go(ctx, "probe", func(ctx context.Context) error {
		sawErr.Store(ctx.Err() == nil)
		return nil
	})
	e.Wait()
	if ok, _ := sawErr.Load().(bool); !ok {
		t.Fatalf("effect context should outlive the canceled caller")
	}
}

func TestEffects_FailureAndPanicAreContained(t *testing.T) {
	var ran atomic.Int32
	InlineEffects{}.Go(context.Background(), "err", func(context.Context) error {
		ran.Add(1)
		return errors.New("boom")
	})
	InlineEffects{}.Go(context.Background(), "panic", func(context.Context) error {
		ran.Add(1)
		panic("boom")
	})

	e := &AsyncEffects{}
	e.Go(context.Background(), "panic", func(context.Context) error {
		ran.Add(1)
		panic("boom")
	})
	e.Wait()

	if ran.Load() != 3 {
		t.Fatalf("ran = %d", ran.Load())
	}
}
