package refresh

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRun_ImmediateFirstTick(t *testing.T) {
	r := NewRunner()
	var calls atomic.Int32

	err := r.Run(context.Background(), time.Hour, func(_ context.Context, tick int) error {
		calls.Add(1)
		if tick != 0 {
			t.Errorf("tick = %d, want 0", tick)
		}
		r.Stop()
		return nil
	})

	if !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestRun_TicksUntilContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewRunner()
	err := r.Run(ctx, 10*time.Millisecond, func(_ context.Context, tick int) error {
		if tick == 3 {
			cancel()
		}
		return nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRun_StopWithinOnePeriod(t *testing.T) {
	r := NewRunner()
	interval := 50 * time.Millisecond

	done := make(chan error, 1)
	go func() {
		done <- r.Run(context.Background(), interval, func(context.Context, int) error { return nil })
	}()

	time.Sleep(20 * time.Millisecond)
	stoppedAt := time.Now()
	r.Stop()

	select {
	case err := <-done:
		if !errors.Is(err, ErrStopped) {
			t.Fatalf("expected ErrStopped, got %v", err)
		}
		if waited := time.Since(stoppedAt); waited > interval+200*time.Millisecond {
			t.Errorf("stop took %v", waited)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestRun_ErrorEndsLoop(t *testing.T) {
	boom := errors.New("boom")
	var calls int

	err := NewRunner().Run(context.Background(), time.Millisecond, func(_ context.Context, tick int) error {
		calls++
		if tick == 1 {
			return boom
		}
		return nil
	})

	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRun_AlreadyStopped(t *testing.T) {
	r := NewRunner()
	r.Stop()
	r.Stop()

	called := false
	err := r.Run(context.Background(), time.Millisecond, func(context.Context, int) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrStopped) || called {
		t.Fatalf("stopped runner must not tick: err=%v called=%v", err, called)
	}
}

func TestClampInterval(t *testing.T) {
	tests := []struct {
		in, want time.Duration
	}{
		{0, DefaultInterval},
		{500 * time.Millisecond, MinInterval},
		{10 * time.Second, 10 * time.Second},
		{time.Minute, MaxInterval},
	}
	for _, tc := range tests {
		if got := ClampInterval(tc.in, MinInterval, MaxInterval, DefaultInterval); got != tc.want {
			t.Errorf("ClampInterval(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
