package core

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestRetryBackoff(t *testing.T) {
	p := RetryPolicy{BaseBackoff: 2 * time.Second, MaxBackoff: 30 * time.Second}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 2 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{60, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := retryBackoff(tt.attempt, p); got != tt.want {
			t.Errorf("retryBackoff(%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}

func TestNewReconciler_NormalizesPolicy(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	r := NewReconciler(nil, logger, RetryPolicy{}).(*reconciler)
	if r.policy.BaseBackoff != time.Second {
		t.Errorf("expected default base backoff 1s, got %s", r.policy.BaseBackoff)
	}
	if r.policy.MaxBackoff != time.Second {
		t.Errorf("expected max backoff raised to base, got %s", r.policy.MaxBackoff)
	}
}

func TestReconciler_MarkStaleWakesRunOnce(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	r := NewReconciler(nil, logger, RetryPolicy{}).(*reconciler)

	if r.Stale() {
		t.Fatal("new reconciler must not be stale")
	}
	r.markStale()
	r.markStale() // must not block on the full wake channel

	if !r.Stale() {
		t.Error("expected stale after markStale")
	}
	if len(r.wake) != 1 {
		t.Errorf("expected exactly one pending wake signal, got %d", len(r.wake))
	}
}

func TestReconciler_RunStopsOnCancel(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	r := NewReconciler(nil, logger, RetryPolicy{BaseBackoff: time.Hour}).(*reconciler)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	// Stale with a one-hour backoff: Run must be parked in the backoff wait when cancelled.
	r.markStale()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestReconcileAfterCommit_NilReconciler(t *testing.T) {
	// Must be a no-op rather than a panic.
	reconcileAfterCommit(context.Background(), nil)
}
