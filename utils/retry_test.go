package utils

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Logger: NewNopLogger()}
	calls := 0

	err := r.Do(context.Background(), "flaky", func() error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestRetryGivesUp(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, Logger: NewNopLogger()}
	boom := errors.New("boom")
	calls := 0

	err := r.Do(context.Background(), "always-fails", func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error should wrap the last failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "after 2 attempts") {
		t.Errorf("error message: got %q", err.Error())
	}
	if calls != 2 {
		t.Errorf("calls: got %d, want 2", calls)
	}
}

func TestRetrySingleAttempt(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 0}
	boom := errors.New("boom")
	calls := 0

	err := r.Do(context.Background(), "once", func() error {
		calls++
		return boom
	})
	if err != boom {
		t.Errorf("single attempt should return the error unchanged, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestRetryPermanentStops(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond}
	boom := errors.New("bad page")
	calls := 0

	err := r.Do(context.Background(), "permanent", func() error {
		calls++
		return Permanent(boom)
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want %v", err, boom)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}
