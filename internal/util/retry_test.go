package util

import (
	"context"
	"errors"
	"testing"
)

func TestRetryErrWithContextSucceedsEventually(t *testing.T) {
	attempts := 0
	err := RetryErrWithContext(context.Background(), 5, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryErrWithContextExhausted(t *testing.T) {
	attempts := 0
	wantErr := errors.New("permanent")
	err := RetryErrWithContext(context.Background(), 3, func(context.Context) error {
		attempts++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryErrWithContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := RetryErrWithContext(ctx, 5, func(context.Context) error {
		attempts++
		return errors.New("should not retry")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if attempts != 0 {
		t.Errorf("attempts = %d, want 0 after pre-cancelled context", attempts)
	}
}

func TestRetryWithContextReturnsValue(t *testing.T) {
	got, err := RetryWithContext(context.Background(), 2, func(context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != 42 {
		t.Errorf("got %d", got)
	}
}
