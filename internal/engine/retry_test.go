package engine

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithTimeout_Completes(t *testing.T) {
	v, err := WithTimeout(context.Background(), time.Second, "", func(ctx context.Context) (int, error) {
		return 7, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 7 {
		t.Errorf("expected 7, got %d", v)
	}
}

func TestWithTimeout_Expires(t *testing.T) {
	start := time.Now()
	_, err := WithTimeout(context.Background(), 20*time.Millisecond, "slow call", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if err.Error() != "slow call" {
		t.Errorf("expected message 'slow call', got %q", err.Error())
	}
	if time.Since(start) > time.Second {
		t.Error("timeout took too long")
	}
}

func TestWithTimeout_ZeroMeansNoLimit(t *testing.T) {
	v, err := WithTimeout(context.Background(), 0, "", func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Errorf("expected ok, got %q, %v", v, err)
	}
}

func TestWithTimeout_Panic(t *testing.T) {
	_, err := WithTimeout(context.Background(), time.Second, "", func(ctx context.Context) (int, error) {
		panic("boom")
	})
	if !errors.Is(err, ErrPanic) {
		t.Errorf("expected ErrPanic, got %v", err)
	}
}

func TestWithRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	var retried []int

	v, err := WithRetry(context.Background(), RetryOptions{
		Retries: 3,
		OnRetry: func(err error, attempt int) { retried = append(retried, attempt) },
	}, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "done", nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "done" {
		t.Errorf("expected done, got %q", v)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
		t.Errorf("unexpected retry attempts: %v", retried)
	}
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	errLast := errors.New("last")

	_, err := WithRetry(context.Background(), RetryOptions{Retries: 2}, func(ctx context.Context) (int, error) {
		calls++
		if calls == 3 {
			return 0, errLast
		}
		return 0, errors.New("earlier")
	})

	if calls != 3 {
		t.Errorf("expected retries+1 = 3 calls, got %d", calls)
	}
	if !errors.Is(err, errLast) {
		t.Errorf("expected last error, got %v", err)
	}
}

func TestWithRetry_ShouldRetryStops(t *testing.T) {
	calls := 0
	_, _ = WithRetry(context.Background(), RetryOptions{
		Retries:     5,
		ShouldRetry: func(error) bool { return false },
	}, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("fatal")
	})

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestWithRetry_CancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errFail := errors.New("fail")

	_, err := WithRetry(ctx, RetryOptions{
		Retries: 3,
		Delay:   time.Hour,
		OnRetry: func(error, int) { cancel() },
	}, func(ctx context.Context) (int, error) {
		return 0, errFail
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if !errors.Is(err, errFail) {
		t.Errorf("expected wrapped last error, got %v", err)
	}
}

func TestSleep(t *testing.T) {
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
