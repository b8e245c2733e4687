package engine

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout выполняет fn с ограничением по времени.
//
// fn получает производный context, который отменяется при таймауте
// или после возврата. Таймер останавливается на любом пути выхода.
// timeout <= 0 означает отсутствие ограничения.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, message string, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", ErrPanic, r)}
			}
		}()
		v, err := fn(runCtx)
		done <- outcome{value: v, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var zero T
	select {
	case out := <-done:
		return out.value, out.err
	case <-timer.C:
		if message == "" {
			message = fmt.Sprintf("operation timed out after %s", timeout)
		}
		return zero, &TimeoutError{Message: message, Timeout: timeout}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// RetryOptions — параметры повторов.
type RetryOptions struct {
	// Retries — количество повторов после первой попытки.
	Retries int

	// Delay — фиксированная пауза между попытками.
	Delay time.Duration

	// OnRetry вызывается перед каждой паузой с номером неудачной попытки (с 1).
	OnRetry func(err error, attempt int)

	// ShouldRetry решает, имеет ли смысл повторять. nil — повторять всё.
	ShouldRetry func(err error) bool
}

// WithRetry выполняет fn до Retries+1 раз с фиксированной паузой.
// Возвращает результат первой успешной попытки или последнюю ошибку.
func WithRetry[T any](ctx context.Context, opts RetryOptions, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(opts.Retries, 0) + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		if opts.ShouldRetry != nil && !opts.ShouldRetry(err) {
			break
		}

		if opts.OnRetry != nil {
			opts.OnRetry(err, attempt)
		}
		if err := Sleep(ctx, opts.Delay); err != nil {
			return zero, fmt.Errorf("%w: %w", err, lastErr)
		}
	}

	return zero, lastErr
}

// Sleep ждёт d или отмены context.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
