package worker

import "time"

// RetryPolicy — повтор нод с Retryable ошибкой внутри воркера.
// Нулевое значение — одна попытка.
type RetryPolicy struct {
	// MaxAttempts — общее число попыток, включая первую.
	MaxAttempts int

	// Backoff — "fixed" или "exponential".
	Backoff string

	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func (p RetryPolicy) attempts() int {
	return max(p.MaxAttempts, 1)
}

// backoff вычисляет задержку перед попыткой attempt+1.
//
//	fixed:       initialDelay
//	exponential: initialDelay * 2^(attempt-1), не больше maxDelay
func (p RetryPolicy) backoff(attempt int) time.Duration {
	initial := p.InitialDelay
	if initial <= 0 {
		initial = time.Second
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	delay := initial
	if p.Backoff == "exponential" {
		for i := 1; i < attempt && delay < maxDelay; i++ {
			delay *= 2
		}
	}
	return min(delay, maxDelay)
}
