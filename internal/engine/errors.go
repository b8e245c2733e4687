package engine

import (
	"errors"
	"time"
)

// Ошибки работы с путями.
var (
	// ErrEmptyPath — пустой путь при записи.
	ErrEmptyPath = errors.New("empty path")

	// ErrPathConflict — промежуточный элемент пути не является контейнером.
	ErrPathConflict = errors.New("path conflicts with existing value")

	// ErrNilRoot — запись в nil map.
	ErrNilRoot = errors.New("nil root object")
)

// Ошибки выполнения.
var (
	// ErrTimeout — операция не уложилась в таймаут.
	ErrTimeout = errors.New("operation timed out")

	// ErrPanic — операция завершилась паникой.
	ErrPanic = errors.New("operation panicked")
)

// TimeoutError — ошибка таймаута с сообщением вызывающей стороны.
type TimeoutError struct {
	Message string
	Timeout time.Duration
}

// Error реализует интерфейс error.
func (e *TimeoutError) Error() string {
	return e.Message
}

// Unwrap позволяет проверять errors.Is(err, ErrTimeout).
func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// IsTimeout проверяет, является ли ошибка таймаутом.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
