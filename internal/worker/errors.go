package worker

import (
	"errors"
	"fmt"

	"github.com/shaiso/nodeflow/internal/mq"
)

// Ошибки воркера.
var (
	// ErrInvalidRequest — запрос нельзя выполнить (нет типа ноды и т.п.).
	// Оборачивает mq.ErrPermanent: сообщение уходит в DLQ без повтора.
	ErrInvalidRequest = fmt.Errorf("invalid execution request: %w", mq.ErrPermanent)

	// ErrPublishFailed — результат не удалось опубликовать.
	ErrPublishFailed = errors.New("publish result failed")

	// ErrWorkerStopped — воркер остановлен.
	ErrWorkerStopped = errors.New("worker stopped")
)
