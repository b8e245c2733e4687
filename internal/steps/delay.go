package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/nodeflow/internal/node"
)

// maxDelay — верхняя граница задержки одной ноды.
const maxDelay = time.Hour

// DelayExecutor — исполнитель ноды delay.
//
// Приостанавливает выполнение на указанное время.
// Отмена context прерывает ожидание.
//
// Конфигурация:
//
//	{
//	    "durationSec": 10,   // задержка в секундах
//	    // или
//	    "duration": 5000     // задержка в миллисекундах
//	}
type DelayExecutor struct{}

// NewDelayExecutor создаёт исполнитель.
func NewDelayExecutor() *DelayExecutor {
	return &DelayExecutor{}
}

// Type возвращает тип ноды.
func (e *DelayExecutor) Type() string {
	return node.TypeDelay
}

// Validate проверяет, что задана длительность.
func (e *DelayExecutor) Validate(config any) node.ValidationResult {
	cfg, res := node.ValidateConfig[node.DelayConfig](config)
	if !res.Valid {
		return res
	}
	d, err := delayDuration(cfg)
	if err != nil {
		return node.Invalid(err.Error())
	}
	if d > maxDelay {
		return node.Invalid(fmt.Sprintf("delay must be <= %s", maxDelay))
	}
	return res
}

// Execute выполняет задержку.
func (e *DelayExecutor) Execute(ctx context.Context, nc *node.Context) *node.Result {
	rec := node.Begin()

	cfg, nerr := decodeConfig(nc, node.DelayConfig{})
	if nerr != nil {
		return rec.Fail(nerr, nil)
	}

	duration, err := delayDuration(cfg)
	if err != nil {
		return rec.Fail(node.NewError(node.CodeInvalidConfig, err.Error(), nil, false), nil)
	}
	if duration > maxDelay {
		duration = maxDelay
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return rec.Fail(node.NewError(node.CodeDelayFailed, "delay cancelled: "+ctx.Err().Error(), nil, true), nil)
	case <-timer.C:
		rec.Info(fmt.Sprintf("waited %s", duration), nil)
		return rec.Succeed(map[string]any{
			"durationMs": duration.Milliseconds(),
		})
	}
}

// delayDuration: сначала секунды, затем миллисекунды.
func delayDuration(cfg node.DelayConfig) (time.Duration, error) {
	if cfg.Seconds > 0 {
		return time.Duration(cfg.Seconds) * time.Second, nil
	}
	if cfg.Duration > 0 {
		return millis(cfg.Duration), nil
	}
	return 0, fmt.Errorf("durationSec or duration is required")
}
