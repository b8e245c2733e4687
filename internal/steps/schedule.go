package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/nodeflow/internal/node"
)

// cronParser — стандартный 5-польный формат и дескрипторы (@hourly, @every 5m).
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ScheduleExecutor — исполнитель ноды schedule.
//
// Нода-триггер: сама ничего не ждёт, а вычисляет ближайшее время
// срабатывания по cron выражению в заданной временной зоне.
//
// Outputs:
//
//	{
//	    "cron": "0 9 * * 1-5",
//	    "timezone": "Europe/Moscow",
//	    "triggeredAt": "2024-01-15T06:00:00Z",
//	    "nextRun": "2024-01-16T06:00:00Z"
//	}
type ScheduleExecutor struct {
	now func() time.Time
}

// NewScheduleExecutor создаёт исполнитель.
func NewScheduleExecutor() *ScheduleExecutor {
	return &ScheduleExecutor{now: time.Now}
}

// Type возвращает тип ноды.
func (e *ScheduleExecutor) Type() string {
	return node.TypeSchedule
}

// Validate проверяет cron выражение и временную зону.
func (e *ScheduleExecutor) Validate(config any) node.ValidationResult {
	cfg, res := node.ValidateConfig[node.ScheduleConfig](config)
	if !res.Valid {
		return res
	}
	if _, _, err := parseSchedule(cfg); err != nil {
		return node.Invalid(err.Error())
	}
	return res
}

// Execute вычисляет следующий запуск.
func (e *ScheduleExecutor) Execute(ctx context.Context, nc *node.Context) *node.Result {
	rec := node.Begin()

	cfg, nerr := decodeConfig(nc, node.ScheduleConfig{Timezone: "UTC"})
	if nerr != nil {
		return rec.Fail(nerr, nil)
	}

	sched, loc, err := parseSchedule(cfg)
	if err != nil {
		return rec.Fail(node.NewError(node.CodeScheduleFailed, err.Error(), nil, false), nil)
	}

	now := e.now
	if now == nil {
		now = time.Now
	}
	triggeredAt := now().In(loc)
	next := sched.Next(triggeredAt)
	if next.IsZero() {
		return rec.Fail(node.Errorf(node.CodeScheduleFailed, "cron %q never fires", cfg.Cron), nil)
	}

	rec.Info(fmt.Sprintf("next run at %s", next.Format(time.RFC3339)), nil)
	return rec.Succeed(map[string]any{
		"cron":        cfg.Cron,
		"timezone":    loc.String(),
		"triggeredAt": triggeredAt.Format(time.RFC3339),
		"nextRun":     next.Format(time.RFC3339),
	})
}

func parseSchedule(cfg node.ScheduleConfig) (cron.Schedule, *time.Location, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
		}
		loc = l
	}

	sched, err := cronParser.Parse(cfg.Cron)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid cron %q: %w", cfg.Cron, err)
	}
	return sched, loc, nil
}
