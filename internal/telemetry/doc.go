// Package telemetry — логирование и метрики nodeflow.
//
// Логи пишутся через slog; формат и уровень задают LOG_FORMAT и LOG_LEVEL.
// Логгер выполнения несёт execution_id, node_id и node_type.
//
// Metrics наблюдает за выполнением нод через steps.Observer,
// HTTPMetrics — за запросами API. Обе структуры регистрируются
// в переданном prometheus.Registerer и отдаются на /metrics.
package telemetry
