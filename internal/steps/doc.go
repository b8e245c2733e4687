// Package steps содержит исполнители встроенных типов нод.
//
// # Обзор
//
// Каждый исполнитель реализует node.Executor:
//
//	type Executor interface {
//	    Type() string
//	    Execute(ctx context.Context, nc *node.Context) *node.Result
//	}
//
// Execute никогда не возвращает ошибку и не паникует наружу: любая
// ошибка превращается в Result с Success=false и заполненным node.Error.
// Поле Error.Retryable — подсказка оркестратору. Повторы внутри ноды
// выполняет только LLM (retryCount).
//
// Большинство исполнителей реализуют также node.Validator для статической
// проверки конфига до запуска.
//
// # Registry
//
// Registry разрешает тип ноды в исполнитель:
//
//	reg := steps.NewRegistry(steps.Options{Observer: metrics})
//	res := reg.Execute(ctx, &node.Context{
//	    NodeID:   "n1",
//	    NodeType: "template",
//	    Config:   map[string]any{"template": "Hello, {{name}}"},
//	    Inputs:   map[string]any{"name": "Ada"},
//	})
//
// Встроенные типы и алиасы (llm-chat, http-request, if, foreach, ...)
// зашиты в Registry. Register перекрывает любой тип, включая встроенный.
//
// # Типы нод
//
//   - llm.go, llm_stream.go — llm: chat completions, потоковый режим через SSE
//   - http.go      — http: запрос с шаблонами, аутентификацией и таймаутом
//   - logic.go     — condition: группы сравнений с логикой and/or
//   - loop.go      — loop: forEach, while, count с ограничением maxIterations
//   - data.go      — variable, transform, merge
//   - text.go      — template, regex, split-join
//   - io.go        — input, output
//   - delay.go     — delay
//   - schedule.go  — schedule: следующий запуск по cron
//
// # Файлы пакета
//
//   - step.go      — общие помощники исполнителей
//   - registry.go  — Registry
package steps
