// Package cli реализует инструмент командной строки nodeflow.
//
// # Обзор
//
// CLI — клиентская утилита для nodeflow API. Работает через HTTP,
// типы ответов продублированы в client.go. Флаг --local у команд node
// выполняет ноду в процессе через LocalRunner, без сервера.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для API. Инкапсулирует запросы, разбор ответов
// (DataResponse, ListResponse, ErrorResponse) и чтение SSE-потока
// при потоковом выполнении ноды.
//
//	client := cli.NewClient("http://localhost:8080")
//	res, err := client.Execute("template", cli.ExecuteRequest{...})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: nodeflow catalog list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - catalog: list, extensions, add, remove
//   - executors
//   - node: run, validate
//   - version: compare, check
//
// Каждая группа создаётся через фабричную функцию (NewCatalogCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
