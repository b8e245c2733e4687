// Package api содержит HTTP API сервер исполнения нод.
//
// Структура:
//   - handler.go             — Handler с DI (реестр, каталог, publisher, logger)
//   - routes.go              — регистрация маршрутов
//   - middleware.go          — middleware (logging, recovery, metrics, rate limit)
//   - response.go            — унифицированные JSON-ответы и обработка ошибок
//   - dto.go                 — Data Transfer Objects (request/response)
//   - catalog_handler.go     — каталог нод и расширения
//   - custom_node_handler.go — пользовательские ноды и их модерация
//   - node_handler.go        — выполнение и проверка нод, SSE-стриминг
//   - version_handler.go     — сравнение версий и совместимость
//
// Выполнение синхронное, если не запрошено иное: async-запросы уходят
// в очередь nodes.execute и обрабатываются worker.
package api
