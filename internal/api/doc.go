// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go          — Handler с DI (хранилище runs, runner, publisher, logger)
//   - routes.go           — регистрация маршрутов
//   - middleware.go       — middleware (logging, recovery, metrics)
//   - response.go         — унифицированные JSON-ответы и обработка ошибок
//   - dto.go              — Data Transfer Objects (request/response)
//   - pipeline_handler.go — обработчики для /pipelines
//   - run_handler.go      — обработчики для /runs
//   - catalog_handler.go  — transformer'ы, skill и JSON Schema
//
// Определения pipeline загружаются из каталога при старте и через API
// не изменяются.
package api
