// Package telemetry обеспечивает наблюдаемость сервисов Conduit.
//
// Логи: SetupLogger настраивает slog по LOG_LEVEL и LOG_FORMAT, логгер
// run передаётся через context (WithLogger, FromContext).
//
// Метрики: Metrics реализует pipeline.Observer и считает шаги по видам
// (transformer, skill, branch, parallel, chain), а также завершённые runs.
// Сервисы отдают их на /metrics.
package telemetry
