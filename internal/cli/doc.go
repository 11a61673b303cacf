// Package cli реализует инструмент командной строки Conduit.
//
// # Обзор
//
// Команды делятся на две группы:
//   - локальные (run, validate, transformers, skills) — работают с файлами
//     определений в текущем процессе, сервер не нужен;
//   - серверные (pipeline, enqueue, runs) — ходят в Conduit API по HTTP.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Conduit API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	run, err := client.CreateRun("normalize", cli.CreateRunRequest{Input: "x"})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: conduit run p.yaml --json | jq .output
//
// ## Commands
//
// Каждая команда создаётся фабричной функцией (NewRunCmd и т.д.),
// принимающей замыкания для ленивого создания зависимостей после
// парсинга PersistentFlags: clientFn для серверных, localFn для локальных.
package cli
