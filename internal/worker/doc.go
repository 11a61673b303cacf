// Package worker выполняет runs, поставленные в очередь.
//
// Поток обработки:
//
//	runs.requested ──► handleRunRequested ──► ProcessRun
//	                                            │ GetByID
//	                                            │ Claim (PENDING → RUNNING)
//	                                            │ runner.Execute (+ retry)
//	                                            │ Update
//	                                            ▼
//	                                     runs.completed
//
// Без RabbitMQ воркер работает в режиме polling: раз в PollInterval
// забирает PENDING runs из БД.
//
// Повтор: если pipeline упал на skill с Retryable=true (идемпотентный
// skill), run выполняется заново до MaxAttempts раз с экспоненциальной
// задержкой. Прочие ошибки не повторяются.
//
//	w := worker.New(worker.Config{
//	    Store:       runRepo,
//	    Runner:      r,
//	    Publisher:   publisher,
//	    Conn:        mqConn,
//	    MaxAttempts: 3,
//	})
//	w.Start(ctx)
//	defer w.Stop()
package worker
