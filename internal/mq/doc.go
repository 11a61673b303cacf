// Package mq — транспорт runs через RabbitMQ.
//
// Каждое сообщение — CloudEvent в structured mode
// (application/cloudevents+json).
//
// Топология:
//
//	conduit.runs (direct)
//	├── runs.requested [routing: requested]  consumer: worker, DLQ: dlq.runs
//	└── runs.completed [routing: completed]  события завершения
//	conduit.dlq (direct)
//	└── dlq.runs [routing: runs]
//
// Типы событий: conduit.run.requested, conduit.run.completed.
package mq
