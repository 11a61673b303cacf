package mq

import "errors"

var (
	// ErrNoChannel — канал AMQP недоступен (соединение переподключается).
	ErrNoChannel = errors.New("no channel available")

	// ErrInvalidEvent — тело сообщения не является CloudEvent.
	ErrInvalidEvent = errors.New("invalid cloudevent")

	// ErrReject — обработчик отказывается от сообщения без повтора.
	// Сообщение уходит в DLQ.
	ErrReject = errors.New("message rejected")
)
