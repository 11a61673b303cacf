package mq

import (
	"encoding/json"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// Типы событий (атрибут CloudEvents "type").
const (
	EventRunRequested = "conduit.run.requested"
	EventRunCompleted = "conduit.run.completed"
)

// RunRequestedPayload — данные события о run, ожидающем выполнения.
type RunRequestedPayload struct {
	RunID    uuid.UUID `json:"run_id"`
	Pipeline string    `json:"pipeline"`
}

// RunCompletedPayload — данные события о завершённом run.
type RunCompletedPayload struct {
	RunID      uuid.UUID `json:"run_id"`
	Pipeline   string    `json:"pipeline"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
}

// NewEvent создаёт CloudEvent с JSON данными.
// subject — идентификатор run, source — компонент-отправитель.
func NewEvent(source, eventType, subject string, payload any) (cloudevents.Event, error) {
	e := cloudevents.NewEvent()
	e.SetID(uuid.New().String())
	e.SetSource(source)
	e.SetType(eventType)
	e.SetTime(time.Now().UTC())
	if subject != "" {
		e.SetSubject(subject)
	}
	if err := e.SetData(cloudevents.ApplicationJSON, payload); err != nil {
		return e, fmt.Errorf("set data: %w", err)
	}
	if err := e.Validate(); err != nil {
		return e, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return e, nil
}

// EncodeEvent сериализует событие в structured mode (application/cloudevents+json).
func EncodeEvent(e cloudevents.Event) ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return body, nil
}

// DecodeEvent разбирает тело сообщения в CloudEvent.
func DecodeEvent(body []byte) (cloudevents.Event, error) {
	var e cloudevents.Event
	if err := json.Unmarshal(body, &e); err != nil {
		return e, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := e.Validate(); err != nil {
		return e, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return e, nil
}

// ParsePayload разбирает данные события в указанный тип.
func ParsePayload[T any](e *cloudevents.Event) (T, error) {
	var result T
	if err := e.DataAs(&result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}
	return result, nil
}
