package mq

import (
	"errors"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

func TestEvent_EncodeDecode(t *testing.T) {
	payload := RunRequestedPayload{RunID: uuid.New(), Pipeline: "demo"}

	e, err := NewEvent("/conduit/test", EventRunRequested, payload.RunID.String(), payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body, err := EncodeEvent(e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decoded, err := DecodeEvent(body)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}

	if decoded.ID() != e.ID() {
		t.Errorf("expected id %s, got %s", e.ID(), decoded.ID())
	}
	if decoded.Type() != EventRunRequested {
		t.Errorf("expected type %s, got %s", EventRunRequested, decoded.Type())
	}
	if decoded.Source() != "/conduit/test" {
		t.Errorf("unexpected source %s", decoded.Source())
	}
	if decoded.Subject() != payload.RunID.String() {
		t.Errorf("unexpected subject %s", decoded.Subject())
	}
	if decoded.DataContentType() != cloudevents.ApplicationJSON {
		t.Errorf("unexpected content type %s", decoded.DataContentType())
	}

	got, err := ParsePayload[RunRequestedPayload](&decoded)
	if err != nil {
		t.Fatalf("unexpected payload error: %v", err)
	}
	if got != payload {
		t.Errorf("expected %+v, got %+v", payload, got)
	}
}

func TestDecodeEvent_Invalid(t *testing.T) {
	tests := map[string]string{
		"not json":       `{`,
		"legacy message": `{"id": "1", "type": "run.pending", "payload": {}}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeEvent([]byte(body)); !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("expected ErrInvalidEvent, got %v", err)
			}
		})
	}
}

func TestBindings_DeadLetter(t *testing.T) {
	var requested *binding
	for _, b := range bindings() {
		if b.queue == QueueRunsRequested {
			requested = &b
		}
	}
	if requested == nil {
		t.Fatal("runs.requested binding missing")
	}
	if requested.args["x-dead-letter-exchange"] != string(ExchangeDLQ) {
		t.Errorf("runs.requested should dead-letter to %s, got %v", ExchangeDLQ, requested.args)
	}
}
