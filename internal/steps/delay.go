package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/Conduit/internal/state"
)

const (
	// TransformerDelay — имя transformer'а задержки.
	TransformerDelay = "delay"

	configDurationSec = "duration_sec"
	configDurationMs  = "duration_ms"
)

// delay приостанавливает выполнение и возвращает вход без изменений.
// Отмена context прерывает ожидание.
//
// Параметры:
//
//	{
//	    "duration_sec": 10,
//	    // или
//	    "duration_ms": 5000
//	}
type delay struct {
	duration time.Duration
}

func newDelay(params map[string]any) (Transformer, error) {
	d, err := parseDuration(params)
	if err != nil {
		return nil, err
	}
	return &delay{duration: d}, nil
}

func (d *delay) Name() string { return TransformerDelay }

func (d *delay) Transform(ctx context.Context, value any, _ *state.Context) (any, error) {
	timer := time.NewTimer(d.duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrStepCancelled, ctx.Err())
	case <-timer.C:
		return value, nil
	}
}

// parseDuration извлекает длительность из параметров.
func parseDuration(params map[string]any) (time.Duration, error) {
	if sec := GetConfigInt(params, configDurationSec); sec > 0 {
		return time.Duration(sec) * time.Second, nil
	}
	if ms := GetConfigInt(params, configDurationMs); ms > 0 {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return 0, fmt.Errorf("%w: %s: duration_sec or duration_ms required",
		ErrInvalidConfig, TransformerDelay)
}
