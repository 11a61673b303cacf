package steps

import (
	"context"
	"fmt"

	"github.com/shaiso/Conduit/internal/engine"
	"github.com/shaiso/Conduit/internal/state"
)

// TransformerSetState — имя transformer'а записи в state.
const TransformerSetState = "set_state"

// setState записывает значение в state.Context и пропускает вход дальше.
//
// Параметры:
//
//	{
//	    "key": "result",                  // обязательный
//	    "value": "{{ upper .Value }}"     // по умолчанию текущее значение
//	}
//
// Запись идёт через переданный контекст, поэтому внутри Parallel
// ключ квалифицируется namespace ветки.
type setState struct {
	key      string
	value    any
	hasValue bool
}

func newSetState(params map[string]any) (Transformer, error) {
	key := GetConfigString(params, "key")
	if key == "" {
		return nil, fmt.Errorf("%w: %s: key is required", ErrInvalidConfig, TransformerSetState)
	}
	v, ok := params["value"]
	return &setState{key: key, value: v, hasValue: ok}, nil
}

func (s *setState) Name() string { return TransformerSetState }

func (s *setState) Transform(ctx context.Context, value any, sc *state.Context) (any, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if sc == nil {
		return value, nil
	}

	stored := value
	if s.hasValue {
		rendered, err := engine.RenderValue(s.value, engine.NewData(value, sc))
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", TransformerSetState, s.key, err)
		}
		stored = rendered
	}

	sc.Set(s.key, stored)
	return value, nil
}
