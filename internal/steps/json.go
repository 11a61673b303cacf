package steps

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shaiso/Conduit/internal/state"
)

// TransformerParseJSON — имя transformer'а разбора JSON.
const TransformerParseJSON = "parse_json"

// parseJSON разбирает строку как JSON-документ.
//
// Параметры:
//
//	{
//	    "lenient": true   // при невалидном JSON вернуть скаляр через parseValue
//	}
type parseJSON struct {
	lenient bool
}

func newParseJSON(params map[string]any) (Transformer, error) {
	return &parseJSON{lenient: GetConfigBool(params, "lenient", false)}, nil
}

func (p *parseJSON) Name() string { return TransformerParseJSON }

func (p *parseJSON) Transform(ctx context.Context, value any, _ *state.Context) (any, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	str, err := asString(TransformerParseJSON, value)
	if err != nil {
		return nil, err
	}

	var result any
	if err := json.Unmarshal([]byte(str), &result); err != nil {
		if p.lenient {
			return parseValue(str), nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidInput, TransformerParseJSON, err)
	}
	return result, nil
}

// parseValue пытается распарсить строку как JSON.
// Если не получается — возвращает строку как есть.
func parseValue(value string) any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(value), &obj); err == nil {
		return obj
	}

	var arr []any
	if err := json.Unmarshal([]byte(value), &arr); err == nil {
		return arr
	}

	var num json.Number
	if err := json.Unmarshal([]byte(value), &num); err == nil {
		if i, err := num.Int64(); err == nil {
			return i
		}
		if f, err := num.Float64(); err == nil {
			return f
		}
	}

	switch value {
	case "true":
		return true
	case "false":
		return false
	}

	return value
}
