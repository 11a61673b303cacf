package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/shaiso/Conduit/internal/state"
)

// Имена текстовых transformer'ов.
const (
	TransformerStrip     = "strip"
	TransformerLowercase = "lowercase"
	TransformerUppercase = "uppercase"
	TransformerReplace   = "replace"
)

// stringFunc — transformer, применяющий строковую функцию к значению.
type stringFunc struct {
	name string
	fn   func(string) string
}

func (s *stringFunc) Name() string { return s.name }

func (s *stringFunc) Transform(ctx context.Context, value any, _ *state.Context) (any, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	str, err := asString(s.name, value)
	if err != nil {
		return nil, err
	}
	return s.fn(str), nil
}

// newStrip — "strip": обрезает пробелы по краям.
// Параметр "chars" задаёт набор обрезаемых символов.
func newStrip(params map[string]any) (Transformer, error) {
	if chars := GetConfigString(params, "chars"); chars != "" {
		return &stringFunc{name: TransformerStrip, fn: func(s string) string {
			return strings.Trim(s, chars)
		}}, nil
	}
	return &stringFunc{name: TransformerStrip, fn: strings.TrimSpace}, nil
}

func newLowercase(map[string]any) (Transformer, error) {
	return &stringFunc{name: TransformerLowercase, fn: strings.ToLower}, nil
}

func newUppercase(map[string]any) (Transformer, error) {
	return &stringFunc{name: TransformerUppercase, fn: strings.ToUpper}, nil
}

// newReplace — "replace": заменяет подстроку.
//
// Параметры:
//
//	{
//	    "old": "foo",     // обязательный
//	    "new": "bar",
//	    "count": 1        // по умолчанию все вхождения
//	}
func newReplace(params map[string]any) (Transformer, error) {
	old := GetConfigString(params, "old")
	if old == "" {
		return nil, fmt.Errorf("%w: %s: old is required", ErrInvalidConfig, TransformerReplace)
	}
	replacement := GetConfigString(params, "new")
	count := GetConfigInt(params, "count")
	if count <= 0 {
		count = -1
	}

	return &stringFunc{name: TransformerReplace, fn: func(s string) string {
		return strings.Replace(s, old, replacement, count)
	}}, nil
}

// asString приводит значение к строке.
// []byte и fmt.Stringer принимаются, остальное — ошибка.
func asString(name string, value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("%w: %s: expected string, got %T", ErrInvalidInput, name, value)
	}
}
