package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/shaiso/Conduit/internal/state"
)

// Data — данные для рендеринга шаблонов.
//
// Используется в Go templates для доступа к:
//   - {{ .Value }}            — текущее значение, пришедшее в шаг
//   - {{ .Get "user.name" }}  — значение из state.Context (с учётом namespace)
//   - {{ .Params.key }}       — параметры шага
//   - {{ .Env.VAR_NAME }}     — переменные окружения
type Data struct {
	// Value — текущее значение pipeline.
	Value any `json:"value"`

	// Params — параметры шага (для parametrized transformer).
	Params map[string]any `json:"params,omitempty"`

	// Env — переменные окружения.
	Env map[string]string `json:"env,omitempty"`

	// state — разделяемое состояние выполнения (может быть nil).
	state *state.Context
}

// NewData создаёт Data для значения и состояния.
func NewData(value any, sc *state.Context) *Data {
	return &Data{
		Value:  value,
		Params: make(map[string]any),
		Env:    make(map[string]string),
		state:  sc,
	}
}

// WithParams устанавливает параметры шага.
func (d *Data) WithParams(params map[string]any) *Data {
	if params != nil {
		d.Params = params
	}
	return d
}

// SetEnv устанавливает переменную окружения.
func (d *Data) SetEnv(key, value string) {
	d.Env[key] = value
}

// LoadEnv копирует переменные окружения процесса с заданным префиксом.
func (d *Data) LoadEnv(prefix string) {
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, prefix) {
			d.Env[k] = v
		}
	}
}

// Get возвращает значение из state.Context или nil.
// Вызывается из шаблона: {{ .Get "key" }}.
func (d *Data) Get(key string) any {
	if d.state == nil {
		return nil
	}
	v, _ := d.state.Get(key)
	return v
}

// Has проверяет наличие ключа в state.Context.
func (d *Data) Has(key string) bool {
	if d.state == nil {
		return false
	}
	return d.state.Has(key)
}

// templateFuncs — дополнительные функции для шаблонов.
var templateFuncs = template.FuncMap{
	// json — сериализует значение в JSON строку
	"json": func(v any) string {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return string(b)
	},

	// default — возвращает значение по умолчанию, если первый аргумент пустой
	"default": func(def, val any) any {
		if val == nil {
			return def
		}
		if s, ok := val.(string); ok && s == "" {
			return def
		}
		return val
	},

	// coalesce — возвращает первое непустое значение
	"coalesce": func(values ...any) any {
		for _, v := range values {
			if v != nil {
				if s, ok := v.(string); ok && s == "" {
					continue
				}
				return v
			}
		}
		return nil
	},

	// fromJSON — парсит JSON строку
	"fromJSON": func(s string) any {
		var result any
		if err := json.Unmarshal([]byte(s), &result); err != nil {
			return nil
		}
		return result
	},

	// str — приводит значение к строке
	"str": func(v any) string {
		if v == nil {
			return ""
		}
		return fmt.Sprint(v)
	},

	"join": func(sep string, items []string) string {
		return strings.Join(items, sep)
	},
	"split": func(sep, s string) []string {
		return strings.Split(s, sep)
	},
	"contains":  strings.Contains,
	"hasPrefix": strings.HasPrefix,
	"hasSuffix": strings.HasSuffix,
	"lower":     strings.ToLower,
	"upper":     strings.ToUpper,
	"trim":      strings.TrimSpace,
	"replace":   strings.ReplaceAll,
}

// Render рендерит строковый шаблон с данными.
//
//	{{ .Value }}
//	{{ .Get "fetch.status" }}
//	{{ if eq (.Get "mode") "strict" }}...{{ end }}
func Render(tmpl string, data *Data) (string, error) {
	// Строка без шаблонных выражений возвращается как есть
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	t, err := template.New("").Funcs(templateFuncs).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateParse, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}

	return buf.String(), nil
}

// RenderValue рендерит произвольное значение.
// Рекурсивно обрабатывает map и slice.
func RenderValue(value any, data *Data) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch v := value.(type) {
	case string:
		return Render(v, data)

	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			rendered, err := RenderValue(val, data)
			if err != nil {
				return nil, err
			}
			result[key] = rendered
		}
		return result, nil

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			rendered, err := RenderValue(val, data)
			if err != nil {
				return nil, err
			}
			result[i] = rendered
		}
		return result, nil

	case map[string]string:
		result := make(map[string]string, len(v))
		for key, val := range v {
			rendered, err := Render(val, data)
			if err != nil {
				return nil, err
			}
			result[key] = rendered
		}
		return result, nil

	default:
		// int, float, bool возвращаем как есть
		return value, nil
	}
}

// RenderCondition рендерит и вычисляет условие.
// Пустое условие считается истинным.
func RenderCondition(condition string, data *Data) (bool, error) {
	if condition == "" {
		return true, nil
	}

	// Оборачиваем условие в if, чтобы получить bool
	tmpl := fmt.Sprintf(`{{if %s}}true{{else}}false{{end}}`, condition)

	result, err := Render(tmpl, data)
	if err != nil {
		return false, err
	}

	return result == "true", nil
}

// CompileCondition проверяет синтаксис условия без выполнения.
func CompileCondition(condition string) error {
	if condition == "" {
		return nil
	}
	return Compile(fmt.Sprintf(`{{if %s}}true{{else}}false{{end}}`, condition))
}

// Compile проверяет синтаксис шаблона без выполнения.
func Compile(tmpl string) error {
	if _, err := template.New("").Funcs(templateFuncs).Parse(tmpl); err != nil {
		return fmt.Errorf("%w: %v", ErrTemplateParse, err)
	}
	return nil
}

// MustRender рендерит шаблон и паникует при ошибке.
// Используется только для тестов.
func MustRender(tmpl string, data *Data) string {
	result, err := Render(tmpl, data)
	if err != nil {
		panic(err)
	}
	return result
}
