package steps

import (
	"context"
	"fmt"

	"github.com/shaiso/Conduit/internal/engine"
	"github.com/shaiso/Conduit/internal/state"
)

// TransformerTemplate — имя transformer'а шаблонов.
const TransformerTemplate = "template"

// templateTransformer — рендер Go templates над текущим значением и state.
//
// Параметры (одно из двух):
//
//	{
//	    "template": "Hello, {{ .Value }}!",
//	    "parse": false          // распарсить результат как JSON-скаляр
//	}
//
//	{
//	    "mappings": {
//	        "greeting": "Hello, {{ .Value }}",
//	        "user": "{{ .Get \"user\" }}"
//	    }
//	}
//
// С "mappings" результатом будет map, каждое значение которой
// проходит через parseValue.
type templateTransformer struct {
	template string
	mappings map[string]string
	parse    bool
	params   map[string]any
}

func newTemplate(params map[string]any) (Transformer, error) {
	t := &templateTransformer{
		template: GetConfigString(params, "template"),
		mappings: GetConfigMapString(params, "mappings"),
		parse:    GetConfigBool(params, "parse", false),
		params:   params,
	}

	if t.template == "" && len(t.mappings) == 0 {
		return nil, fmt.Errorf("%w: %s: template or mappings required", ErrInvalidConfig, TransformerTemplate)
	}

	// Синтаксис проверяем сразу, чтобы ошибка была видна при сборке шага
	if t.template != "" {
		if err := engine.Compile(t.template); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, TransformerTemplate, err)
		}
	}
	for key, tmpl := range t.mappings {
		if err := engine.Compile(tmpl); err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %v", ErrInvalidConfig, TransformerTemplate, key, err)
		}
	}

	return t, nil
}

func (t *templateTransformer) Name() string { return TransformerTemplate }

func (t *templateTransformer) Transform(ctx context.Context, value any, sc *state.Context) (any, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	data := engine.NewData(value, sc).WithParams(t.params)

	if len(t.mappings) > 0 {
		outputs := make(map[string]any, len(t.mappings))
		for key, tmpl := range t.mappings {
			rendered, err := engine.Render(tmpl, data)
			if err != nil {
				return nil, fmt.Errorf("template %s: %w", key, err)
			}
			outputs[key] = parseValue(rendered)
		}
		return outputs, nil
	}

	rendered, err := engine.Render(t.template, data)
	if err != nil {
		return nil, err
	}
	if t.parse {
		return parseValue(rendered), nil
	}
	return rendered, nil
}
