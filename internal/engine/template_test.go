package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/shaiso/Conduit/internal/state"
)

func TestNewData(t *testing.T) {
	data := NewData("v", nil)
	if data.Params == nil {
		t.Error("Params should not be nil")
	}
	if data.Env == nil {
		t.Error("Env should not be nil")
	}

	// Без state Get возвращает nil
	if data.Get("missing") != nil {
		t.Error("Get without state should return nil")
	}
	if data.Has("missing") {
		t.Error("Has without state should return false")
	}
}

func TestRender_Value(t *testing.T) {
	data := NewData("World", nil)

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{
			name:     "value",
			template: "Hello, {{ .Value }}!",
			expected: "Hello, World!",
		},
		{
			name:     "no template",
			template: "Plain text",
			expected: "Plain text",
		},
		{
			name:     "upper",
			template: "{{ upper .Value }}",
			expected: "WORLD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Render(tt.template, data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestRender_State(t *testing.T) {
	root := state.New()
	root.Set("user", "alice")
	scope := root.Scope("parallel_0")
	scope.Set("status", "ok")

	data := NewData(nil, scope)

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{
			name:     "ancestor value",
			template: `{{ .Get "user" }}`,
			expected: "alice",
		},
		{
			name:     "scoped value",
			template: `{{ .Get "status" }}`,
			expected: "ok",
		},
		{
			name:     "has",
			template: `{{ .Has "status" }}`,
			expected: "true",
		},
		{
			name:     "missing with default",
			template: `{{ default "none" (.Get "missing") }}`,
			expected: "none",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Render(tt.template, data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestRender_TemplateFunctions(t *testing.T) {
	data := NewData(map[string]any{
		"text": "Hello World",
		"list": []string{"a", "b", "c"},
	}, nil)

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{
			name:     "lower",
			template: "{{ lower .Value.text }}",
			expected: "hello world",
		},
		{
			name:     "contains",
			template: "{{ contains .Value.text \"World\" }}",
			expected: "true",
		},
		{
			name:     "hasPrefix",
			template: "{{ hasPrefix .Value.text \"Hello\" }}",
			expected: "true",
		},
		{
			name:     "default with nil",
			template: "{{ default \"fallback\" .Value.missing }}",
			expected: "fallback",
		},
		{
			name:     "json",
			template: `{{ json .Value.list }}`,
			expected: `["a","b","c"]`,
		},
		{
			name:     "str",
			template: `{{ str 42 }}`,
			expected: `42`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Render(tt.template, data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestRender_Params(t *testing.T) {
	data := NewData("x", nil).WithParams(map[string]any{"sep": "-"})

	result, err := Render("{{ .Value }}{{ .Params.sep }}{{ .Value }}", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "x-x" {
		t.Errorf("expected x-x, got %q", result)
	}
}

func TestRender_InvalidTemplate(t *testing.T) {
	data := NewData(nil, nil)

	// Некорректный синтаксис
	_, err := Render("{{ .Invalid syntax", data)
	if err == nil {
		t.Fatal("expected error for invalid template")
	}
	if !errors.Is(err, ErrTemplateParse) {
		t.Errorf("expected ErrTemplateParse, got %v", err)
	}
	if !strings.Contains(err.Error(), "template parse") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestRenderValue_Map(t *testing.T) {
	data := NewData("test", nil)

	value := map[string]any{
		"method": "POST",
		"body": map[string]any{
			"name": "{{ .Value }}",
		},
		"list":  []any{"{{ .Value }}_1", 42},
		"count": 3,
	}

	result, err := RenderValue(value, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resultMap, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", result)
	}

	body, ok := resultMap["body"].(map[string]any)
	if !ok {
		t.Fatalf("expected body to be map")
	}
	if body["name"] != "test" {
		t.Errorf("expected rendered name, got %v", body["name"])
	}

	list, ok := resultMap["list"].([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("expected 2-item list, got %v", resultMap["list"])
	}
	if list[0] != "test_1" || list[1] != 42 {
		t.Errorf("unexpected list %v", list)
	}
	if resultMap["count"] != 3 {
		t.Errorf("non-string values should pass through")
	}
}

func TestRenderCondition(t *testing.T) {
	sc := state.NewFrom(map[string]any{"enabled": true, "count": 5})

	tests := []struct {
		name      string
		value     any
		condition string
		expected  bool
	}{
		{
			name:      "empty condition",
			condition: "",
			expected:  true,
		},
		{
			name:      "state flag",
			condition: `.Get "enabled"`,
			expected:  true,
		},
		{
			name:      "comparison true",
			condition: `gt (.Get "count") 3`,
			expected:  true,
		},
		{
			name:      "comparison false",
			condition: `gt (.Get "count") 10`,
			expected:  false,
		},
		{
			name:      "value contains",
			value:     "hello world",
			condition: `contains .Value "world"`,
			expected:  true,
		},
		{
			name:      "missing key is falsy",
			condition: `.Get "missing"`,
			expected:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := RenderCondition(tt.condition, NewData(tt.value, sc))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestCompileCondition(t *testing.T) {
	if err := CompileCondition(`contains .Value "x"`); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := CompileCondition(""); err != nil {
		t.Errorf("empty condition should compile: %v", err)
	}
	if err := CompileCondition(`{{ broken`); !errors.Is(err, ErrTemplateParse) {
		t.Errorf("expected ErrTemplateParse, got %v", err)
	}
}

func TestMustRender_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustRender("{{ .Broken", NewData(nil, nil))
}
