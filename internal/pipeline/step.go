package pipeline

import (
	"context"
	"maps"
	"reflect"
	"slices"

	"github.com/shaiso/Conduit/internal/skill"
	"github.com/shaiso/Conduit/internal/steps"
)

// Step — один шаг pipeline.
//
// Закрытое множество вариантов: Name, Params, Func, SkillStep,
// TransformerStep, SubChain, *Chain, *Branch, *Parallel.
// Произвольные значения приводятся к Step через From.
type Step interface {
	isStep()
}

// Name — шаг по имени зарегистрированного transformer'а.
type Name string

// Params — параметризованный transformer.
// Поле "function" содержит имя, остальные поля — параметры.
type Params map[string]any

// FunctionKey — ключ имени transformer'а в Params.
const FunctionKey = "function"

// Func — шаг-функция. Получает только значение, state ей недоступен.
type Func struct {
	// Name — отображаемое имя для merge "dict". Может быть пустым.
	Name string
	Fn   func(ctx context.Context, value any) (any, error)
}

// SkillStep — вызов skill через контракт skill.
type SkillStep struct {
	Skill skill.Skill
	Args  map[string]any
}

// TransformerStep — уже созданный transformer.
type TransformerStep struct {
	Transformer steps.Transformer
}

// SubChain — вложенный список шагов, выполняется как анонимный Chain.
type SubChain []Step

// unresolvable хранит значение, которое не приводится ни к одному варианту.
// Ошибка возникает только при выполнении.
type unresolvable struct {
	v any
}

func (Name) isStep()            {}
func (Params) isStep()          {}
func (Func) isStep()            {}
func (SkillStep) isStep()       {}
func (TransformerStep) isStep() {}
func (SubChain) isStep()        {}
func (unresolvable) isStep()    {}
func (*Chain) isStep()          {}
func (*Branch) isStep()         {}
func (*Parallel) isStep()       {}

// From приводит значение к Step.
//
// Поддерживаются: Step, string, map[string]any, map[string]string,
// []Step, []any, []string, skill.Skill, steps.Transformer и функции вида
//
//	func(any) any
//	func(any) (any, error)
//	func(context.Context, any) (any, error)
//
// Никогда не возвращает ошибку: неподдерживаемое значение превращается
// в шаг, который при выполнении вернёт *UnresolvableStepTypeError.
func From(v any) Step {
	switch s := v.(type) {
	case nil:
		return unresolvable{v: nil}
	case Step:
		return s
	case string:
		return Name(s)
	case map[string]any:
		return Params(maps.Clone(s))
	case map[string]string:
		p := make(Params, len(s))
		for k, val := range s {
			p[k] = val
		}
		return p
	case []Step:
		return SubChain(slices.Clone(s))
	case []any:
		return SubChain(fromAll(s))
	case []string:
		sub := make(SubChain, len(s))
		for i, name := range s {
			sub[i] = Name(name)
		}
		return sub
	case skill.Skill:
		if isNilValue(s) {
			return unresolvable{v: v}
		}
		return SkillStep{Skill: s}
	case steps.Transformer:
		if isNilValue(s) {
			return unresolvable{v: v}
		}
		return TransformerStep{Transformer: s}
	case func(any) any:
		if s == nil {
			return unresolvable{v: v}
		}
		return Func{Name: funcName(s), Fn: func(_ context.Context, value any) (any, error) {
			return s(value), nil
		}}
	case func(any) (any, error):
		if s == nil {
			return unresolvable{v: v}
		}
		return Func{Name: funcName(s), Fn: func(_ context.Context, value any) (any, error) {
			return s(value)
		}}
	case func(context.Context, any) (any, error):
		if s == nil {
			return unresolvable{v: v}
		}
		return Func{Name: funcName(s), Fn: s}
	default:
		return unresolvable{v: v}
	}
}

// isNilValue сообщает, что v хранит nil под конкретным типом.
func isNilValue(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Slice, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// fromAll приводит каждый элемент к Step.
func fromAll(items []any) []Step {
	out := make([]Step, len(items))
	for i, item := range items {
		out[i] = From(item)
	}
	return out
}

// pathOf приводит путь Branch к списку шагов. nil остаётся nil.
func pathOf(v any) []Step {
	switch p := v.(type) {
	case nil:
		return nil
	case SubChain:
		return slices.Clone([]Step(p))
	case []Step:
		return slices.Clone(p)
	case []any:
		return fromAll(p)
	case []string:
		return []Step(From(p).(SubChain))
	default:
		return []Step{From(v)}
	}
}
