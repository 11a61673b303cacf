package flow

import (
	"context"

	"github.com/shaiso/Conduit/internal/pipeline"
	"github.com/shaiso/Conduit/internal/state"
)

// Mode — режим выполнения pipeline.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeConcurrent Mode = "concurrent"
)

// Ключи шагов в документе определения.
const (
	KeyFunction = pipeline.FunctionKey
	KeySkill    = "skill"
	KeyArgs     = "args"
	KeyBranch   = "branch"
	KeyWhen     = "when"
	KeyThen     = "then"
	KeyElse     = "else"
	KeyParallel = "parallel"
	KeyMerge    = "merge"
	KeySteps    = "steps"
)

// Definition — декларативное описание pipeline.
//
// Шаг в Steps — одно из:
//
//	"strip"                                         // transformer
//	["strip", "lowercase"]                          // вложенный список
//	{"function": "replace", "old": "a", "new": "b"} // transformer с параметрами
//	{"skill": "word_count", "args": {...}}          // skill из каталога
//	{"branch": {"when": "...", "then": ..., "else": ...}}
//	{"parallel": {"merge": "dict", "steps": [...]}}
type Definition struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Mode        Mode      `json:"mode,omitempty" yaml:"mode,omitempty"`
	Steps       []any     `json:"steps" yaml:"steps"`
	Schedule    *Schedule `json:"schedule,omitempty" yaml:"schedule,omitempty"`

	// Source — файл, из которого загружено определение.
	Source string `json:"-" yaml:"-"`
}

// Schedule — расписание запуска pipeline.
type Schedule struct {
	Cron  string `json:"cron" yaml:"cron"`
	Input any    `json:"input,omitempty" yaml:"input,omitempty"`
}

// IsConcurrent возвращает true для конкурентного режима.
func (d *Definition) IsConcurrent() bool {
	return d.Mode == ModeConcurrent
}

// Run выполняет собранный Chain в режиме определения.
// sc == nil означает новый корневой контекст.
func (d *Definition) Run(ctx context.Context, chain *pipeline.Chain, input any, sc *state.Context) (any, error) {
	if d.IsConcurrent() {
		return chain.RunAsync(ctx, input, sc)
	}
	return chain.Run(ctx, input, sc)
}
