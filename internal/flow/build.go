package flow

import (
	"fmt"
	"log/slog"
	"maps"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/Conduit/internal/engine"
	"github.com/shaiso/Conduit/internal/pipeline"
	"github.com/shaiso/Conduit/internal/skill"
	"github.com/shaiso/Conduit/internal/steps"
)

// Builder собирает pipeline.Chain из Definition.
type Builder struct {
	// Registry — реестр transformer'ов. nil означает steps.Default().
	Registry *steps.Registry

	// Skills — каталог для шагов {"skill": ...}. nil означает пустой каталог.
	Skills *skill.Catalog

	// Policy — политика для вызовов skill.
	Policy skill.Policy

	// Observer — наблюдатель за шагами (логирование, метрики).
	Observer pipeline.Observer

	// Logger получает предупреждения об ошибках вычисления условий branch.
	// nil означает slog.Default().
	Logger *slog.Logger
}

func (b Builder) registry() *steps.Registry {
	if b.Registry == nil {
		return steps.Default()
	}
	return b.Registry
}

// Build проверяет определение и собирает Chain.
func (b Builder) Build(def *Definition) (*pipeline.Chain, error) {
	if def == nil || len(def.Steps) == 0 {
		return nil, NewValidationError("", "steps", "pipeline has no steps", ErrEmptySteps)
	}

	list, err := b.buildList(def.Steps, "steps")
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{pipeline.WithRegistry(b.registry())}
	if b.Policy != nil {
		opts = append(opts, pipeline.WithPolicy(b.Policy))
	}
	if b.Observer != nil {
		opts = append(opts, pipeline.WithObserver(b.Observer))
	}

	items := make([]any, len(list))
	for i, s := range list {
		items[i] = s
	}
	return pipeline.NewChain(items...).With(opts...), nil
}

// Validate проверяет определение целиком: шаги и расписание.
func (b Builder) Validate(def *Definition) error {
	if _, err := b.Build(def); err != nil {
		return err
	}
	if def.Schedule != nil {
		if _, err := ParseCron(def.Schedule.Cron); err != nil {
			return NewValidationError("", "schedule.cron", err.Error(), ErrInvalidSchedule)
		}
	}
	return nil
}

// ParseCron разбирает 5-польное cron выражение или дескриптор (@hourly).
func ParseCron(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	return sched, nil
}

func (b Builder) buildList(raw []any, path string) ([]pipeline.Step, error) {
	out := make([]pipeline.Step, len(raw))
	for i, item := range raw {
		s, err := b.buildStep(item, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (b Builder) buildStep(raw any, path string) (pipeline.Step, error) {
	switch v := raw.(type) {
	case string:
		if !b.registry().Has(v) {
			return nil, NewValidationError(path, "", fmt.Sprintf("unknown transformer: %s", v), ErrUnknownTransformer)
		}
		return pipeline.Name(v), nil

	case []any:
		list, err := b.buildList(v, path)
		if err != nil {
			return nil, err
		}
		return pipeline.SubChain(list), nil

	case map[string]any:
		switch {
		case v[KeySkill] != nil:
			return b.buildSkill(v, path)
		case v[KeyBranch] != nil:
			return b.buildBranch(v, path)
		case v[KeyParallel] != nil:
			return b.buildParallel(v, path)
		}
		return b.buildParams(v, path)
	}

	return pipeline.From(raw), nil
}

func (b Builder) buildParams(v map[string]any, path string) (pipeline.Step, error) {
	name, _ := v[KeyFunction].(string)
	if name == "" {
		// Ошибку вида шага вернёт pipeline при выполнении
		return pipeline.Params(maps.Clone(v)), nil
	}
	if !b.registry().Has(name) {
		return nil, NewValidationError(path, KeyFunction, fmt.Sprintf("unknown transformer: %s", name), ErrUnknownTransformer)
	}

	params := maps.Clone(v)
	delete(params, KeyFunction)
	factory, _ := b.registry().Lookup(name)
	if _, err := factory(params); err != nil {
		return nil, NewValidationError(path, KeyFunction, err.Error(), err)
	}

	return pipeline.Params(maps.Clone(v)), nil
}

func (b Builder) buildSkill(v map[string]any, path string) (pipeline.Step, error) {
	name, _ := v[KeySkill].(string)
	if b.Skills == nil {
		return nil, NewValidationError(path, KeySkill, fmt.Sprintf("unknown skill: %s", name), ErrUnknownSkill)
	}
	s, err := b.Skills.Get(name)
	if err != nil {
		return nil, NewValidationError(path, KeySkill, fmt.Sprintf("unknown skill: %s", name), ErrUnknownSkill)
	}

	args, _ := v[KeyArgs].(map[string]any)
	return pipeline.SkillStep{Skill: s, Args: maps.Clone(args)}, nil
}

func (b Builder) buildBranch(v map[string]any, path string) (pipeline.Step, error) {
	body, _ := v[KeyBranch].(map[string]any)
	path += "." + KeyBranch

	when, _ := body[KeyWhen].(string)
	if err := engine.CompileCondition(when); err != nil {
		return nil, NewValidationError(path, KeyWhen, err.Error(), ErrInvalidCondition)
	}

	thenPath, err := b.buildPath(body[KeyThen], path+"."+KeyThen)
	if err != nil {
		return nil, err
	}

	var elsePath []pipeline.Step
	if raw, ok := body[KeyElse]; ok && raw != nil {
		if elsePath, err = b.buildPath(raw, path+"."+KeyElse); err != nil {
			return nil, err
		}
	}

	var falsePath any
	if elsePath != nil {
		falsePath = elsePath
	}
	return pipeline.NewBranch(conditionPredicate(when, b.logger()), thenPath, falsePath), nil
}

// buildPath собирает путь branch: одиночный шаг или список.
func (b Builder) buildPath(raw any, path string) ([]pipeline.Step, error) {
	if list, ok := raw.([]any); ok {
		return b.buildList(list, path)
	}
	s, err := b.buildStep(raw, path)
	if err != nil {
		return nil, err
	}
	return []pipeline.Step{s}, nil
}

func (b Builder) buildParallel(v map[string]any, path string) (pipeline.Step, error) {
	body, _ := v[KeyParallel].(map[string]any)
	path += "." + KeyParallel

	mergeName, _ := body[KeyMerge].(string)
	merge, err := pipeline.ParseMerge(mergeName)
	if err != nil {
		return nil, NewValidationError(path, KeyMerge, err.Error(), err)
	}

	rawSteps, _ := body[KeySteps].([]any)
	list, err := b.buildList(rawSteps, path+"."+KeySteps)
	if err != nil {
		return nil, err
	}

	items := make([]any, len(list))
	for i, s := range list {
		items[i] = s
	}
	return pipeline.NewParallel(merge, items...), nil
}

// conditionPredicate превращает условие-шаблон в предикат от значения.
// Ошибка рендеринга логируется и считается ложным условием.
func conditionPredicate(when string, logger *slog.Logger) pipeline.Predicate {
	return func(value any) bool {
		ok, err := engine.RenderCondition(when, engine.NewData(value, nil))
		if err != nil {
			logger.Warn("branch condition failed, taking else path",
				"when", when,
				"error", err,
			)
			return false
		}
		return ok
	}
}

func (b Builder) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}
