package pipeline

import (
	"errors"
	"fmt"

	"github.com/shaiso/Conduit/internal/steps"
)

var (
	// ErrSkillExecutionFailed — общая ошибка неуспешного вызова skill.
	ErrSkillExecutionFailed = errors.New("skill execution failed")

	// ErrStepPanicked — шаг завершился паникой. Передаётся Observer'у,
	// сама паника распространяется дальше.
	ErrStepPanicked = errors.New("step panicked")
)

// UnknownTransformerError — имя не найдено в Registry.
type UnknownTransformerError struct {
	Name string
}

func (e *UnknownTransformerError) Error() string {
	return fmt.Sprintf("unknown transformer: %q", e.Name)
}

// Unwrap позволяет проверять errors.Is(err, steps.ErrTransformerNotFound).
func (e *UnknownTransformerError) Unwrap() error {
	return steps.ErrTransformerNotFound
}

// MalformedStepError — map-шаг без поля "function".
type MalformedStepError struct {
	Step map[string]any
}

func (e *MalformedStepError) Error() string {
	return fmt.Sprintf("malformed step: missing %q field: %v", FunctionKey, e.Step)
}

// UnresolvableStepTypeError — значение не является ни одним видом шага.
type UnresolvableStepTypeError struct {
	Type string
}

func (e *UnresolvableStepTypeError) Error() string {
	return fmt.Sprintf("cannot resolve step of type %s", e.Type)
}

// SkillInvocationError — skill вернул неуспешный результат.
// Cause хранит skill.Result.Err() того же вызова.
type SkillInvocationError struct {
	Skill     string
	Message   string
	Retryable bool
	Cause     error
}

func (e *SkillInvocationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSkillExecutionFailed, e.Message)
}

func (e *SkillInvocationError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrSkillExecutionFailed}
	}
	return []error{ErrSkillExecutionFailed, e.Cause}
}

// AllParallelStepsFailedError — при merge "first" упали все шаги.
type AllParallelStepsFailedError struct {
	Count int
	Last  error
}

func (e *AllParallelStepsFailedError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("all %d parallel steps failed", e.Count)
	}
	return fmt.Sprintf("all %d parallel steps failed: %v", e.Count, e.Last)
}

func (e *AllParallelStepsFailedError) Unwrap() error {
	return e.Last
}

// UnknownMergeStrategyError — неизвестное имя стратегии merge.
type UnknownMergeStrategyError struct {
	Name string
}

func (e *UnknownMergeStrategyError) Error() string {
	return fmt.Sprintf("unknown merge strategy: %q", e.Name)
}
