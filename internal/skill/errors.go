package skill

import (
	"errors"
	"fmt"
)

// Ошибки skill.
var (
	// ErrInvalidDescriptor — дескриптор не прошёл валидацию.
	ErrInvalidDescriptor = errors.New("invalid skill descriptor")

	// ErrSkillNotFound — skill не найден в каталоге.
	ErrSkillNotFound = errors.New("skill not found")

	// ErrPolicyViolation — вызов запрещён политикой.
	ErrPolicyViolation = errors.New("policy violation")
)

// ExecutionError — неуспешный вызов skill.
type ExecutionError struct {
	Skill     string
	Message   string
	Retryable bool
}

// Error реализует интерфейс error.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("skill %s: %s", e.Skill, e.Message)
}
