package skill

import (
	"fmt"
	"slices"
)

// Descriptor — объявленные свойства skill.
//
// Создаётся один раз при регистрации и дальше не меняется.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// IsAsync — функция блокируется надолго (I/O) и при синхронном
	// вызове выполняется в отдельной горутине.
	IsAsync bool `json:"is_async"`

	// Idempotent — повторный вызов безопасен. Определяет Result.Retryable.
	Idempotent bool `json:"idempotent"`

	SideEffects        bool     `json:"side_effects"`
	RequiresNetwork    bool     `json:"requires_network"`
	RequiresFilesystem bool     `json:"requires_filesystem"`
	RequiredImports    []string `json:"required_imports,omitempty"`
}

// Validate проверяет корректность дескриптора.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDescriptor)
	}
	return nil
}

// clone возвращает копию, не разделяющую RequiredImports с оригиналом.
func (d Descriptor) clone() Descriptor {
	d.RequiredImports = slices.Clone(d.RequiredImports)
	return d
}
