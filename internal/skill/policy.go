package skill

import (
	"fmt"
	"slices"
)

// Названия проверяемых возможностей.
const (
	CapabilityNetwork    = "requires_network"
	CapabilityFilesystem = "requires_filesystem"
	CapabilityImports    = "required_imports"
)

// Violation — нарушение политики.
type Violation struct {
	Capability string `json:"capability"`
	Message    string `json:"message"`
}

// String возвращает текст нарушения с названием возможности.
func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Capability, v.Message)
}

// Policy проверяет дескриптор перед вызовом skill.
// Пустой результат означает "разрешено".
type Policy interface {
	Validate(d Descriptor) []Violation
}

// PolicyFunc — адаптер функции к Policy.
type PolicyFunc func(d Descriptor) []Violation

// Validate вызывает f.
func (f PolicyFunc) Validate(d Descriptor) []Violation {
	return f(d)
}

type noPolicy struct{}

func (noPolicy) Validate(Descriptor) []Violation { return nil }

// NoPolicy разрешает всё. Используется, когда политика не задана.
var NoPolicy Policy = noPolicy{}

// CapabilityPolicy — политика по объявленным возможностям.
type CapabilityPolicy struct {
	AllowNetwork    bool
	AllowFilesystem bool

	// AllowedImports — разрешённые импорты. nil снимает ограничение.
	AllowedImports []string
}

// Validate реализует Policy.
func (p CapabilityPolicy) Validate(d Descriptor) []Violation {
	var violations []Violation

	if d.RequiresNetwork && !p.AllowNetwork {
		violations = append(violations, Violation{
			Capability: CapabilityNetwork,
			Message:    "network access is not permitted",
		})
	}
	if d.RequiresFilesystem && !p.AllowFilesystem {
		violations = append(violations, Violation{
			Capability: CapabilityFilesystem,
			Message:    "filesystem access is not permitted",
		})
	}
	if p.AllowedImports != nil {
		for _, imp := range d.RequiredImports {
			if !slices.Contains(p.AllowedImports, imp) {
				violations = append(violations, Violation{
					Capability: CapabilityImports,
					Message:    fmt.Sprintf("import %q is not permitted", imp),
				})
			}
		}
	}

	return violations
}
