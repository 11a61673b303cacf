package flow

import "errors"

// Ошибки разбора и валидации определений.
var (
	// ErrInvalidDocument — документ не разбирается как YAML/JSON.
	ErrInvalidDocument = errors.New("invalid pipeline document")

	// ErrSchemaViolation — документ не соответствует JSON Schema.
	ErrSchemaViolation = errors.New("pipeline schema violation")

	// ErrUnsupportedFormat — неизвестное расширение файла.
	ErrUnsupportedFormat = errors.New("unsupported definition format")

	// ErrEmptySteps — pipeline не содержит шагов.
	ErrEmptySteps = errors.New("pipeline has no steps")

	// ErrUnknownTransformer — шаг ссылается на незарегистрированный transformer.
	ErrUnknownTransformer = errors.New("unknown transformer")

	// ErrUnknownSkill — шаг ссылается на неизвестный skill.
	ErrUnknownSkill = errors.New("unknown skill")

	// ErrInvalidCondition — условие branch не компилируется.
	ErrInvalidCondition = errors.New("invalid branch condition")

	// ErrInvalidSchedule — cron выражение невалидно.
	ErrInvalidSchedule = errors.New("invalid schedule")
)

// Ошибки каталога.
var (
	// ErrPipelineNotFound — pipeline не найден.
	ErrPipelineNotFound = errors.New("pipeline not found")

	// ErrDuplicatePipeline — два определения с одним именем.
	ErrDuplicatePipeline = errors.New("duplicate pipeline name")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	Path    string // путь к шагу: steps[1].parallel.steps[0]
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return e.Path + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(path, field, message string, err error) *ValidationError {
	return &ValidationError{
		Path:    path,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
