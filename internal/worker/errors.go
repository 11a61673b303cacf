package worker

import "errors"

// Ошибки воркера.
var (
	// ErrRunNotFound — run из события не найден в БД.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunNotPending — run уже забран другим воркером или завершён.
	ErrRunNotPending = errors.New("run is not in PENDING status")
)
