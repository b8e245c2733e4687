package repo

import "errors"

// Ошибки репозиториев. API переводит их в 404, 409 и 422.
var (
	// ErrNotFound — записи с таким id или slug нет.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — slug уже занят другой нодой.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidState — переход статуса недопустим из текущего статуса.
	ErrInvalidState = errors.New("invalid status transition")
)
