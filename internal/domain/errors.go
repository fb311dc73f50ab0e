// internal/domain/errors.go
package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateLogin = errors.New("login already exists")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrPersistence    = errors.New("persistence failure")
	ErrInvalidInput   = errors.New("invalid input")
)
