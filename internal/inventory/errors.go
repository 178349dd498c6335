package inventory

import "errors"

var (
	ErrNotFound     = errors.New("inventory: not found")
	ErrConflict     = errors.New("inventory: already exists")
	ErrInvalidInput = errors.New("inventory: invalid input")
)
