package rbac

import "errors"

var (
	ErrPermissionDenied = errors.New("rbac: not authorized")
	ErrInvalidInput     = errors.New("rbac: invalid input")
	ErrNotFound         = errors.New("rbac: not found")
)
