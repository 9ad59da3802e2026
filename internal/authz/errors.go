package authz

import "errors"

var (
	ErrNotFound     = errors.New("authz: not found")
	ErrConflict     = errors.New("authz: conflict")
	ErrInvalidInput = errors.New("authz: invalid input")
	ErrUnknownRole  = errors.New("authz: unknown role")
	ErrUnknownScope = errors.New("authz: unknown access scope")
)
