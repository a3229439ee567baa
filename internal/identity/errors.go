package identity

import "errors"

// Service errors.
var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidRole        = errors.New("invalid role")
	ErrSystemProfile      = errors.New("system profile cannot be modified")
)
