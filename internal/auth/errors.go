package auth

import "errors"

var (
	ErrNotFound           = errors.New("auth: not found")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrAccountDisabled    = errors.New("auth: account disabled")
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrSessionNotFound    = errors.New("auth: session not found")
	ErrUnavailable        = errors.New("auth: backend unavailable")
	ErrInvalidInput       = errors.New("auth: invalid input")
)
