package authController

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidRole        = errors.New("invalid role")
)
