package auth

import "errors"

var (
	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
	ErrInvalidInput  = errors.New("auth: invalid input")
	ErrWrongPassword = errors.New("auth: wrong password")
	ErrUnauthorized  = errors.New("auth: unauthorized")
)

// ErrInvalidToken indicates the token failed signature or expiry validation.
var ErrInvalidToken = errors.New("auth: invalid token")
