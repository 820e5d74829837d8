package domain

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionInactive = errors.New("session is not active")
	ErrStudentNotFound = errors.New("student not found")
	ErrNotInSession    = errors.New("student not in the session")
	ErrInvalidToken    = errors.New("invalid token")
)
