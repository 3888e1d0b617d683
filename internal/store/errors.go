package store

import "errors"

var (
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateFeedback = errors.New("feedback already submitted")
)
