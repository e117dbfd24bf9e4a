package model

import "errors"

// Failure taxonomy shared by all services. Services wrap these with
// fmt.Errorf("...: %w", ...) so callers can match with errors.Is.
var (
	// ErrNotFound means a referenced id (interview, submission, task, user)
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateID means a registration collided with an existing id.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrValidation means the input failed a caller-side field check or a
	// task-settings rule.
	ErrValidation = errors.New("validation failed")
)
