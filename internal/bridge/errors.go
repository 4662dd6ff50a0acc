package bridge

import "errors"

var (
	// ErrDuplicateID is returned when a slot for the id is already outstanding
	ErrDuplicateID = errors.New("correlation id already pending")
	// ErrEmptyID is returned when a job or message carries no id
	ErrEmptyID = errors.New("empty correlation id")
)
