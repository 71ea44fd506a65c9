package question

import "errors"

var (
	ErrEmptySet = errors.New("question set must not be empty")
)
