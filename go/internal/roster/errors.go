package roster

import "errors"

var (
	ErrPlayerNotFound  = errors.New("player not found in session")
	ErrEmptyName       = errors.New("player name must not be empty")
	ErrSessionNotFound = errors.New("session not found")
)
