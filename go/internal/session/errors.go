package session

import "errors"

var (
	// ErrSessionNotFound means no session matches the given id or code.
	ErrSessionNotFound = errors.New("session not found")

	// ErrCodeTaken means the generated join code collided with a live
	// session. Handled by retrying creation with a fresh code.
	ErrCodeTaken = errors.New("session code already in use")

	// ErrInvalidTransition means the requested status change is not legal
	// from the session's current state.
	ErrInvalidTransition = errors.New("invalid session status transition")

	// ErrNoQuestions means playing cannot start because the session has no
	// committed question set.
	ErrNoQuestions = errors.New("session has no questions")

	// ErrNotPlaying means an adjudication was submitted while the session
	// is not in the Playing state. Surfaced as a no-op at the boundary.
	ErrNotPlaying = errors.New("session is not playing")
)
