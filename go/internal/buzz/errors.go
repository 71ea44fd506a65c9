package buzz

import "errors"

var (
	// ErrAlreadyBuzzed means the player already has a live buzz for the
	// current question. Expected contention, never retried.
	ErrAlreadyBuzzed = errors.New("player already buzzed for this question")

	// ErrNotPlaying means the session was not in the Playing state when the
	// insert ran, so the guarded write stored nothing.
	ErrNotPlaying = errors.New("session is not playing")
)
