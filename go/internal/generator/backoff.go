package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mdevlab/buzzroom/go/clients/triviagen"
	"github.com/mdevlab/buzzroom/go/internal/question"
	"github.com/rs/zerolog/log"
)

// Retry policy for question generation. Only rate limiting is retried;
// malformed sets and other provider errors fail the attempt outright
// because retrying them returns the same answer.
const (
	maxGenerateAttempts = 3
	initialRetryDelay   = 2 * time.Second
)

// QuestionSource defines what the worker needs from the generation client.
type QuestionSource interface {
	Generate(ctx context.Context, req triviagen.GenerateRequest) ([]question.Draft, error)
}

// generateWithBackoff calls the source up to maxGenerateAttempts times,
// doubling the delay between attempts, and gives up immediately on any
// error that is not rate limiting.
func generateWithBackoff(ctx context.Context, clock clockwork.Clock, source QuestionSource, req triviagen.GenerateRequest) ([]question.Draft, error) {
	delay := initialRetryDelay

	var lastErr error
	for attempt := 1; attempt <= maxGenerateAttempts; attempt++ {
		drafts, err := source.Generate(ctx, req)
		if err == nil {
			if attempt > 1 {
				log.Info().Int("attempt", attempt).Msg("generation succeeded after retry")
			}
			return drafts, nil
		}
		if !errors.Is(err, triviagen.ErrRateLimited) {
			return nil, err
		}

		lastErr = err
		if attempt == maxGenerateAttempts {
			break
		}

		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("generation rate limited, backing off")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-clock.After(delay):
		}
		delay *= 2
	}

	return nil, fmt.Errorf("generation failed after %d attempts: %w", maxGenerateAttempts, lastErr)
}
