package main

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mdevlab/buzzroom/go/internal/buzz"
	"github.com/mdevlab/buzzroom/go/internal/outbox"
	"github.com/mdevlab/buzzroom/go/internal/question"
	"github.com/mdevlab/buzzroom/go/internal/roster"
	"github.com/mdevlab/buzzroom/go/internal/session"
	"github.com/rs/zerolog/log"
)

// Services holds the wired app layer. OutboxRepo is exposed alongside the
// apps because the listener reads the outbox table directly.
type Services struct {
	Sessions   *session.App
	Rosters    *roster.App
	Buzzes     *buzz.App
	Questions  *question.App
	Outbox     *outbox.App
	OutboxRepo *outbox.Repository
}

// setupServices wires the dependency chain:
// Database layer -> Repository layer -> App layer
func setupServices(pool *pgxpool.Pool) *Services {
	outboxRepo := outbox.NewRepository(pool)
	outboxApp := outbox.NewApp(outboxRepo)

	rosterApp := roster.NewApp(roster.NewRepository(pool), outboxApp)
	questionApp := question.NewApp(question.NewRepository(pool), outboxApp)
	buzzApp := buzz.NewApp(buzz.NewRepository(pool), outboxApp)
	sessionApp := session.NewApp(session.NewRepository(pool), rosterApp, questionApp, outboxApp)

	log.Info().Msg("services initialized")

	return &Services{
		Sessions:   sessionApp,
		Rosters:    rosterApp,
		Buzzes:     buzzApp,
		Questions:  questionApp,
		Outbox:     outboxApp,
		OutboxRepo: outboxRepo,
	}
}
