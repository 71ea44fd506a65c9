package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mdevlab/buzzroom/go/clients/triviagen"
	"github.com/mdevlab/buzzroom/go/internal/dbconfig"
	"github.com/mdevlab/buzzroom/go/internal/gateway"
	"github.com/mdevlab/buzzroom/go/internal/generator"
	"github.com/mdevlab/buzzroom/go/internal/outbox"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file found, using system environment")
	}
	setupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	pool, err := setupDatabase(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up database")
	}
	defer pool.Close()

	if err := runMigrations(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	services := setupServices(pool)

	// The publisher goes first: it creates the JetStream stream that both
	// consumers bind to.
	publisherCfg := outbox.DefaultJetStreamConfig()
	publisherCfg.URL = config.NATS.URL
	publisher, err := outbox.NewJetStreamPublisher(publisherCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}
	defer publisher.Close()

	listenerCfg := outbox.DefaultListenerConfig()
	listenerCfg.DatabaseURL = dbconfig.NewConfigFromEnv().DSN()
	listenerCfg.BatchSize = int32(getEnvAsInt("OUTBOX_BATCH_SIZE", int(listenerCfg.BatchSize)))
	listener, err := outbox.NewListener(services.OutboxRepo, publisher, listenerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create outbox listener")
	}
	go func() {
		if err := listener.Start(ctx); err != nil {
			log.Error().Err(err).Msg("outbox listener stopped")
		}
	}()

	cm := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	go cm.Start(ctx)

	consumerCfg := gateway.DefaultJetStreamConsumerConfig()
	consumerCfg.URL = config.NATS.URL
	consumer, err := gateway.NewEventConsumer(cm, consumerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway event consumer")
	}
	go func() {
		if err := consumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway event consumer stopped")
		}
	}()

	poller := gateway.NewQueuePoller(services.Buzzes, cm)
	go poller.Start(ctx)

	genClient := triviagen.NewClient(config.Generator.BaseURL, getEnv("TRIVIAGEN_API_KEY", ""))
	workerCfg := generator.DefaultWorkerConfig()
	workerCfg.URL = config.NATS.URL
	worker, err := generator.NewWorker(genClient, services.Questions, services.Sessions, workerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create generation worker")
	}
	go func() {
		if err := worker.Start(ctx); err != nil {
			log.Error().Err(err).Msg("generation worker stopped")
		}
	}()

	server := setupServer(config, services, cm)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	if err := listener.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop outbox listener")
	}
	if err := consumer.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop event consumer")
	}
	if err := worker.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop generation worker")
	}

	log.Info().Msg("shutdown complete")
}

func setupLogging() {
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if getEnv("LOG_PRETTY", "false") == "true" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
