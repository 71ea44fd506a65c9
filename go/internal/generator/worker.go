package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mdevlab/buzzroom/go/clients/triviagen"
	"github.com/mdevlab/buzzroom/go/internal/events"
	"github.com/mdevlab/buzzroom/go/internal/models"
	"github.com/mdevlab/buzzroom/go/internal/question"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// QuestionCommitter defines what the worker needs from the question app.
type QuestionCommitter interface {
	CommitSet(ctx context.Context, sessionID uuid.UUID, drafts []question.Draft) ([]models.Question, error)
}

// SessionControl defines what the worker needs from the session app.
type SessionControl interface {
	StartPlaying(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	FailGeneration(ctx context.Context, sessionID uuid.UUID, reason string) (*models.Session, error)
}

// WorkerConfig holds configuration for the generation worker consumer
type WorkerConfig struct {
	URL           string
	StreamName    string
	ConsumerName  string
	SubjectFilter string
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultWorkerConfig returns default generation worker configuration
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		URL:           nats.DefaultURL,
		StreamName:    "SESSION_EVENTS",
		ConsumerName:  "question-generator",
		SubjectFilter: "session.events." + events.TypeGenerationRequested,
		MaxDeliver:    3,
		AckWait:       2 * time.Minute,
		MaxAckPending: 10,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Worker consumes GenerationRequested events, builds the question set via
// the external provider and flips the session into play. Failures walk the
// session back to the lobby rather than leaving it stuck in Generating.
type Worker struct {
	source    QuestionSource
	questions QuestionCommitter
	sessions  SessionControl
	clock     clockwork.Clock

	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
	config   WorkerConfig
}

// NewWorker creates a generation worker and binds its JetStream consumer.
func NewWorker(source QuestionSource, questions QuestionCommitter, sessions SessionControl, config WorkerConfig) (*Worker, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	w := &Worker{
		source:    source,
		questions: questions,
		sessions:  sessions,
		clock:     clockwork.NewRealClock(),
		nc:        nc,
		js:        js,
		config:    config,
	}

	if err := w.ensureConsumer(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}

	return w, nil
}

// WithClock replaces the worker's clock. Used by tests.
func (w *Worker) WithClock(clock clockwork.Clock) *Worker {
	w.clock = clock
	return w
}

// ensureConsumer creates or gets the JetStream consumer
func (w *Worker) ensureConsumer(ctx context.Context) error {
	stream, err := w.js.Stream(ctx, w.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:          w.config.ConsumerName,
		Durable:       w.config.ConsumerName,
		Description:   "Question generation worker",
		FilterSubject: w.config.SubjectFilter,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    w.config.MaxDeliver,
		AckWait:       w.config.AckWait,
		MaxAckPending: w.config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}

	consumer, err := stream.Consumer(ctx, w.config.ConsumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, consumerConfig)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		log.Info().Msg("created JetStream consumer for generation worker")
	} else {
		log.Info().Msg("using existing JetStream consumer for generation worker")
	}

	w.consumer = consumer
	return nil
}

// Start begins consuming generation requests
func (w *Worker) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", w.config.ConsumerName).
		Str("subject", w.config.SubjectFilter).
		Msg("generation worker started")

	messageCh := make(chan jetstream.Msg, 10)

	consumeCtx, err := w.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("generation worker shutting down")
			return nil
		case msg := <-messageCh:
			if err := w.processMessage(ctx, msg); err != nil {
				log.Error().
					Err(err).
					Str("subject", msg.Subject()).
					Msg("failed to process generation request")
				if nakErr := msg.Nak(); nakErr != nil {
					log.Error().Err(nakErr).Msg("failed to NAK message")
				}
			} else {
				if ackErr := msg.Ack(); ackErr != nil {
					log.Error().Err(ackErr).Msg("failed to ACK message")
				}
			}
		}
	}
}

// processMessage unwraps the bus envelope and hands the request to Handle.
func (w *Worker) processMessage(ctx context.Context, msg jetstream.Msg) error {
	var envelope struct {
		EventID   string          `json:"eventId"`
		EventType string          `json:"eventType"`
		SessionID string          `json:"sessionId"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(msg.Data(), &envelope); err != nil {
		return fmt.Errorf("unmarshal event envelope: %w", err)
	}

	var payload events.GenerationRequestedPayload
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal GenerationRequested payload: %w", err)
	}

	return w.Handle(ctx, payload)
}

// Handle runs one generation request end to end: provider call with
// backoff, atomic question-set commit, then the Playing transition. Any
// failure returns the session to the lobby with the reason broadcast.
func (w *Worker) Handle(ctx context.Context, payload events.GenerationRequestedPayload) error {
	sessionID, err := uuid.Parse(payload.SessionID)
	if err != nil {
		return fmt.Errorf("parse session ID: %w", err)
	}

	req := triviagen.GenerateRequest{
		QuestionsPerTopic: payload.QuestionsPerTopic,
		Topics:            make([]triviagen.TopicRequest, len(payload.Topics)),
	}
	for i, topic := range payload.Topics {
		req.Topics[i] = triviagen.TopicRequest{Name: topic.Name, Difficulty: topic.Difficulty}
	}

	log.Info().
		Str("session_id", payload.SessionID).
		Int("topics", len(req.Topics)).
		Int("questions_per_topic", req.QuestionsPerTopic).
		Msg("generating question set")

	drafts, err := generateWithBackoff(ctx, w.clock, w.source, req)
	if err != nil {
		return w.fail(ctx, sessionID, fmt.Sprintf("question generation failed: %v", err))
	}

	if _, err := w.questions.CommitSet(ctx, sessionID, drafts); err != nil {
		return w.fail(ctx, sessionID, fmt.Sprintf("failed to store question set: %v", err))
	}

	if _, err := w.sessions.StartPlaying(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to start playing: %w", err)
	}

	log.Info().
		Str("session_id", payload.SessionID).
		Int("questions", len(drafts)).
		Msg("question set ready, session playing")

	return nil
}

// fail walks the session back to the lobby. The original error is carried
// in the reason; the returned error is nil when the walk-back lands so the
// message is not redelivered for a permanent failure.
func (w *Worker) fail(ctx context.Context, sessionID uuid.UUID, reason string) error {
	if _, err := w.sessions.FailGeneration(ctx, sessionID, reason); err != nil {
		return fmt.Errorf("failed to revert session after generation failure: %w", err)
	}
	log.Warn().
		Str("session_id", sessionID.String()).
		Str("reason", reason).
		Msg("generation request failed, session reverted to lobby")
	return nil
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() error {
	if w.nc != nil {
		w.nc.Close()
	}
	return nil
}
