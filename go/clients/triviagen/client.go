// Package triviagen wraps the external question-generation service. The
// engine never talks to a model provider directly; it asks this service for
// a complete question set and validates the shape of what comes back.
package triviagen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mdevlab/buzzroom/go/clients"
	"github.com/mdevlab/buzzroom/go/internal/models"
	"github.com/mdevlab/buzzroom/go/internal/question"
)

// ErrRateLimited is re-exported so workers can match it without importing
// the transport package.
var ErrRateLimited = clients.ErrRateLimited

type Client struct {
	base *clients.BaseClient
}

func NewClient(baseURL, apiKey string) *Client {
	base := clients.NewBaseClient(baseURL)
	base.SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		base.SetHeader("Authorization", "Bearer "+apiKey)
	}
	return &Client{base: base}
}

// TopicRequest names one topic to generate questions for.
type TopicRequest struct {
	Name       string `json:"name"`
	Difficulty string `json:"difficulty"`
}

// GenerateRequest asks for questions_per_topic questions on every topic.
type GenerateRequest struct {
	Topics            []TopicRequest `json:"topics"`
	QuestionsPerTopic int            `json:"questions_per_topic"`
}

type generatedQuestion struct {
	Topic      string `json:"topic"`
	Prompt     string `json:"question"`
	Answer     string `json:"answer"`
	Difficulty string `json:"difficulty"`
}

type generateResponse struct {
	Questions []generatedQuestion `json:"questions"`
}

// Generate requests a full question set and validates it: every requested
// topic must come back with exactly the requested number of questions, with
// no blanks. A malformed set is rejected whole so a half-generated game can
// never start.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) ([]question.Draft, error) {
	if len(req.Topics) == 0 || req.QuestionsPerTopic <= 0 {
		return nil, fmt.Errorf("invalid generate request: %d topics, %d per topic", len(req.Topics), req.QuestionsPerTopic)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generate request: %w", err)
	}

	data, err := c.base.Post(ctx, generateEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var resp generateResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal generate response: %w", err)
	}

	return validateSet(req, resp.Questions)
}

// validateSet checks per-topic counts and maps the wire shape to drafts in
// request topic order.
func validateSet(req GenerateRequest, generated []generatedQuestion) ([]question.Draft, error) {
	byTopic := make(map[string][]generatedQuestion)
	for _, q := range generated {
		if strings.TrimSpace(q.Prompt) == "" || strings.TrimSpace(q.Answer) == "" {
			return nil, fmt.Errorf("generated question on %q has empty prompt or answer", q.Topic)
		}
		key := strings.ToLower(q.Topic)
		byTopic[key] = append(byTopic[key], q)
	}

	var drafts []question.Draft
	for _, topic := range req.Topics {
		questions := byTopic[strings.ToLower(topic.Name)]
		if len(questions) != req.QuestionsPerTopic {
			return nil, fmt.Errorf("topic %q: expected %d questions, got %d", topic.Name, req.QuestionsPerTopic, len(questions))
		}
		for _, q := range questions {
			drafts = append(drafts, question.Draft{
				Topic:      topic.Name,
				Prompt:     q.Prompt,
				Answer:     q.Answer,
				Difficulty: parseDifficulty(q.Difficulty, topic.Difficulty),
			})
		}
	}

	return drafts, nil
}

// parseDifficulty trusts the provider's label when it is valid and falls
// back to the requested difficulty otherwise.
func parseDifficulty(got, requested string) models.Difficulty {
	switch models.Difficulty(strings.ToUpper(got)) {
	case models.DifficultyEasy:
		return models.DifficultyEasy
	case models.DifficultyMedium:
		return models.DifficultyMedium
	case models.DifficultyExpert:
		return models.DifficultyExpert
	}
	switch models.Difficulty(strings.ToUpper(requested)) {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyExpert:
		return models.Difficulty(strings.ToUpper(requested))
	}
	return models.DifficultyMedium
}
