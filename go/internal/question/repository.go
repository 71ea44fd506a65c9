package question

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mdevlab/buzzroom/go/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

// CreateQuestionsBatch bulk-inserts a session's full question set in one
// statement. The set is written exactly once per session.
func (r *Repository) CreateQuestionsBatch(ctx context.Context, questions []models.Question) error {
	if len(questions) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(questions))
	sessionIDs := make([]uuid.UUID, len(questions))
	topics := make([]string, len(questions))
	prompts := make([]string, len(questions))
	answers := make([]string, len(questions))
	difficulties := make([]string, len(questions))
	positions := make([]int32, len(questions))

	for i, q := range questions {
		ids[i] = q.ID
		sessionIDs[i] = q.SessionID
		topics[i] = q.Topic
		prompts[i] = q.Prompt
		answers[i] = q.Answer
		difficulties[i] = string(q.Difficulty)
		positions[i] = int32(q.Position)
	}

	const query = `
		INSERT INTO questions (id, session_id, topic, prompt, answer, difficulty, position)
		SELECT * FROM unnest($1::uuid[], $2::uuid[], $3::text[], $4::text[], $5::text[], $6::text[], $7::int[])`

	_, err := r.pool.Exec(ctx, query, ids, sessionIDs, topics, prompts, answers, difficulties, positions)
	if err != nil {
		return fmt.Errorf("failed to batch create questions: %w", err)
	}

	return nil
}

// ListQuestionsBySession returns the session's question set in play order.
func (r *Repository) ListQuestionsBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Question, error) {
	const query = `
		SELECT id, session_id, topic, prompt, answer, difficulty, position
		FROM questions
		WHERE session_id = $1
		ORDER BY position ASC`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.SessionID, &q.Topic, &q.Prompt, &q.Answer, &q.Difficulty, &q.Position); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read questions: %w", err)
	}

	return questions, nil
}

// CountQuestionsBySession returns the size of the session's committed set.
func (r *Repository) CountQuestionsBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions WHERE session_id = $1`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}
