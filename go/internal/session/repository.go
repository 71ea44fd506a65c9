package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mdevlab/buzzroom/go/internal/buzz"
	"github.com/mdevlab/buzzroom/go/internal/models"
	"github.com/mdevlab/buzzroom/go/internal/sqlutil"
)

// Postgres unique_violation, raised by the UNIQUE constraint on
// sessions.code when a generated join code collides.
const uniqueViolationCode = "23505"

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

const sessionColumns = `id, code, status, current_question_index, debt_amount, questions_per_topic, moderator_local_id, account_id, created_at, updated_at`

// CreateSession inserts a new session in the Lobby state. A join-code
// collision maps to ErrCodeTaken so the caller can retry with a fresh code.
func (r *Repository) CreateSession(ctx context.Context, code, moderatorLocalID string, accountID *string) (*models.Session, error) {
	query := `
		INSERT INTO sessions (id, code, moderator_local_id, account_id)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + sessionColumns

	session, err := scanSession(r.pool.QueryRow(ctx, query, uuid.New(), code, moderatorLocalID, accountID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, ErrCodeTaken
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// GetSession retrieves a session by its id.
func (r *Repository) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	session, err := scanSession(r.pool.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// GetSessionByCode retrieves a session by its 6-digit join code.
func (r *Repository) GetSessionByCode(ctx context.Context, code string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE code = $1`
	session, err := scanSession(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session by code: %w", err)
	}
	return session, nil
}

// StartGenerating moves Lobby -> Generating and records the game settings.
// The status guard in the WHERE clause is what rejects a stale or repeated
// start without a separate read.
func (r *Repository) StartGenerating(ctx context.Context, sessionID uuid.UUID, debtAmount, questionsPerTopic int) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = 'GENERATING', debt_amount = $2, questions_per_topic = $3, updated_at = now()
		WHERE id = $1 AND status = 'LOBBY'
		RETURNING ` + sessionColumns

	session, err := scanSession(r.pool.QueryRow(ctx, query, sessionID, debtAmount, questionsPerTopic))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("failed to start generating: %w", err)
	}
	return session, nil
}

// StartPlaying moves Generating -> Playing and points the cursor at the
// first question.
func (r *Repository) StartPlaying(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = 'PLAYING', current_question_index = 0, updated_at = now()
		WHERE id = $1 AND status = 'GENERATING'
		RETURNING ` + sessionColumns

	session, err := scanSession(r.pool.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("failed to start playing: %w", err)
	}
	return session, nil
}

// RevertToLobby moves Generating -> Lobby after a failed question-set
// build. Settings are kept so the moderator can retry without re-entering
// them.
func (r *Repository) RevertToLobby(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = 'LOBBY', updated_at = now()
		WHERE id = $1 AND status = 'GENERATING'
		RETURNING ` + sessionColumns

	session, err := scanSession(r.pool.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("failed to revert to lobby: %w", err)
	}
	return session, nil
}

// ValidateAnswer applies one adjudication in a single transaction: the
// optional score credit, the buzz-queue clear and the cursor advance either
// all land or none do. The session row is locked first so concurrent
// adjudications serialize and the Playing precondition cannot race the
// status change.
func (r *Repository) ValidateAnswer(ctx context.Context, req ValidateAnswerRequest) (*ValidateAnswerResult, error) {
	var result ValidateAnswerResult

	err := sqlutil.Run(ctx, r.pool, func(tx pgx.Tx) error {
		var status models.GameStatus
		err := tx.QueryRow(ctx, `SELECT status FROM sessions WHERE id = $1 FOR UPDATE`, req.SessionID).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to lock session: %w", err)
		}
		if status != models.GameStatusPlaying {
			return ErrNotPlaying
		}

		if req.PlayerID != nil && req.Points != 0 {
			const scoreQuery = `
				UPDATE players
				SET score = score + $3,
				    topic_scores = CASE
				        WHEN $3 > 0 AND $4 <> '' THEN jsonb_set(
				            COALESCE(topic_scores, '{}'::jsonb),
				            ARRAY[$4],
				            to_jsonb(COALESCE((topic_scores->>$4)::int, 0) + 1))
				        ELSE topic_scores
				    END
				WHERE session_id = $1 AND id = $2
				RETURNING score, topic_scores`

			var scoresBytes []byte
			err := tx.QueryRow(ctx, scoreQuery, req.SessionID, *req.PlayerID, req.Points, req.Topic).
				Scan(&result.PlayerScore, &scoresBytes)
			if err != nil {
				return fmt.Errorf("failed to update player score: %w", err)
			}
			result.ScoreUpdated = true
			result.PlayerTopicScores = make(map[string]int)
			if len(scoresBytes) > 0 {
				if err := json.Unmarshal(scoresBytes, &result.PlayerTopicScores); err != nil {
					return fmt.Errorf("failed to unmarshal topic scores: %w", err)
				}
			}
		}

		if req.MoveNext {
			if _, err := tx.Exec(ctx, `DELETE FROM buzzes WHERE session_id = $1`, req.SessionID); err != nil {
				return fmt.Errorf("failed to clear buzz queue: %w", err)
			}

			const advanceQuery = `
				UPDATE sessions
				SET current_question_index = current_question_index + 1,
				    status = CASE WHEN current_question_index + 1 >= $2 THEN 'RESULTS' ELSE status END,
				    updated_at = now()
				WHERE id = $1
				RETURNING current_question_index, status`

			err := tx.QueryRow(ctx, advanceQuery, req.SessionID, req.TotalQuestions).
				Scan(&result.NewQuestionIndex, &result.NewStatus)
			if err != nil {
				return fmt.Errorf("failed to advance question cursor: %w", err)
			}
			result.GameOver = result.NewStatus == models.GameStatusResults
			return nil
		}

		if req.PlayerID != nil {
			if _, err := tx.Exec(ctx, `DELETE FROM buzzes WHERE session_id = $1 AND player_id = $2`, req.SessionID, *req.PlayerID); err != nil {
				return fmt.Errorf("failed to drop player buzz: %w", err)
			}
		}

		err = tx.QueryRow(ctx, `SELECT current_question_index, status FROM sessions WHERE id = $1`, req.SessionID).
			Scan(&result.NewQuestionIndex, &result.NewStatus)
		if err != nil {
			return fmt.Errorf("failed to read session cursor: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// Rejoin assembles a resume snapshot in one repeatable-read transaction so
// the status, roster, questions and buzz queue all reflect the same moment.
// When the device identity does not match but the display name does, the
// matching seat is re-bound to the new identity inside the same transaction.
func (r *Repository) Rejoin(ctx context.Context, req RejoinRequest) (*RejoinSnapshot, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("failed to begin rejoin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var snapshot RejoinSnapshot

	session, err := scanSession(tx.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, req.SessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session for rejoin: %w", err)
	}
	snapshot.Session = session

	player, err := r.resolvePlayer(ctx, tx, req)
	if err != nil {
		return nil, err
	}
	snapshot.Player = player

	snapshot.Players, err = listPlayersTx(ctx, tx, req.SessionID)
	if err != nil {
		return nil, err
	}

	snapshot.Questions, err = listQuestionsTx(ctx, tx, req.SessionID)
	if err != nil {
		return nil, err
	}

	queueRows, err := listQueueRowsTx(ctx, tx, req.SessionID)
	if err != nil {
		return nil, err
	}
	snapshot.Queue = buzz.ProjectQueue(queueRows)

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit rejoin transaction: %w", err)
	}

	return &snapshot, nil
}

// resolvePlayer matches the rejoining participant to a roster row: durable
// local identity first, display name as the fallback. The name path
// re-binds the row's local identity so later rejoins take the fast path.
func (r *Repository) resolvePlayer(ctx context.Context, tx pgx.Tx, req RejoinRequest) (*models.Player, error) {
	if req.LocalID != "" {
		player, err := scanPlayer(tx.QueryRow(ctx,
			`SELECT `+playerColumns+` FROM players WHERE session_id = $1 AND local_id = $2`,
			req.SessionID, req.LocalID))
		if err == nil {
			return player, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to match player by local id: %w", err)
		}
	}

	if req.DisplayName == "" {
		return nil, nil
	}

	player, err := scanPlayer(tx.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE session_id = $1 AND name = $2`,
		req.SessionID, req.DisplayName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to match player by name: %w", err)
	}

	if req.LocalID != "" && player.LocalID != req.LocalID {
		player, err = scanPlayer(tx.QueryRow(ctx,
			`UPDATE players SET local_id = $2 WHERE id = $1 RETURNING `+playerColumns,
			player.ID, req.LocalID))
		if err != nil {
			return nil, fmt.Errorf("failed to rebind player on rejoin: %w", err)
		}
	}

	return player, nil
}

// Dashboard returns an account's unfinished sessions and its finished-game
// history in a single call.
func (r *Repository) Dashboard(ctx context.Context, accountID string) (*Dashboard, error) {
	const activeQuery = `
		SELECT s.id, s.code, s.status, s.created_at, COUNT(p.id)
		FROM sessions s
		LEFT JOIN players p ON p.session_id = s.id
		WHERE s.account_id = $1 AND s.status <> 'RESULTS'
		GROUP BY s.id
		ORDER BY s.created_at DESC`

	var dashboard Dashboard

	rows, err := r.pool.Query(ctx, activeQuery, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a ActiveSession
		if err := rows.Scan(&a.SessionID, &a.Code, &a.Status, &a.CreatedAt, &a.PlayerCount); err != nil {
			return nil, fmt.Errorf("failed to scan active session: %w", err)
		}
		dashboard.ActiveSessions = append(dashboard.ActiveSessions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read active sessions: %w", err)
	}

	const historyQuery = `
		SELECT s.id, s.code, s.updated_at,
		       (SELECT COUNT(*) FROM players p WHERE p.session_id = s.id),
		       COALESCE(w.score, 0), COALESCE(w.name, '')
		FROM sessions s
		LEFT JOIN LATERAL (
		    SELECT name, score FROM players p
		    WHERE p.session_id = s.id
		    ORDER BY p.score DESC, p.name ASC
		    LIMIT 1
		) w ON true
		WHERE s.account_id = $1 AND s.status = 'RESULTS'
		ORDER BY s.updated_at DESC
		LIMIT 20`

	historyRows, err := r.pool.Query(ctx, historyQuery, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session history: %w", err)
	}
	defer historyRows.Close()
	for historyRows.Next() {
		var h HistoryEntry
		if err := historyRows.Scan(&h.SessionID, &h.Code, &h.FinishedAt, &h.PlayerCount, &h.TopScore, &h.TopPlayer); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		dashboard.History = append(dashboard.History, h)
	}
	if err := historyRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session history: %w", err)
	}

	return &dashboard, nil
}

const playerColumns = `id, session_id, local_id, name, is_moderator, score, topics, topic_scores, account_id, created_at`

func listPlayersTx(ctx context.Context, tx pgx.Tx, sessionID uuid.UUID) ([]models.Player, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+playerColumns+` FROM players WHERE session_id = $1 ORDER BY is_moderator DESC, created_at ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players for rejoin: %w", err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player for rejoin: %w", err)
		}
		players = append(players, *player)
	}
	return players, rows.Err()
}

func listQuestionsTx(ctx context.Context, tx pgx.Tx, sessionID uuid.UUID) ([]models.Question, error) {
	rows, err := tx.Query(ctx,
		`SELECT id, session_id, topic, prompt, answer, difficulty, position
		 FROM questions WHERE session_id = $1 ORDER BY position ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions for rejoin: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.SessionID, &q.Topic, &q.Prompt, &q.Answer, &q.Difficulty, &q.Position); err != nil {
			return nil, fmt.Errorf("failed to scan question for rejoin: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func listQueueRowsTx(ctx context.Context, tx pgx.Tx, sessionID uuid.UUID) ([]buzz.QueueRow, error) {
	rows, err := tx.Query(ctx,
		`SELECT b.player_id, p.name, b.timestamp_ms
		 FROM buzzes b
		 JOIN players p ON p.id = b.player_id
		 WHERE b.session_id = $1
		 ORDER BY b.timestamp_ms ASC, b.created_at ASC, b.id ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list buzz queue for rejoin: %w", err)
	}
	defer rows.Close()

	var out []buzz.QueueRow
	for rows.Next() {
		var row buzz.QueueRow
		if err := rows.Scan(&row.PlayerID, &row.PlayerName, &row.TimestampMS); err != nil {
			return nil, fmt.Errorf("failed to scan buzz row for rejoin: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.Code, &s.Status, &s.CurrentQuestionIndex, &s.DebtAmount,
		&s.QuestionsPerTopic, &s.ModeratorLocalID, &s.AccountID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanPlayer(row pgx.Row) (*models.Player, error) {
	var (
		p           models.Player
		topicsBytes []byte
		scoresBytes []byte
	)
	err := row.Scan(&p.ID, &p.SessionID, &p.LocalID, &p.Name, &p.IsModerator, &p.Score,
		&topicsBytes, &scoresBytes, &p.AccountID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}

	if len(topicsBytes) > 0 {
		if err := json.Unmarshal(topicsBytes, &p.Topics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal topics: %w", err)
		}
	}
	p.TopicScores = make(map[string]int)
	if len(scoresBytes) > 0 {
		if err := json.Unmarshal(scoresBytes, &p.TopicScores); err != nil {
			return nil, fmt.Errorf("failed to unmarshal topic scores: %w", err)
		}
	}

	return &p, nil
}
