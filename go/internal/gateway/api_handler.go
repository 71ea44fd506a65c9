package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/mdevlab/buzzroom/go/internal/buzz"
	"github.com/mdevlab/buzzroom/go/internal/models"
	"github.com/mdevlab/buzzroom/go/internal/roster"
	"github.com/mdevlab/buzzroom/go/internal/session"
	"github.com/mdevlab/buzzroom/go/internal/settlement"
	"github.com/rs/zerolog/log"
)

// SessionApp defines what the API needs from the session app.
type SessionApp interface {
	Create(ctx context.Context, req session.CreateSessionRequest) (*models.Session, error)
	Get(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	GetByCode(ctx context.Context, code string) (*models.Session, error)
	StartGenerating(ctx context.Context, sessionID uuid.UUID, debtAmount, questionsPerTopic int) (*models.Session, error)
	StartPlaying(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	ValidateAnswer(ctx context.Context, req session.ValidateAnswerRequest) (*session.ValidateAnswerResult, error)
	Skip(ctx context.Context, sessionID uuid.UUID, totalQuestions int) (*session.ValidateAnswerResult, error)
	Rejoin(ctx context.Context, req session.RejoinRequest) (*session.RejoinSnapshot, error)
	AccountDashboard(ctx context.Context, accountID string) (*session.Dashboard, error)
}

// RosterApp defines what the API needs from the roster app.
type RosterApp interface {
	Join(ctx context.Context, req roster.JoinRequest) (*roster.JoinResult, error)
	Players(ctx context.Context, sessionID uuid.UUID) ([]models.Player, error)
}

// BuzzApp defines what the API needs from the buzz arbiter.
type BuzzApp interface {
	Submit(ctx context.Context, req buzz.SubmitRequest) (*buzz.SubmitResult, error)
	Queue(ctx context.Context, sessionID uuid.UUID) ([]models.QueueEntry, error)
	Clear(ctx context.Context, sessionID uuid.UUID) error
	ClearPlayer(ctx context.Context, sessionID, playerID uuid.UUID) error
}

// QuestionApp defines what the API needs from the question app.
type QuestionApp interface {
	List(ctx context.Context, sessionID uuid.UUID) ([]models.Question, error)
	Count(ctx context.Context, sessionID uuid.UUID) (int, error)
}

// APIHandler serves the HTTP command surface; live updates flow through the
// WebSocket path.
type APIHandler struct {
	sessions  SessionApp
	rosters   RosterApp
	buzzes    BuzzApp
	questions QuestionApp
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(sessions SessionApp, rosters RosterApp, buzzes BuzzApp, questions QuestionApp) *APIHandler {
	return &APIHandler{
		sessions:  sessions,
		rosters:   rosters,
		buzzes:    buzzes,
		questions: questions,
	}
}

// RegisterRoutes registers API routes with an HTTP mux
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", h.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", h.handleGetSession)
	mux.HandleFunc("GET /api/sessions/code/{code}", h.handleGetSessionByCode)
	mux.HandleFunc("POST /api/sessions/{id}/join", h.handleJoin)
	mux.HandleFunc("GET /api/sessions/{id}/players", h.handlePlayers)
	mux.HandleFunc("POST /api/sessions/{id}/generate", h.handleStartGenerating)
	mux.HandleFunc("POST /api/sessions/{id}/start", h.handleStartPlaying)
	mux.HandleFunc("GET /api/sessions/{id}/questions", h.handleQuestions)
	mux.HandleFunc("POST /api/sessions/{id}/buzz", h.handleBuzz)
	mux.HandleFunc("GET /api/sessions/{id}/queue", h.handleQueue)
	mux.HandleFunc("DELETE /api/sessions/{id}/queue", h.handleClearQueue)
	mux.HandleFunc("DELETE /api/sessions/{id}/queue/{playerID}", h.handleClearPlayerBuzz)
	mux.HandleFunc("POST /api/sessions/{id}/validate", h.handleValidateAnswer)
	mux.HandleFunc("POST /api/sessions/{id}/skip", h.handleSkip)
	mux.HandleFunc("POST /api/sessions/{id}/rejoin", h.handleRejoin)
	mux.HandleFunc("GET /api/sessions/{id}/results", h.handleResults)
	mux.HandleFunc("GET /api/accounts/{accountID}/dashboard", h.handleDashboard)
}

func (h *APIHandler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req session.CreateSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s, err := h.sessions.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *APIHandler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathSessionID(w, r)
	if !ok {
		return
	}
	s, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *APIHandler) handleGetSessionByCode(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.GetByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *APIHandler) handleJoin(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathSessionID(w, r)
	if !ok {
		return
	}
	var req roster.JoinRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.SessionID = sessionID

	result, err := h.rosters.Join(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) handlePlayers(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathSessionID(w, r)
	if !ok {
		return
	}
	players, err := h.rosters.Players(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func (h *APIHandler) handleStartGenerating(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathSessionID(w, r)
	if !ok {
		return
	}
	var req struct {
		DebtAmount        int `json:"debt_amount"`
		QuestionsPerTopic int `json:"questions_per_topic"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s, err := h.sessions.StartGenerating(r.Context(), sessionID, req.DebtAmount, req.QuestionsPerTopic)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *APIHandler) handleStartPlaying(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathSessionID(w, r)
	if !ok {
		return
	}
	s, err := h.sessions.StartPlaying(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *APIHandler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathSessionID(w, r)
	if !ok {
		return
	}
	questions, err := h.questions.List(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *APIHandler) handleBuzz(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathSessionID(w, r)
	if !ok {
		return
	}
	var req buzz.SubmitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.SessionID = sessionID

	result, err := h.buzzes.Submit(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) handleQueue(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathSessionID(w, r)
	if !ok {
		return
	}
	queue, err := h.buzzes.Queue(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queue)
}

func (h *APIHandler) handleClearQueue(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathSessionID(w, r)
	if !ok {
		return
	}
	if err := h.buzzes.Clear(r.Context(), sessionID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) handleClearPlayerBuzz(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathSessionID(w, r)
	if !ok {
		return
	}
	playerID, err := uuid.Parse(r.PathValue("playerID"))
	if err != nil {
		http.Error(w, "invalid player id", http.StatusBadRequest)
		return
	}
	if err := h.buzzes.ClearPlayer(r.Context(), sessionID, playerID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) handleValidateAnswer(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathSessionID(w, r)
	if !ok {
		return
	}
	var req session.ValidateAnswerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.SessionID = sessionID

	if req.TotalQuestions <= 0 {
		count, err := h.questions.Count(r.Context(), sessionID)
		if err != nil {
			writeError(w, err)
			return
		}
		req.TotalQuestions = count
	}

	result, err := h.sessions.ValidateAnswer(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) handleSkip(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathSessionID(w, r)
	if !ok {
		return
	}
	count, err := h.questions.Count(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.sessions.Skip(r.Context(), sessionID, count)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) handleRejoin(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathSessionID(w, r)
	if !ok {
		return
	}
	var req session.RejoinRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.SessionID = sessionID

	snapshot, err := h.sessions.Rejoin(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// handleResults serves the final standings: the roster with scores plus the
// settlement projection derived from them.
func (h *APIHandler) handleResults(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathSessionID(w, r)
	if !ok {
		return
	}
	s, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	players, err := h.rosters.Players(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Session *models.Session     `json:"session"`
		Players []models.Player     `json:"players"`
		Debts   []models.DebtRecord `json:"debts"`
	}{
		Session: s,
		Players: players,
		Debts:   settlement.Debts(players, s.DebtAmount),
	})
}

func (h *APIHandler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.sessions.AccountDashboard(r.Context(), r.PathValue("accountID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func pathSessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return sessionID, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError maps domain sentinels to HTTP statuses. Anything unrecognized
// is a store or bus failure and maps to 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, roster.ErrSessionNotFound), errors.Is(err, roster.ErrPlayerNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, session.ErrInvalidTransition), errors.Is(err, session.ErrNotPlaying):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, session.ErrNoQuestions), errors.Is(err, roster.ErrEmptyName):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Error().Err(err).Msg("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
