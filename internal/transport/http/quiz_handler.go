package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/domain"
)

// QuizHandler exposes the solo-session use cases as JSON endpoints. The user
// id arrives in the X-User-ID header, established by upstream auth.
type QuizHandler struct {
	service *app.QuizService
}

func NewQuizHandler(service *app.QuizService) *QuizHandler {
	return &QuizHandler{service: service}
}

// Register wires the quiz routes onto the mux.
func (h *QuizHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/quiz/start", h.start)
	mux.HandleFunc("GET /api/quiz/question", h.question)
	mux.HandleFunc("POST /api/quiz/answer", h.answer)
	mux.HandleFunc("POST /api/quiz/revision", h.revision)
	mux.HandleFunc("GET /api/quiz/time", h.timeRemaining)
	mux.HandleFunc("POST /api/quiz/save", h.save)
	mux.HandleFunc("GET /api/quiz/saved", h.hasSaved)
	mux.HandleFunc("POST /api/quiz/restore", h.restore)
	mux.HandleFunc("POST /api/quiz/complete", h.complete)
	mux.HandleFunc("GET /api/quiz/stats", h.stats)
	mux.HandleFunc("GET /api/subjects", h.subjects)
}

type startRequest struct {
	Subject      string `json:"subject"`
	TimerMinutes int    `json:"timerMinutes"`
}

func (h *QuizHandler) start(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req startRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.service.Start(r.Context(), userID, req.Subject, req.TimerMinutes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *QuizHandler) question(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	view, err := h.service.CurrentQuestion(r.Context(), r.URL.Query().Get("sessionId"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type answerRequest struct {
	SessionID string `json:"sessionId"`
	Accepted  bool   `json:"accepted"`
}

func (h *QuizHandler) answer(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req answerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	outcome, err := h.service.SubmitAnswer(r.Context(), req.SessionID, userID, req.Accepted)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

type sessionRequest struct {
	SessionID string `json:"sessionId"`
}

func (h *QuizHandler) revision(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req sessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	count, err := h.service.StartRevision(r.Context(), req.SessionID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"totalQuestions": count})
}

func (h *QuizHandler) timeRemaining(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	status, err := h.service.TimeRemaining(r.Context(), r.URL.Query().Get("sessionId"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *QuizHandler) save(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req sessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.service.Save(r.Context(), req.SessionID, userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

func (h *QuizHandler) hasSaved(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	has, err := h.service.HasSaved(r.Context(), userID, r.URL.Query().Get("subject"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"hasSavedGame": has})
}

type subjectRequest struct {
	Subject string `json:"subject"`
}

func (h *QuizHandler) restore(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req subjectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.service.Restore(r.Context(), userID, req.Subject)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *QuizHandler) complete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req sessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.service.Complete(r.Context(), req.SessionID, userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"completed": true})
}

func (h *QuizHandler) stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	stats, err := h.service.Stats(r.Context(), userID, r.URL.Query().Get("subject"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *QuizHandler) subjects(w http.ResponseWriter, r *http.Request) {
	infos, err := h.service.ListSubjects(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subjects": infos})
}

// --- shared helpers ---

type errorResponse struct {
	Error string `json:"error"`
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing X-User-ID header"})
		return "", false
	}
	return userID, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrBattleNotFound),
		errors.Is(err, domain.ErrNoSavedGame):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrAlreadyStarted),
		errors.Is(err, domain.ErrBattleFull),
		errors.Is(err, domain.ErrSelfJoin),
		errors.Is(err, domain.ErrNoRevision),
		errors.Is(err, domain.ErrNoQuestions),
		errors.Is(err, domain.ErrUnknownEmote):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
