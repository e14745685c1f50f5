package http

import (
	"net/http"

	"quiz-battle-service/internal/app"
)

// BattleHandler covers the battle lifecycle operations that make sense over
// plain HTTP: creating and finding rooms. In-battle traffic goes over the
// websocket handler.
type BattleHandler struct {
	service *app.BattleService
}

func NewBattleHandler(service *app.BattleService) *BattleHandler {
	return &BattleHandler{service: service}
}

func (h *BattleHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/battle/create", h.create)
	mux.HandleFunc("POST /api/battle/join", h.join)
	mux.HandleFunc("POST /api/battle/matchmake", h.matchmake)
	mux.HandleFunc("POST /api/battle/cancel", h.cancel)
	mux.HandleFunc("GET /api/battle/info", h.info)
}

type createBattleRequest struct {
	Subject  string `json:"subject"`
	IsPublic bool   `json:"isPublic"`
}

func (h *BattleHandler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req createBattleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := h.service.Create(r.Context(), userID, req.Subject, req.IsPublic)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type joinBattleRequest struct {
	Code string `json:"code"`
}

func (h *BattleHandler) join(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req joinBattleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := h.service.Join(r.Context(), req.Code, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *BattleHandler) matchmake(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req subjectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.service.Matchmake(r.Context(), userID, req.Subject)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type battleRequest struct {
	BattleID string `json:"battleId"`
}

func (h *BattleHandler) cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req battleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.service.CancelWaiting(r.Context(), req.BattleID, userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

func (h *BattleHandler) info(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	view, err := h.service.Info(r.Context(), r.URL.Query().Get("battleId"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
