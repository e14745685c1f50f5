package http

import (
	"encoding/json"
	"log"
	"net/http"

	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/domain"
	"github.com/gorilla/websocket"
)

// RoomSubscriber hands out per-connection event streams for a battle room.
type RoomSubscriber interface {
	Subscribe(room, userID string) (<-chan domain.Event, func())
}

type WSHandler struct {
	battles  *app.BattleService
	rooms    RoomSubscriber
	upgrader websocket.Upgrader
}

func NewWSHandler(battles *app.BattleService, rooms RoomSubscriber) *WSHandler {
	return &WSHandler{
		battles: battles,
		rooms:   rooms,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type joinBattlePayload struct {
	BattleID string `json:"battleId"`
}

type readyPayload struct {
	BattleID string `json:"battleId"`
}

type battleAnswerPayload struct {
	BattleID  string `json:"battleId"`
	IsCorrect bool   `json:"isCorrect"`
	Points    int    `json:"points"`
}

type battleEndPayload struct {
	BattleID string `json:"battleId"`
}

type emotePayload struct {
	BattleID string `json:"battleId"`
	EmoteID  string `json:"emoteId"`
}

// ServeWS upgrades the connection and drives one player's side of a battle.
// The client must send join_battle before any other message type.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	var (
		battleID  string
		cancelSub func()
	)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "join_battle":
			var payload joinBattlePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid join_battle payload"}}
				continue
			}
			if battleID != "" {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "already joined a battle"}}
				continue
			}
			view, err := h.battles.Info(r.Context(), payload.BattleID, userID)
			if err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			battleID = payload.BattleID
			updates, cancel := h.rooms.Subscribe(app.Room(battleID), userID)
			cancelSub = cancel
			go func() {
				defer close(updatesDone)
				for {
					select {
					case event, ok := <-updates:
						if !ok {
							return
						}
						select {
						case send <- outboundMessage{Type: event.Name, Payload: event.Payload}:
						case <-closeSignals:
							return
						}
					case <-closeSignals:
						return
					}
				}
			}()
			send <- outboundMessage{Type: "battle_joined", Payload: view}
		case "ready":
			var payload readyPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.BattleID != battleID || battleID == "" {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid ready payload"}}
				continue
			}
			if err := h.battles.SetReady(r.Context(), battleID, userID); err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "answer":
			var payload battleAnswerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.BattleID != battleID || battleID == "" {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			if err := h.battles.RecordAnswer(r.Context(), battleID, userID, payload.IsCorrect, payload.Points); err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "battle_end":
			var payload battleEndPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.BattleID != battleID || battleID == "" {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid battle_end payload"}}
				continue
			}
			if _, err := h.battles.CheckAndFinish(r.Context(), battleID); err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "send_emote":
			var payload emotePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.BattleID != battleID || battleID == "" {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid send_emote payload"}}
				continue
			}
			if err := h.battles.SendEmote(r.Context(), battleID, userID, payload.EmoteID); err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		default:
			send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	if cancelSub != nil {
		cancelSub()
		<-updatesDone
	}
	close(send)
	<-writerDone
}
