package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestWebSocketBattleFlow(t *testing.T) {
	ctx := context.Background()

	hub := memory.NewHub()
	repo := memory.NewQuestionRepository(memory.NewStaticBankLoader(sampleBanks()), time.Minute)
	battles := app.NewBattleService(memory.NewBattleStore(), repo, memory.NewGameArchive(), hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/battle", NewWSHandler(battles, hub).ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	view, err := battles.Create(ctx, "u1", "geo", false)
	if err != nil {
		t.Fatalf("create battle: %v", err)
	}
	if _, err := battles.Join(ctx, view.Code, "u2"); err != nil {
		t.Fatalf("join battle: %v", err)
	}

	u := "ws" + server.URL[len("http"):] + "/ws/battle?userId=u1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	join := map[string]any{
		"type":    "join_battle",
		"payload": map[string]any{"battleId": view.ID},
	}
	if err := conn.WriteJSON(join); err != nil {
		t.Fatalf("write join: %v", err)
	}
	msgType, payload := readNext(conn, t, "battle_joined")
	if payload["id"] != view.ID {
		t.Fatalf("unexpected %s payload: %v", msgType, payload)
	}

	// Ready both sides: u1 over the socket, u2 through the service. The
	// start broadcast must reach the socket.
	ready := map[string]any{
		"type":    "ready",
		"payload": map[string]any{"battleId": view.ID},
	}
	if err := conn.WriteJSON(ready); err != nil {
		t.Fatalf("write ready: %v", err)
	}
	if err := battles.SetReady(ctx, view.ID, "u2"); err != nil {
		t.Fatalf("ready u2: %v", err)
	}

	startSeen := false
	for i := 0; i < 4 && !startSeen; i++ {
		typ, _ := readNext(conn, t, "")
		if typ == "battle_start" {
			startSeen = true
		}
	}
	if !startSeen {
		t.Fatalf("battle_start never reached the socket")
	}
}

func TestWebSocketRejectsMessagesBeforeJoin(t *testing.T) {
	hub := memory.NewHub()
	repo := memory.NewQuestionRepository(memory.NewStaticBankLoader(sampleBanks()), time.Minute)
	battles := app.NewBattleService(memory.NewBattleStore(), repo, memory.NewGameArchive(), hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/battle", NewWSHandler(battles, hub).ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws/battle?userId=u1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	ready := map[string]any{
		"type":    "ready",
		"payload": map[string]any{"battleId": "whatever"},
	}
	if err := conn.WriteJSON(ready); err != nil {
		t.Fatalf("write: %v", err)
	}
	readNext(conn, t, "error")
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
