package redis

import (
	"context"
	"testing"
	"time"

	"quiz-battle-service/internal/domain"
	"quiz-battle-service/internal/infra/memory"
)

func TestBridgeReplaysRemoteEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := newTestClient(t)

	// Two instances sharing one Redis: local bridges into its hub, remote
	// publishes from elsewhere.
	local := NewEventBus(client)
	remote := NewEventBus(client)

	hub := memory.NewHub()
	go func() { _ = local.Bridge(ctx, hub) }()
	// Give the pattern subscription time to register.
	time.Sleep(100 * time.Millisecond)

	ch, cancelSub := hub.Subscribe("battle:1", "u1")
	defer cancelSub()

	if err := remote.Publish(ctx, "battle:1", domain.Event{
		Name:    domain.EventScoresUpdate,
		Payload: domain.ScoresUpdatePayload{Player1Score: 10},
	}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case event := <-ch:
		if event.Name != domain.EventScoresUpdate {
			t.Fatalf("expected scores_update, got %q", event.Name)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("bridged event never arrived")
	}
}

func TestBridgeSkipsOwnEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := newTestClient(t)

	local := NewEventBus(client)
	remote := NewEventBus(client)

	hub := memory.NewHub()
	go func() { _ = local.Bridge(ctx, hub) }()
	time.Sleep(100 * time.Millisecond)

	ch, cancelSub := hub.Subscribe("battle:1", "u1")
	defer cancelSub()

	// The local instance already delivered this through its own hub; the
	// bridge must not replay it a second time.
	if err := local.Publish(ctx, "battle:1", domain.Event{Name: "own_event"}); err != nil {
		t.Fatalf("publish own: %v", err)
	}
	if err := remote.Publish(ctx, "battle:1", domain.Event{Name: "remote_event"}); err != nil {
		t.Fatalf("publish remote: %v", err)
	}

	select {
	case event := <-ch:
		if event.Name != "remote_event" {
			t.Fatalf("bridge replayed its own event %q", event.Name)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("remote event never arrived")
	}
	select {
	case event := <-ch:
		t.Fatalf("unexpected extra event %q", event.Name)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestBridgeHonorsExclusionMarker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := newTestClient(t)

	local := NewEventBus(client)
	remote := NewEventBus(client)

	hub := memory.NewHub()
	go func() { _ = local.Bridge(ctx, hub) }()
	time.Sleep(100 * time.Millisecond)

	sender, cancelSender := hub.Subscribe("battle:1", "u1")
	defer cancelSender()
	opponent, cancelOpponent := hub.Subscribe("battle:1", "u2")
	defer cancelOpponent()

	if err := remote.Publish(ctx, "battle:1", domain.Event{
		Name:          domain.EventEmoteReceived,
		Payload:       domain.EmoteReceivedPayload{Sender: "u1", EmoteID: "fire"},
		ExcludeUserID: "u1",
	}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case event := <-opponent:
		if event.Name != domain.EventEmoteReceived {
			t.Fatalf("opponent got %q", event.Name)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("emote never arrived")
	}
	select {
	case event := <-sender:
		t.Fatalf("excluded sender received %q", event.Name)
	case <-time.After(200 * time.Millisecond):
	}
}
