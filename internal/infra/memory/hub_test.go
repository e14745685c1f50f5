package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"quiz-battle-service/internal/domain"
)

func TestHubDeliversToRoomSubscribers(t *testing.T) {
	ctx := context.Background()
	hub := NewHub()

	ch1, cancel1 := hub.Subscribe("battle:1", "u1")
	defer cancel1()
	ch2, cancel2 := hub.Subscribe("battle:1", "u2")
	defer cancel2()
	other, cancelOther := hub.Subscribe("battle:2", "u3")
	defer cancelOther()

	if err := hub.Publish(ctx, "battle:1", domain.Event{Name: "scores_update"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if event := <-ch1; event.Name != "scores_update" {
		t.Fatalf("u1 got %q", event.Name)
	}
	if event := <-ch2; event.Name != "scores_update" {
		t.Fatalf("u2 got %q", event.Name)
	}
	select {
	case event := <-other:
		t.Fatalf("battle:2 subscriber received foreign event %q", event.Name)
	default:
	}
}

func TestHubHonorsExclusion(t *testing.T) {
	ctx := context.Background()
	hub := NewHub()

	sender, cancelSender := hub.Subscribe("battle:1", "u1")
	defer cancelSender()
	opponent, cancelOpponent := hub.Subscribe("battle:1", "u2")
	defer cancelOpponent()

	if err := hub.Publish(ctx, "battle:1", domain.Event{Name: "emote_received", ExcludeUserID: "u1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if event := <-opponent; event.Name != "emote_received" {
		t.Fatalf("opponent got %q", event.Name)
	}
	select {
	case event := <-sender:
		t.Fatalf("excluded sender received %q", event.Name)
	default:
	}
}

func TestHubDropsStalestWhenSubscriberStalls(t *testing.T) {
	ctx := context.Background()
	hub := NewHub()

	ch, cancel := hub.Subscribe("battle:1", "u1")
	defer cancel()

	// Overflow the buffer without reading; publishes must not block.
	for i := 0; i < 12; i++ {
		if err := hub.Publish(ctx, "battle:1", domain.Event{Name: fmt.Sprintf("event-%d", i)}); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	first := <-ch
	if first.Name == "event-0" {
		t.Fatalf("stalest event should have been dropped")
	}
	// The newest event always survives.
	var last domain.Event
	for {
		select {
		case last = <-ch:
			continue
		default:
		}
		break
	}
	if last.Name != "event-11" {
		t.Fatalf("expected newest event last, got %q", last.Name)
	}
}

func TestHubCancelIsIdempotent(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe("battle:1", "u1")
	cancel()
	cancel() // second call must not panic on the closed channel
}

func TestHubPublishNeverBlocksOnAbandonedSubscriber(t *testing.T) {
	ctx := context.Background()
	hub := NewHub()

	// Subscribed but nobody ever reads the channel.
	_, cancel := hub.Subscribe("battle:1", "u1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for p := 0; p < 2; p++ {
			wg.Add(1)
			go func(p int) {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					_ = hub.Publish(ctx, "battle:1", domain.Event{Name: fmt.Sprintf("event-%d-%d", p, i)})
				}
			}(p)
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publish blocked on a subscriber nobody reads")
	}
}
