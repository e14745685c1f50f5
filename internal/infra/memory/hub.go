package memory

import (
	"context"
	"sync"

	"quiz-battle-service/internal/domain"
)

// Hub is the in-process event bus: room -> subscriber channels. Slow
// subscribers never block a publish; the stalest pending event is dropped in
// favor of the new one.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*subscriber]struct{}
}

type subscriber struct {
	userID string
	ch     chan domain.Event
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*subscriber]struct{})}
}

// Subscribe registers a listener on a room. The caller must invoke the
// returned cancel function to avoid leaks.
func (h *Hub) Subscribe(room, userID string) (<-chan domain.Event, func()) {
	sub := &subscriber{userID: userID, ch: make(chan domain.Event, 8)}

	h.mu.Lock()
	subs, ok := h.rooms[room]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.rooms[room] = subs
	}
	subs[sub] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if subs, ok := h.rooms[room]; ok {
			if _, present := subs[sub]; present {
				delete(subs, sub)
				close(sub.ch)
			}
			if len(subs) == 0 {
				delete(h.rooms, room)
			}
		}
		h.mu.Unlock()
	}
	return sub.ch, cancel
}

// Publish delivers the event to every subscriber in the room except the one
// the event excludes.
func (h *Hub) Publish(_ context.Context, room string, event domain.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.rooms[room] {
		if event.ExcludeUserID != "" && sub.userID == event.ExcludeUserID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			// Drop the stalest pending event rather than block the publisher.
			select {
			case <-sub.ch:
			default:
			}
			// A concurrent publisher may have refilled the slot; drop this
			// event sooner than block while holding the hub lock.
			select {
			case sub.ch <- event:
			default:
			}
		}
	}
	return nil
}
