package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"quiz-battle-service/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "events:"

// envelope is the wire form of a room event. Origin identifies the
// publishing instance so the bridge can skip events it already delivered
// locally; the exclusion marker travels with the event so remote instances
// can honor it at delivery time.
type envelope struct {
	Room          string          `json:"room"`
	Name          string          `json:"event"`
	Payload       json.RawMessage `json:"data"`
	ExcludeUserID string          `json:"excludeUserId,omitempty"`
	Origin        string          `json:"origin"`
}

// EventBus publishes room events to Redis pub/sub so battles stay in sync
// when the two players land on different instances.
type EventBus struct {
	client     *redis.Client
	instanceID string
}

func NewEventBus(client *redis.Client) *EventBus {
	return &EventBus{client: client, instanceID: uuid.NewString()}
}

func (b *EventBus) Publish(ctx context.Context, room string, event domain.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %w", event.Name, err)
	}
	raw, err := json.Marshal(envelope{
		Room:          room,
		Name:          event.Name,
		Payload:       payload,
		ExcludeUserID: event.ExcludeUserID,
		Origin:        b.instanceID,
	})
	if err != nil {
		return fmt.Errorf("pubsub: marshal envelope: %w", err)
	}
	return b.client.Publish(ctx, channelPrefix+room, raw).Err()
}

// LocalBus re-delivers events into an in-process hub.
type LocalBus interface {
	Publish(ctx context.Context, room string, event domain.Event) error
}

// Bridge subscribes to all room channels and replays events published by
// other instances into the local hub. Blocks until the context is canceled.
func (b *EventBus) Bridge(ctx context.Context, local LocalBus) error {
	sub := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("pubsub: bad envelope on %s: %v", msg.Channel, err)
				continue
			}
			if env.Origin == b.instanceID {
				continue
			}
			room := env.Room
			if room == "" {
				room = strings.TrimPrefix(msg.Channel, channelPrefix)
			}
			event := domain.Event{
				Name:          env.Name,
				Payload:       env.Payload,
				ExcludeUserID: env.ExcludeUserID,
			}
			if err := local.Publish(ctx, room, event); err != nil {
				log.Printf("pubsub: local redeliver failed: %v", err)
			}
		}
	}
}
