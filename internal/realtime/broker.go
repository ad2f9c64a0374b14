package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/matchchat/internal/cache"
)

// Broker carries room events to every process that may hold members of the room.
type Broker interface {
	Publish(ctx context.Context, matchID uint64, event string, data any) error
}

// LocalBroker delivers straight into the in-process Hub.
type LocalBroker struct {
	hub *Hub
}

func NewLocalBroker(hub *Hub) *LocalBroker {
	return &LocalBroker{hub: hub}
}

func (b *LocalBroker) Publish(_ context.Context, matchID uint64, event string, data any) error {
	b.hub.Deliver(matchID, event, data)
	return nil
}

const (
	roomChannelPrefix  = "chat:match:"
	roomChannelPattern = roomChannelPrefix + "*"
)

// RoomChannel is the Redis channel carrying events of one match room.
func RoomChannel(matchID uint64) string {
	return roomChannelPrefix + strconv.FormatUint(matchID, 10)
}

// envelope is what travels over Redis.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RedisBroker fans room events out across processes with Redis pub/sub.
//
// Behavior:
//   - Publish sends to chat:match:<id>.
//   - Start PSUBSCRIBEs chat:match:* and delivers into the local Hub.
//   - A single subscription connection keeps one publisher's order per room.
type RedisBroker struct {
	cache *cache.RedisCache
	hub   *Hub
	log   *slog.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

func NewRedisBroker(rc *cache.RedisCache, hub *Hub, log *slog.Logger) *RedisBroker {
	return &RedisBroker{cache: rc, hub: hub, log: log}
}

// Start subscribes and returns once the subscription is confirmed, so
// nothing published afterwards is missed. Delivery runs until ctx is done
// or Close is called.
func (b *RedisBroker) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pubsub != nil {
		return nil
	}

	ps, err := b.cache.PSubscribe(ctx, roomChannelPattern)
	if err != nil {
		return err
	}
	b.pubsub = ps
	b.done = make(chan struct{})

	go b.run(ctx, ps, b.done)
	return nil
}

func (b *RedisBroker) run(ctx context.Context, ps *redis.PubSub, done chan struct{}) {
	defer close(done)

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.dispatch(msg)
		}
	}
}

func (b *RedisBroker) dispatch(msg *redis.Message) {
	matchID, err := strconv.ParseUint(strings.TrimPrefix(msg.Channel, roomChannelPrefix), 10, 64)
	if err != nil {
		b.log.Warn("ignoring event on unexpected channel", "channel", msg.Channel)
		return
	}

	var env envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		b.log.Warn("ignoring malformed room event", "channel", msg.Channel, "err", err)
		return
	}
	b.hub.Deliver(matchID, env.Event, env.Data)
}

func (b *RedisBroker) Publish(ctx context.Context, matchID uint64, event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event, err)
	}
	payload, err := json.Marshal(envelope{Event: event, Data: raw})
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", event, err)
	}
	return b.cache.Publish(ctx, RoomChannel(matchID), payload)
}

// Close stops the subscription and waits for the delivery loop to exit.
func (b *RedisBroker) Close() error {
	b.mu.Lock()
	ps, done := b.pubsub, b.done
	b.pubsub, b.done = nil, nil
	b.mu.Unlock()

	if ps == nil {
		return nil
	}
	err := ps.Close()
	<-done
	return err
}
