package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nimasrn/community-gateway/pkg/logger"
	"github.com/nimasrn/community-gateway/pkg/prom"
	"github.com/nimasrn/community-gateway/pkg/redis"
)

type Publisher interface {
	Publish(ctx context.Context, channel, event string, data any) error
}

func ChatRoomChannel(roomID string) string {
	return "chat-room-" + roomID
}

func ChatRoomEvent(roomID string) string {
	return "chat-room-" + roomID + "-event"
}

// Envelope is what subscribers of a channel receive.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RedisRelay fans events out over Redis pub/sub. A websocket edge subscribed
// to the channels forwards them to connected clients.
type RedisRelay struct {
	redis redis.RedisAdapter
}

func NewRedisRelay(adapter redis.RedisAdapter) *RedisRelay {
	return &RedisRelay{redis: adapter}
}

func (r *RedisRelay) Publish(ctx context.Context, channel, event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	payload, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := r.redis.Publish(ctx, channel, payload); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// NopRelay drops every event. Used when no Redis is configured.
type NopRelay struct{}

func (NopRelay) Publish(context.Context, string, string, any) error {
	return nil
}

// AsyncRelay publishes in the background so a slow relay never holds up the
// request that produced the event. Each publish gets its own deadline.
type AsyncRelay struct {
	next    Publisher
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsyncRelay(next Publisher, timeout time.Duration) *AsyncRelay {
	return &AsyncRelay{next: next, timeout: timeout}
}

// Publish always returns nil; failures are logged and counted.
func (a *AsyncRelay) Publish(_ context.Context, channel, event string, data any) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.next.Publish(ctx, channel, event, data); err != nil {
			prom.IncPublishFailure()
			logger.Warn("realtime publish failed", "channel", channel, "event", event, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every pending publish has finished.
func (a *AsyncRelay) Wait() {
	a.wg.Wait()
}
