package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "artist:"
	publishTimeout = 5 * time.Second
)

// redisPayload is the message published to Redis for cross-instance broadcast.
type redisPayload struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	At    int64           `json:"at"`
}

// RedisPubSub bridges artist feeds across instances with Redis pub/sub.
type RedisPubSub struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPubSub creates a Redis pub/sub bridge for artist events.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPubSub{client: client, logger: logger}
}

// ArtistChannel is the Redis channel carrying an artist's booking events.
func ArtistChannel(artistID uuid.UUID) string {
	return channelPrefix + artistID.String()
}

// PublishArtistEvent publishes an event to the artist's Redis channel.
func (r *RedisPubSub) PublishArtistEvent(ctx context.Context, artistID uuid.UUID, event string, payload []byte) error {
	body, err := json.Marshal(redisPayload{Event: event, Data: payload, At: time.Now().Unix()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := r.client.Publish(ctx, ArtistChannel(artistID), body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

// SubscribeArtist subscribes to an artist's Redis channel and calls handler for each message.
// Returns a cancel function to stop the subscription.
func (r *RedisPubSub) SubscribeArtist(artistID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error) {
	channel := ArtistChannel(artistID)
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := r.client.Subscribe(ctx, channel)
	if _, err = pubsub.Receive(ctx); err != nil {
		cancelCtx()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var p redisPayload
				if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
					r.logger.Debug("skip malformed event", zap.String("channel", channel), zap.Error(err))
					continue
				}
				handler(p.Event, p.Data)
			}
		}
	}()
	return cancelCtx, nil
}
