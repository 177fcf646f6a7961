package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Hub maintains artist_id -> set of connections watching that artist's bookings.
// With Redis configured, events go through the artist channel so every instance
// delivers them exactly once to its own clients.
type Hub struct {
	// artistID -> map[clientID]*Client
	artists  map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func() // cancel Redis subscription per artist
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishArtistEvent(ctx context.Context, artistID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to artist channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeArtist(artistID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub. redisPub and redisSub may be nil for a single instance.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		artists:  make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to an artist feed. Starts the Redis subscription for
// the artist if none is active, so a failed subscribe is retried by the next client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.artists[c.ArtistID] == nil {
		h.artists[c.ArtistID] = make(map[string]*Client)
	}
	if _, ok := h.subs[c.ArtistID]; !ok && h.redisSub != nil {
		artistID := c.ArtistID
		cancel, err := h.redisSub.SubscribeArtist(artistID, func(event string, payload []byte) {
			h.Broadcast(artistID, event, json.RawMessage(payload))
		})
		if err != nil {
			h.logger.Warn("subscribe artist channel failed", zap.String("artist_id", artistID.String()), zap.Error(err))
		} else {
			h.subs[artistID] = cancel
		}
	}
	h.artists[c.ArtistID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined artist feed", zap.String("client_id", c.ID), zap.String("artist_id", c.ArtistID.String()))
}

// Unregister removes a client. Cancels the Redis subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.artists[c.ArtistID]; ok {
		if _, ok := m[c.ID]; ok {
			delete(m, c.ID)
			close(c.send)
		}
		if len(m) == 0 {
			delete(h.artists, c.ArtistID)
			if cancel, ok := h.subs[c.ArtistID]; ok {
				cancel()
				delete(h.subs, c.ArtistID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left artist feed", zap.String("client_id", c.ID), zap.String("artist_id", c.ArtistID.String()))
}

// Broadcast sends an event to the local clients of an artist feed. Slow clients miss it.
func (h *Hub) Broadcast(artistID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			h.logger.Warn("marshal event failed", zap.String("event", event), zap.Error(err))
			return
		}
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.artists[artistID] {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("client buffer full, event dropped", zap.String("client_id", c.ID), zap.String("event", event))
		}
	}
}

// Publish delivers a booking event to every watcher of the artist on all instances.
func (h *Hub) Publish(ctx context.Context, artistID uuid.UUID, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event, err)
	}
	if h.redis != nil {
		return h.redis.PublishArtistEvent(ctx, artistID, event, data)
	}
	h.Broadcast(artistID, event, json.RawMessage(data))
	return nil
}

// Watchers returns the number of local clients on an artist feed.
func (h *Hub) Watchers(artistID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.artists[artistID])
}
