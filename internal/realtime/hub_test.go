package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentdesk/backend/internal/auth"
)

func newTestClient(h *Hub, artistID uuid.UUID, buf int) *Client {
	return &Client{ID: uuid.NewString(), ArtistID: artistID, hub: h, send: make(chan WSMessage, buf)}
}

func TestHub_BroadcastScopedToArtist(t *testing.T) {
	h := NewHub(nil, nil, nil)
	a, b := uuid.New(), uuid.New()
	ca := newTestClient(h, a, 4)
	cb := newTestClient(h, b, 4)
	h.Register(ca)
	h.Register(cb)

	require.NoError(t, h.Publish(context.Background(), a, "booking_created", map[string]string{"title": "Gig"}))

	require.Len(t, ca.send, 1)
	msg := <-ca.send
	assert.Equal(t, "booking_created", msg.Event)
	assert.JSONEq(t, `{"title":"Gig"}`, string(msg.Data))
	assert.Empty(t, cb.send)
}

func TestHub_SlowClientDropsEvents(t *testing.T) {
	h := NewHub(nil, nil, nil)
	a := uuid.New()
	c := newTestClient(h, a, 1)
	h.Register(c)

	h.Broadcast(a, "one", nil)
	h.Broadcast(a, "two", nil)
	require.Len(t, c.send, 1)
	assert.Equal(t, "one", (<-c.send).Event)
}

func TestHub_UnregisterClosesSendAndCountsWatchers(t *testing.T) {
	h := NewHub(nil, nil, nil)
	a := uuid.New()
	c1, c2 := newTestClient(h, a, 1), newTestClient(h, a, 1)
	h.Register(c1)
	h.Register(c2)
	assert.Equal(t, 2, h.Watchers(a))

	h.Unregister(c1)
	_, open := <-c1.send
	assert.False(t, open)
	assert.Equal(t, 1, h.Watchers(a))

	h.Unregister(c2)
	h.Unregister(c2)
	assert.Equal(t, 0, h.Watchers(a))
}

// fakeBus stands in for Redis: publishing calls every subscriber of the artist.
type fakeBus struct {
	mu        sync.Mutex
	handlers  map[uuid.UUID]func(string, []byte)
	cancelled int
	failNext  int
}

func (b *fakeBus) PublishArtistEvent(_ context.Context, artistID uuid.UUID, event string, payload []byte) error {
	b.mu.Lock()
	h := b.handlers[artistID]
	b.mu.Unlock()
	if h != nil {
		h(event, payload)
	}
	return nil
}

func (b *fakeBus) SubscribeArtist(artistID uuid.UUID, handler func(string, []byte)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failNext > 0 {
		b.failNext--
		return nil, errors.New("redis unavailable")
	}
	b.handlers[artistID] = handler
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, artistID)
		b.cancelled++
	}, nil
}

func TestHub_RedisDeliversOnce(t *testing.T) {
	bus := &fakeBus{handlers: map[uuid.UUID]func(string, []byte){}}
	h := NewHub(nil, bus, bus)
	a := uuid.New()
	c := newTestClient(h, a, 4)
	h.Register(c)

	require.NoError(t, h.Publish(context.Background(), a, "booking_updated", map[string]int{"n": 1}))
	assert.Len(t, c.send, 1, "published through Redis only, no local double delivery")

	h.Unregister(c)
	assert.Equal(t, 1, bus.cancelled)
}

func TestHub_RetriesFailedSubscription(t *testing.T) {
	bus := &fakeBus{handlers: map[uuid.UUID]func(string, []byte){}, failNext: 1}
	h := NewHub(nil, bus, bus)
	a := uuid.New()
	first, second := newTestClient(h, a, 4), newTestClient(h, a, 4)

	h.Register(first)
	require.NoError(t, h.Publish(context.Background(), a, "booking_created", nil))
	assert.Empty(t, first.send)

	h.Register(second)
	require.NoError(t, h.Publish(context.Background(), a, "booking_updated", nil))
	require.Len(t, first.send, 1)
	require.Len(t, second.send, 1)
	assert.Equal(t, "booking_updated", (<-second.send).Event)
}

func TestServeWs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHub(nil, nil, nil)
	artistID := uuid.New()
	authn := func(_ context.Context, token string) (*auth.Claims, error) {
		if token != "good" {
			return nil, errors.New("bad token")
		}
		return &auth.Claims{UserID: uuid.New(), Role: "manager"}, nil
	}
	r := gin.New()
	r.GET("/ws", ServeWs(h, NewUpgrader("*"), authn, nil))
	srv := httptest.NewServer(r)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(base+"?artist_id="+artistID.String()+"&token=bad", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"?token=good", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(base+"?artist_id="+artistID.String()+"&token=good", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.Watchers(artistID) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, h.Publish(context.Background(), artistID, "booking_deleted", map[string]string{"id": "x"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "booking_deleted", msg.Event)
	var data map[string]string
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, "x", data["id"])
}

func TestNewUpgrader_CheckOrigin(t *testing.T) {
	up := NewUpgrader("http://app.test")
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, up.CheckOrigin(req))
	req.Header.Set("Origin", "http://app.test")
	assert.True(t, up.CheckOrigin(req))
	req.Header.Set("Origin", "http://evil.test")
	assert.False(t, up.CheckOrigin(req))
}
