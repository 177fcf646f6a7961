package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/talentdesk/backend/internal/auth"
	"github.com/talentdesk/backend/pkg/response"
)

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client is a single WebSocket connection watching one artist's bookings.
type Client struct {
	ID       string
	ArtistID uuid.UUID
	UserID   uuid.UUID
	Role     string
	hub      *Hub
	conn     *websocket.Conn
	send     chan WSMessage
	logger   *zap.Logger
}

// Authenticator validates the token passed on the upgrade request.
type Authenticator func(ctx context.Context, token string) (*auth.Claims, error)

// NewUpgrader returns an upgrader accepting the given origins ("*" or comma-separated).
func NewUpgrader(allowedOrigins string) *websocket.Upgrader {
	allowed := map[string]bool{}
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = true
		}
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed["*"] || allowed[origin]
		},
	}
}

// ServeWs handles GET /ws?artist_id=&token=: upgrades and streams the artist's booking events.
func ServeWs(hub *Hub, upgrader *websocket.Upgrader, authenticate Authenticator, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		artistIDStr := c.Query("artist_id")
		token := c.Query("token")
		if artistIDStr == "" || token == "" {
			response.BadRequest(c, "artist_id and token required")
			return
		}
		artistID, err := uuid.Parse(artistIDStr)
		if err != nil {
			response.BadRequest(c, "invalid artist_id")
			return
		}
		claims, err := authenticate(c.Request.Context(), token)
		if err != nil {
			response.Unauthorized(c, "invalid token")
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:       uuid.New().String(),
			ArtistID: artistID,
			UserID:   claims.UserID,
			Role:     claims.Role,
			hub:      hub,
			conn:     conn,
			send:     make(chan WSMessage, 64),
			logger:   logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

// readPump only keeps the connection alive; the feed is server-to-client.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
