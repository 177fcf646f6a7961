package bookings

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talentdesk/backend/internal/models"
	"github.com/talentdesk/backend/pkg/response"
)

// Booking feed event types.
const (
	EventCreated = "booking_created"
	EventUpdated = "booking_updated"
	EventDeleted = "booking_deleted"
)

// Store is the booking persistence used by the handler.
type Store interface {
	ListByArtist(ctx context.Context, artistID uuid.UUID) ([]models.Booking, error)
	Create(ctx context.Context, b *models.Booking) error
	Update(ctx context.Context, artistID, id uuid.UUID, c Changes) (*models.Booking, error)
	Delete(ctx context.Context, artistID, id uuid.UUID) error
}

// Publisher pushes booking events to the artist's live feed.
type Publisher interface {
	Publish(ctx context.Context, artistID uuid.UUID, eventType string, payload interface{}) error
}

// CreateRequest is the body for POST /bookings[/:artistId].
type CreateRequest struct {
	Title    string     `json:"title"`
	Start    *time.Time `json:"start"`
	End      *time.Time `json:"end"`
	Status   string     `json:"status"`
	ArtistID string     `json:"artistId"`
}

// UpdateRequest is the body for PUT /bookings/:artistId.
type UpdateRequest struct {
	ID     string     `json:"id"`
	Title  *string    `json:"title"`
	Start  *time.Time `json:"start"`
	End    *time.Time `json:"end"`
	Status *string    `json:"status"`
}

// Handler handles booking HTTP endpoints.
type Handler struct {
	store  Store
	feed   Publisher
	logger *zap.Logger
}

// NewHandler creates a booking handler. feed may be nil.
func NewHandler(store Store, feed Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, feed: feed, logger: logger}
}

// List handles GET /bookings/:artistId.
func (h *Handler) List(c *gin.Context) {
	artistID, ok := parseUUID(c, c.Param("artistId"), "artistId")
	if !ok {
		return
	}
	list, err := h.store.ListByArtist(c.Request.Context(), artistID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /bookings/:artistId and POST /bookings (artistId in body).
// start after end is accepted as is.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Title == "" || req.Start == nil || req.End == nil {
		response.BadRequest(c, "title, start and end are required")
		return
	}
	raw := c.Param("artistId")
	if raw == "" {
		raw = req.ArtistID
	}
	artistID, ok := parseUUID(c, raw, "artistId")
	if !ok {
		return
	}

	b := &models.Booking{
		Title:    req.Title,
		Start:    req.Start.UTC(),
		End:      req.End.UTC(),
		Status:   req.Status,
		ArtistID: artistID,
	}
	if err := h.store.Create(c.Request.Context(), b); err != nil {
		response.Error(c, err)
		return
	}
	h.publish(c.Request.Context(), artistID, EventCreated, b)
	response.Created(c, b)
}

// Update handles PUT /bookings/:artistId; the booking id comes from the body or ?id=.
func (h *Handler) Update(c *gin.Context) {
	artistID, ok := parseUUID(c, c.Param("artistId"), "artistId")
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	raw := req.ID
	if raw == "" {
		raw = c.Query("id")
	}
	id, ok := parseUUID(c, raw, "id")
	if !ok {
		return
	}

	changes := Changes{Title: req.Title, Status: req.Status}
	if req.Start != nil {
		t := req.Start.UTC()
		changes.Start = &t
	}
	if req.End != nil {
		t := req.End.UTC()
		changes.End = &t
	}
	b, err := h.store.Update(c.Request.Context(), artistID, id, changes)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.publish(c.Request.Context(), artistID, EventUpdated, b)
	response.OK(c, b)
}

// Delete handles DELETE /bookings/:artistId?id=.
func (h *Handler) Delete(c *gin.Context) {
	artistID, ok := parseUUID(c, c.Param("artistId"), "artistId")
	if !ok {
		return
	}
	id, ok := parseUUID(c, c.Query("id"), "id")
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), artistID, id); err != nil {
		response.Error(c, err)
		return
	}
	h.publish(c.Request.Context(), artistID, EventDeleted, gin.H{"id": id, "artistId": artistID})
	response.Deleted(c, id)
}

func (h *Handler) publish(ctx context.Context, artistID uuid.UUID, eventType string, payload interface{}) {
	if h.feed == nil {
		return
	}
	if err := h.feed.Publish(ctx, artistID, eventType, payload); err != nil {
		h.logger.Warn("publish booking event failed",
			zap.String("artist_id", artistID.String()),
			zap.String("event", eventType),
			zap.Error(err))
	}
}

func parseUUID(c *gin.Context, raw, name string) (uuid.UUID, bool) {
	if raw == "" {
		response.BadRequest(c, name+" is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
