package emaillogs

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talentdesk/backend/internal/models"
	"github.com/talentdesk/backend/pkg/response"
)

// Lister reads email logs.
type Lister interface {
	ListByRecipient(ctx context.Context, email string) ([]*models.EmailLog, error)
}

// ArtistGetter resolves the artist whose mailbox is listed.
type ArtistGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Artist, error)
}

// Handler handles email log HTTP endpoints.
type Handler struct {
	logs    Lister
	artists ArtistGetter
	logger  *zap.Logger
}

// NewHandler creates an email logs handler.
func NewHandler(logs Lister, artists ArtistGetter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{logs: logs, artists: artists, logger: logger}
}

// ListForArtist handles GET /artists/:id/emails. Returns the notifications sent to the artist's address.
// Mount behind RequireRole(manager).
func (h *Handler) ListForArtist(c *gin.Context) {
	artistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid artist id")
		return
	}
	artist, err := h.artists.Get(c.Request.Context(), artistID)
	if err != nil {
		response.Error(c, err)
		return
	}
	logs, err := h.logs.ListByRecipient(c.Request.Context(), artist.Email)
	if err != nil {
		h.logger.Error("list email logs failed", zap.String("artist_id", artistID.String()), zap.Error(err))
		response.Internal(c, "failed to load email logs")
		return
	}
	response.OK(c, logs)
}
