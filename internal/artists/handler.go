package artists

import (
	"mime/multipart"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talentdesk/backend/internal/middleware"
	"github.com/talentdesk/backend/internal/models"
	"github.com/talentdesk/backend/pkg/response"
	"github.com/talentdesk/backend/pkg/storage"
)

// CreateRequest is the artist intake form, sent as JSON or multipart/form-data.
type CreateRequest struct {
	FirstName   string `json:"first_name" form:"first_name" binding:"required"`
	LastName    string `json:"last_name" form:"last_name" binding:"required"`
	Email       string `json:"email" form:"email" binding:"required,email"`
	PhoneNumber string `json:"phone_number" form:"phone_number"`
	Social      string `json:"social" form:"social"`
	ManagerID   string `json:"manager_id" form:"manager_id"`
}

// UpdateRequest is a partial artist update. ID is only read by the collection-level route.
type UpdateRequest struct {
	ID string `json:"id"`
	models.ArtistPatch
}

// Handler handles artist HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an artist handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// List handles GET /artists?managerId=.
func (h *Handler) List(c *gin.Context) {
	var f ListFilter
	if raw := c.Query("managerId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid managerId")
			return
		}
		f.ManagerID = &id
	}
	list, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /artists. A multipart request may carry a profile_picture file.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	in := ProvisionInput{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Social:      req.Social,
	}

	switch {
	case req.ManagerID != "":
		id, err := uuid.Parse(req.ManagerID)
		if err != nil {
			response.BadRequest(c, "invalid manager_id")
			return
		}
		in.ManagerID = &id
	case middleware.UserRole(c) == string(models.RoleManager):
		if id, ok := middleware.UserID(c); ok {
			in.ManagerID = &id
		}
	}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("profile_picture")
		if err == nil {
			f, perr := openPicture(fh)
			if perr != "" {
				response.BadRequest(c, perr)
				return
			}
			defer f.Close()
			in.Picture = &Picture{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Size:        fh.Size,
				Body:        f,
			}
		}
	}

	artist, err := h.svc.Provision(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, artist)
}

// openPicture checks the upload and opens it; the string is a client-facing problem.
func openPicture(fh *multipart.FileHeader) (multipart.File, string) {
	if fh.Size > storage.MaxProfilePictureSize {
		return nil, "profile_picture exceeds 5MB"
	}
	if !storage.ValidateImageType(fh.Header.Get("Content-Type"), fh.Filename) {
		return nil, "profile_picture must be jpeg, png, webp or gif"
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "failed to read profile_picture"
	}
	return f, ""
}

// Get handles GET /artists/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	artist, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, artist)
}

// Profile handles GET /artiste/:id.
func (h *Handler) Profile(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	p, err := h.svc.Profile(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

// Update handles PUT /artists/:id and PUT /artists?id= (id may also be in the body).
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	raw := c.Param("id")
	if raw == "" {
		raw = c.Query("id")
	}
	if raw == "" {
		raw = req.ID
	}
	id, ok := parseID(c, raw)
	if !ok {
		return
	}
	artist, err := h.svc.Update(c.Request.Context(), id, req.ArtistPatch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, artist)
}

// Delete handles DELETE /artists/:id and DELETE /artists?id=.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Deleted(c, id)
}

func (h *Handler) pathID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.Param("id")
	if raw == "" {
		raw = c.Query("id")
	}
	return parseID(c, raw)
}

func parseID(c *gin.Context, raw string) (uuid.UUID, bool) {
	if raw == "" {
		response.BadRequest(c, "artist id is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.BadRequest(c, "invalid artist id")
		return uuid.Nil, false
	}
	return id, true
}
