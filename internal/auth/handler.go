package auth

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talentdesk/backend/internal/models"
	"github.com/talentdesk/backend/pkg/apperr"
	"github.com/talentdesk/backend/pkg/response"
	"github.com/talentdesk/backend/pkg/utils"
)

// SignUpRequest is the body for POST /auth/sign-up.
type SignUpRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	FirstName   string `json:"first_name" binding:"required"`
	LastName    string `json:"last_name" binding:"required"`
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role"` // artist (default) or manager
}

// SignInRequest is the body for POST /auth/sign-in.
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with the session token.
type TokenResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// UserStore is the part of the identity provider the auth endpoints need.
type UserStore interface {
	CreateUser(ctx context.Context, p CreateUserParams) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Revoker records signed-out sessions.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	users   UserStore
	jwt     *JWTService
	revoker Revoker
	logger  *zap.Logger
}

// NewHandler creates an auth handler. revoker may be nil, in which case sign-out is client-side only.
func NewHandler(users UserStore, jwt *JWTService, revoker Revoker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{users: users, jwt: jwt, revoker: revoker, logger: logger}
}

// SignUp handles POST /auth/sign-up.
func (h *Handler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		response.BadRequest(c, "invalid role")
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), CreateUserParams{
		Email:     req.Email,
		Password:  req.Password,
		Confirmed: true,
		Metadata: models.UserMetadata{
			Role:        role,
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			PhoneNumber: req.PhoneNumber,
		},
	})
	if err != nil {
		h.logger.Warn("sign-up failed", zap.Error(err))
		response.Error(c, err)
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Metadata.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.Created(c, TokenResponse{Token: token, User: user})
}

// SignIn handles POST /auth/sign-in.
func (h *Handler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !apperr.Is(err, apperr.KindNotFound) {
			h.logger.Error("sign-in lookup failed", zap.Error(err))
			response.Error(c, err)
			return
		}
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if user.EmailConfirmedAt == nil {
		response.Unauthorized(c, "email not confirmed")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Metadata.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, User: user})
}

// SignOut handles POST /auth/sign-out. Requires the JWT middleware.
func (h *Handler) SignOut(c *gin.Context) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	if h.revoker != nil && claims.ExpiresAt != nil {
		if err := h.revoker.Revoke(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
			h.logger.Error("sign-out failed", zap.Error(err), zap.String("user_id", claims.UserID.String()))
			response.Internal(c, "failed to sign out")
			return
		}
	}
	response.NoContent(c)
}

// Me handles GET /auth/me and returns the signed-in user with metadata.
func (h *Handler) Me(c *gin.Context) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	user, err := h.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user)
}

// ClaimsFrom returns the claims stored by the JWT middleware.
func ClaimsFrom(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok && claims != nil
}
