package artists

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talentdesk/backend/internal/auth"
	"github.com/talentdesk/backend/internal/metrics"
	"github.com/talentdesk/backend/internal/models"
	"github.com/talentdesk/backend/pkg/apperr"
	"github.com/talentdesk/backend/pkg/utils"
)

// Identity is the identity provider as seen by the artist workflows.
type Identity interface {
	CreateUser(ctx context.Context, p auth.CreateUserParams) (*models.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, p auth.UpdateUserParams) (*models.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// Store persists artist rows.
type Store interface {
	Insert(ctx context.Context, p InsertParams) (*models.Artist, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Artist, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*models.ArtistProfile, error)
	List(ctx context.Context, f ListFilter) ([]*models.ArtistDetail, error)
	Update(ctx context.Context, id uuid.UUID, p models.ArtistPatch) (*models.Artist, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ObjectStore keeps profile pictures.
type ObjectStore interface {
	UploadProfilePicture(ctx context.Context, filename, contentType string, body io.Reader, size int64) (string, error)
	DeleteProfilePicture(ctx context.Context, url string) error
}

// Notifier sends the welcome email in the background. It must not block.
type Notifier interface {
	Welcome(email, tempPassword string)
}

// Picture is an uploaded profile picture.
type Picture struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ProvisionInput describes a new artist account.
type ProvisionInput struct {
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	Social      string
	ManagerID   *uuid.UUID
	Picture     *Picture
}

// Options tune the Service.
type Options struct {
	// Compensate removes the created user and picture when the artist insert fails.
	Compensate bool
	// CleanupTimeout bounds compensation calls, which run after the request may be gone.
	CleanupTimeout time.Duration
}

// Service runs the artist provisioning and lifecycle workflows.
type Service struct {
	identity Identity
	store    Store
	objects  ObjectStore
	notifier Notifier
	metrics  metrics.Recorder
	logger   *zap.Logger
	opts     Options
}

// NewService wires the workflow collaborators. objects may be nil when no object store is configured.
func NewService(identity Identity, store Store, objects ObjectStore, notifier Notifier, rec metrics.Recorder, logger *zap.Logger, opts Options) *Service {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CleanupTimeout <= 0 {
		opts.CleanupTimeout = 15 * time.Second
	}
	return &Service{
		identity: identity,
		store:    store,
		objects:  objects,
		notifier: notifier,
		metrics:  rec,
		logger:   logger,
		opts:     opts,
	}
}

// Provision creates the user, uploads the picture, inserts the artist and
// fires the welcome email. Only the user creation and the insert can fail the call.
func (s *Service) Provision(ctx context.Context, in ProvisionInput) (*models.Artist, error) {
	const op = "provision artist"
	if in.Email == "" {
		return nil, apperr.Validation(op, "email is required")
	}

	tempPassword := utils.GenerateTempPassword()
	meta := models.UserMetadata{
		Role:        models.RoleArtist,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		PhoneNumber: in.PhoneNumber,
		Social:      in.Social,
	}
	if in.ManagerID != nil {
		meta.ManagerID = in.ManagerID.String()
	}
	user, err := s.identity.CreateUser(ctx, auth.CreateUserParams{
		Email:     in.Email,
		Password:  tempPassword,
		Confirmed: true,
		Metadata:  meta,
	})
	if err != nil {
		s.metrics.RecordProvisioning(metrics.OutcomeIdentityFailed)
		s.logger.Error("create artist user failed", zap.String("email", in.Email), zap.Error(err))
		return nil, err
	}

	pictureURL := s.uploadPicture(ctx, user.ID, in.Picture)

	artist, err := s.store.Insert(ctx, InsertParams{
		UserID:         user.ID,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          user.Email,
		PhoneNumber:    in.PhoneNumber,
		Social:         in.Social,
		ProfilePicture: pictureURL,
		ManagerID:      in.ManagerID,
	})
	if err != nil {
		s.metrics.RecordProvisioning(metrics.OutcomeInsertFailed)
		s.logger.Error("insert artist failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		if s.opts.Compensate {
			s.compensate(user.ID, pictureURL)
		}
		return nil, err
	}

	s.metrics.RecordProvisioning(metrics.OutcomeSuccess)
	if s.notifier != nil {
		s.notifier.Welcome(user.Email, tempPassword)
	}
	return artist, nil
}

func (s *Service) uploadPicture(ctx context.Context, userID uuid.UUID, p *Picture) string {
	if p == nil || p.Body == nil {
		return ""
	}
	if s.objects == nil {
		s.metrics.RecordBestEffortFailure(metrics.StepPictureUpload)
		s.logger.Warn("profile picture dropped: object store not configured", zap.String("user_id", userID.String()))
		return ""
	}
	url, err := s.objects.UploadProfilePicture(ctx, p.Filename, p.ContentType, p.Body, p.Size)
	if err != nil {
		s.metrics.RecordBestEffortFailure(metrics.StepPictureUpload)
		s.logger.Warn("profile picture upload failed", zap.String("user_id", userID.String()), zap.Error(err))
		return ""
	}
	return url
}

// compensate runs on a fresh context so a cancelled request still cleans up.
func (s *Service) compensate(userID uuid.UUID, pictureURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.CleanupTimeout)
	defer cancel()

	if pictureURL != "" && s.objects != nil {
		if err := s.objects.DeleteProfilePicture(ctx, pictureURL); err != nil {
			s.metrics.RecordBestEffortFailure(metrics.StepCompensation)
			s.logger.Error("compensation: delete picture failed", zap.String("url", pictureURL), zap.Error(err))
		}
	}
	if err := s.identity.DeleteUser(ctx, userID); err != nil {
		s.metrics.RecordBestEffortFailure(metrics.StepCompensation)
		s.logger.Error("compensation: delete user failed", zap.String("user_id", userID.String()), zap.Error(err))
		return
	}
	s.logger.Info("compensation: removed orphaned user", zap.String("user_id", userID.String()))
}

// List returns artists with their user and manager, ordered by last name.
func (s *Service) List(ctx context.Context, f ListFilter) ([]*models.ArtistDetail, error) {
	return s.store.List(ctx, f)
}

// Get returns the full artist record.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Artist, error) {
	return s.store.GetByID(ctx, id)
}

// Profile returns the public profile card.
func (s *Service) Profile(ctx context.Context, id uuid.UUID) (*models.ArtistProfile, error) {
	return s.store.GetProfile(ctx, id)
}

// Update changes the artist row, then mirrors email and names onto the linked user.
// A failed mirror is logged; the updated artist is still returned.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch models.ArtistPatch) (*models.Artist, error) {
	if patch.Empty() {
		return nil, apperr.Validation("update artist", "no fields to update")
	}
	if patch.Email != nil {
		email := auth.NormalizeEmail(*patch.Email)
		patch.Email = &email
	}
	artist, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	mirror := auth.UpdateUserParams{Email: patch.Email, Metadata: map[string]string{}}
	if patch.FirstName != nil {
		mirror.Metadata["first_name"] = *patch.FirstName
	}
	if patch.LastName != nil {
		mirror.Metadata["last_name"] = *patch.LastName
	}
	if mirror.Email == nil && len(mirror.Metadata) == 0 {
		return artist, nil
	}
	if _, err := s.identity.UpdateUser(ctx, artist.UserID, mirror); err != nil {
		s.metrics.RecordBestEffortFailure(metrics.StepMetadataMirror)
		s.logger.Warn("mirror artist to user failed",
			zap.String("artist_id", id.String()),
			zap.String("user_id", artist.UserID.String()),
			zap.Error(err))
	}
	return artist, nil
}

// Delete removes the artist row and then its user.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	artist, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.identity.DeleteUser(ctx, artist.UserID); err != nil {
		s.logger.Error("delete artist user failed",
			zap.String("artist_id", id.String()),
			zap.String("user_id", artist.UserID.String()),
			zap.Error(err))
		return apperr.Wrap(apperr.KindIdentity, "delete artist user", err, "")
	}
	return nil
}
