package artists

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentdesk/backend/internal/auth"
	"github.com/talentdesk/backend/internal/metrics"
	"github.com/talentdesk/backend/internal/models"
	"github.com/talentdesk/backend/pkg/apperr"
)

type fixture struct {
	identity *memIdentity
	store    *memStore
	objects  *fakeObjects
	notifier *fakeNotifier
	rec      *countingRecorder
	svc      *Service
}

func newFixture(opts Options) *fixture {
	f := &fixture{
		identity: newMemIdentity(),
		store:    newMemStore(),
		objects:  &fakeObjects{},
		notifier: &fakeNotifier{},
		rec:      &countingRecorder{},
	}
	f.svc = NewService(f.identity, f.store, f.objects, f.notifier, f.rec, nil, opts)
	return f
}

func strp(s string) *string { return &s }

func TestProvision_CreatesArtistLinkedToArtistUser(t *testing.T) {
	f := newFixture(Options{})
	managerID := uuid.New()

	artist, err := f.svc.Provision(context.Background(), ProvisionInput{
		FirstName: "Nina", LastName: "Simone", Email: "Nina@Example.com",
		PhoneNumber: "555-0100", Social: "@nina", ManagerID: &managerID,
		Picture: &Picture{Filename: "nina.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("png")},
	})
	require.NoError(t, err)

	user, ok := f.identity.user(artist.UserID)
	require.True(t, ok)
	assert.Equal(t, models.RoleArtist, user.Metadata.Role)
	assert.Equal(t, "Nina", user.Metadata.FirstName)
	assert.Equal(t, "Simone", user.Metadata.LastName)
	assert.Equal(t, managerID.String(), user.Metadata.ManagerID)
	assert.Equal(t, "nina@example.com", user.Email)
	assert.NotNil(t, user.EmailConfirmedAt)

	assert.Equal(t, user.Email, artist.Email)
	assert.Equal(t, &managerID, artist.ManagerID)
	assert.Equal(t, "https://cdn.test/profile-pictures/1_nina.png", artist.ProfilePicture)
	assert.Equal(t, []string{metrics.OutcomeSuccess}, f.rec.outcomes)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, user.Email, f.notifier.sent[0].email)
	assert.Equal(t, f.identity.passwords[user.ID], f.notifier.sent[0].password)
	_, err = uuid.Parse(f.notifier.sent[0].password)
	assert.NoError(t, err, "temporary password is a random v4 id")
}

func TestProvision_UploadFailureLeavesEmptyPicture(t *testing.T) {
	f := newFixture(Options{})
	f.objects.err = errBoom

	artist, err := f.svc.Provision(context.Background(), ProvisionInput{
		FirstName: "A", LastName: "B", Email: "a@example.com",
		Picture: &Picture{Filename: "a.jpg", Body: strings.NewReader("jpg")},
	})
	require.NoError(t, err)
	assert.Empty(t, artist.ProfilePicture)
	assert.Equal(t, []string{metrics.StepPictureUpload}, f.rec.bestEffort)
	assert.Len(t, f.notifier.sent, 1)
}

func TestProvision_NoObjectStoreStillProvisions(t *testing.T) {
	f := newFixture(Options{})
	f.svc = NewService(f.identity, f.store, nil, f.notifier, f.rec, nil, Options{})

	artist, err := f.svc.Provision(context.Background(), ProvisionInput{
		FirstName: "A", LastName: "B", Email: "a@example.com",
		Picture: &Picture{Filename: "a.jpg", Body: strings.NewReader("jpg")},
	})
	require.NoError(t, err)
	assert.Empty(t, artist.ProfilePicture)
	assert.Equal(t, []string{metrics.StepPictureUpload}, f.rec.bestEffort)
}

func TestProvision_DuplicateEmailFailsBeforeInsert(t *testing.T) {
	f := newFixture(Options{})
	in := ProvisionInput{FirstName: "A", LastName: "B", Email: "a@example.com"}
	_, err := f.svc.Provision(context.Background(), in)
	require.NoError(t, err)

	_, err = f.svc.Provision(context.Background(), in)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, 1, f.store.writes)
	assert.Len(t, f.notifier.sent, 1)
	assert.Equal(t, []string{metrics.OutcomeSuccess, metrics.OutcomeIdentityFailed}, f.rec.outcomes)
}

func TestProvision_InsertFailureLeavesUser(t *testing.T) {
	f := newFixture(Options{})
	f.store.InsertFn = func(InsertParams) error {
		return apperr.Wrap(apperr.KindStore, "insert artist", errBoom, "")
	}

	_, err := f.svc.Provision(context.Background(), ProvisionInput{FirstName: "A", LastName: "B", Email: "a@example.com"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindStore))
	assert.Equal(t, 1, f.identity.count(), "user remains without compensation")
	assert.Empty(t, f.notifier.sent)
	assert.Equal(t, []string{metrics.OutcomeInsertFailed}, f.rec.outcomes)
}

func TestProvision_InsertFailureCompensates(t *testing.T) {
	f := newFixture(Options{Compensate: true})
	f.store.InsertFn = func(InsertParams) error {
		return apperr.Wrap(apperr.KindStore, "insert artist", errBoom, "")
	}

	_, err := f.svc.Provision(context.Background(), ProvisionInput{
		FirstName: "A", LastName: "B", Email: "a@example.com",
		Picture: &Picture{Filename: "a.png", Body: strings.NewReader("png")},
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindStore))
	assert.Equal(t, 0, f.identity.count())
	assert.Equal(t, f.objects.uploaded, f.objects.deleted)
}

func TestProvision_CompensationFailureKeepsOriginalError(t *testing.T) {
	f := newFixture(Options{Compensate: true})
	f.store.InsertFn = func(InsertParams) error {
		return apperr.Wrap(apperr.KindStore, "insert artist", errBoom, "")
	}
	f.identity.DeleteFn = func(uuid.UUID) error { return errBoom }

	_, err := f.svc.Provision(context.Background(), ProvisionInput{FirstName: "A", LastName: "B", Email: "a@example.com"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindStore))
	assert.Equal(t, []string{metrics.StepCompensation}, f.rec.bestEffort)
}

func TestList_FiltersByManagerOrderedByLastName(t *testing.T) {
	f := newFixture(Options{})
	ctx := context.Background()
	mine, other := uuid.New(), uuid.New()
	for _, in := range []ProvisionInput{
		{FirstName: "Zed", LastName: "Young", Email: "z@example.com", ManagerID: &mine},
		{FirstName: "Amy", LastName: "Adams", Email: "amy@example.com", ManagerID: &mine},
		{FirstName: "Bob", LastName: "Baker", Email: "bob@example.com", ManagerID: &other},
		{FirstName: "Cat", LastName: "Cole", Email: "cat@example.com"},
	} {
		_, err := f.svc.Provision(ctx, in)
		require.NoError(t, err)
	}

	list, err := f.svc.List(ctx, ListFilter{ManagerID: &mine})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Adams", list[0].LastName)
	assert.Equal(t, "Young", list[1].LastName)
	for _, a := range list {
		assert.Equal(t, mine, *a.ManagerID)
	}

	all, err := f.svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestUpdate_MirrorsEmailAndNamesToUser(t *testing.T) {
	f := newFixture(Options{})
	ctx := context.Background()
	artist, err := f.svc.Provision(ctx, ProvisionInput{FirstName: "A", LastName: "B", Email: "old@example.com"})
	require.NoError(t, err)

	var mirrored auth.UpdateUserParams
	f.identity.UpdateFn = func(_ uuid.UUID, p auth.UpdateUserParams) error {
		mirrored = p
		return nil
	}
	updated, err := f.svc.Update(ctx, artist.ID, models.ArtistPatch{Email: strp("new@example.com"), LastName: strp("C"), Bio: strp("bio")})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.Equal(t, "C", updated.LastName)
	assert.Equal(t, "bio", updated.Bio)
	assert.Equal(t, "A", updated.FirstName)

	user, _ := f.identity.user(artist.UserID)
	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, "C", user.Metadata.LastName)
	assert.Equal(t, map[string]string{"last_name": "C"}, mirrored.Metadata)
}

func TestUpdate_NormalizesEmailOnArtistAndUser(t *testing.T) {
	f := newFixture(Options{})
	ctx := context.Background()
	artist, err := f.svc.Provision(ctx, ProvisionInput{FirstName: "A", LastName: "B", Email: "old@example.com"})
	require.NoError(t, err)

	var mirrored auth.UpdateUserParams
	f.identity.UpdateFn = func(_ uuid.UUID, p auth.UpdateUserParams) error {
		mirrored = p
		return nil
	}
	updated, err := f.svc.Update(ctx, artist.ID, models.ArtistPatch{Email: strp("  New.Address@Example.COM ")})
	require.NoError(t, err)
	assert.Equal(t, "new.address@example.com", updated.Email)
	require.NotNil(t, mirrored.Email)
	assert.Equal(t, updated.Email, *mirrored.Email)
}

func TestUpdate_MirrorFailureStillSucceeds(t *testing.T) {
	f := newFixture(Options{})
	ctx := context.Background()
	artist, err := f.svc.Provision(ctx, ProvisionInput{FirstName: "A", LastName: "B", Email: "old@example.com"})
	require.NoError(t, err)
	f.identity.UpdateFn = func(uuid.UUID, auth.UpdateUserParams) error { return errBoom }

	updated, err := f.svc.Update(ctx, artist.ID, models.ArtistPatch{Email: strp("new@example.com")})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.Equal(t, []string{metrics.StepMetadataMirror}, f.rec.bestEffort)
}

func TestUpdate_NonIdentityFieldsSkipMirror(t *testing.T) {
	f := newFixture(Options{})
	ctx := context.Background()
	artist, err := f.svc.Provision(ctx, ProvisionInput{FirstName: "A", LastName: "B", Email: "a@example.com"})
	require.NoError(t, err)
	called := false
	f.identity.UpdateFn = func(uuid.UUID, auth.UpdateUserParams) error {
		called = true
		return nil
	}

	_, err = f.svc.Update(ctx, artist.ID, models.ArtistPatch{Website: strp("https://a.test")})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestUpdate_Errors(t *testing.T) {
	f := newFixture(Options{})
	_, err := f.svc.Update(context.Background(), uuid.New(), models.ArtistPatch{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Update(context.Background(), uuid.New(), models.ArtistPatch{Bio: strp("x")})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDelete_RemovesArtistAndUser(t *testing.T) {
	f := newFixture(Options{})
	ctx := context.Background()
	artist, err := f.svc.Provision(ctx, ProvisionInput{FirstName: "A", LastName: "B", Email: "a@example.com"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, artist.ID))
	_, err = f.svc.Get(ctx, artist.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, 0, f.identity.count())
}

func TestDelete_MissingArtistIsNotFoundWithoutMutation(t *testing.T) {
	f := newFixture(Options{})
	ctx := context.Background()
	_, err := f.svc.Provision(ctx, ProvisionInput{FirstName: "A", LastName: "B", Email: "a@example.com"})
	require.NoError(t, err)
	writes := f.store.writes

	err = f.svc.Delete(ctx, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, writes, f.store.writes)
	assert.Equal(t, 1, f.identity.count())
}

func TestDelete_UserDeletionFailureIsIdentityError(t *testing.T) {
	f := newFixture(Options{})
	ctx := context.Background()
	artist, err := f.svc.Provision(ctx, ProvisionInput{FirstName: "A", LastName: "B", Email: "a@example.com"})
	require.NoError(t, err)
	f.identity.DeleteFn = func(uuid.UUID) error { return errBoom }

	err = f.svc.Delete(ctx, artist.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindIdentity))
	_, err = f.svc.Get(ctx, artist.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "artist row is gone, user is orphaned")
	assert.Equal(t, 1, f.identity.count())
}
