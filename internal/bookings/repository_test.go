package bookings

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/talentdesk/backend/internal/models"
	"github.com/talentdesk/backend/pkg/apperr"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	repo := NewRepository(db)
	require.NoError(t, repo.AutoMigrate())
	return repo
}

func at(hour int) time.Time {
	return time.Date(2026, 3, 1, hour, 0, 0, 0, time.UTC)
}

func TestRepository_CreateDefaultsAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	artist, other := uuid.New(), uuid.New()

	late := &models.Booking{Title: "Late show", Start: at(20), End: at(22), ArtistID: artist}
	early := &models.Booking{Title: "Soundcheck", Start: at(9), End: at(10), Status: "confirmed", ArtistID: artist}
	foreign := &models.Booking{Title: "Elsewhere", Start: at(8), End: at(9), ArtistID: other}
	for _, b := range []*models.Booking{late, early, foreign} {
		require.NoError(t, repo.Create(ctx, b))
	}
	assert.NotEqual(t, uuid.Nil, late.ID)
	assert.Equal(t, models.BookingStatusPending, late.Status)

	list, err := repo.ListByArtist(ctx, artist)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Soundcheck", list[0].Title)
	assert.Equal(t, "confirmed", list[0].Status)
	assert.Equal(t, "Late show", list[1].Title)
	assert.True(t, list[1].Start.Equal(at(20)))

	empty, err := repo.ListByArtist(ctx, uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestRepository_StartAfterEndIsStoredUnchanged(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	artist := uuid.New()

	b := &models.Booking{Title: "Backwards", Start: at(18), End: at(12), Status: "whatever", ArtistID: artist}
	require.NoError(t, repo.Create(ctx, b))

	list, err := repo.ListByArtist(ctx, artist)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Start.Equal(at(18)))
	assert.True(t, list[0].End.Equal(at(12)))
	assert.Equal(t, "whatever", list[0].Status)
}

func TestRepository_UpdateScopedToArtist(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	artist := uuid.New()
	b := &models.Booking{Title: "Gig", Start: at(19), End: at(21), ArtistID: artist}
	require.NoError(t, repo.Create(ctx, b))

	status := models.BookingStatusCompleted
	end := at(23)
	updated, err := repo.Update(ctx, artist, b.ID, Changes{Status: &status, End: &end})
	require.NoError(t, err)
	assert.Equal(t, "Gig", updated.Title)
	assert.Equal(t, models.BookingStatusCompleted, updated.Status)
	assert.True(t, updated.End.Equal(end))

	_, err = repo.Update(ctx, uuid.New(), b.ID, Changes{Status: &status})
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "other artist cannot touch the booking")

	_, err = repo.Update(ctx, artist, b.ID, Changes{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestRepository_DeleteScopedToArtist(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	artist := uuid.New()
	b := &models.Booking{Title: "Gig", Start: at(19), End: at(21), ArtistID: artist}
	require.NoError(t, repo.Create(ctx, b))

	assert.True(t, apperr.Is(repo.Delete(ctx, uuid.New(), b.ID), apperr.KindNotFound))
	require.NoError(t, repo.Delete(ctx, artist, b.ID))
	assert.True(t, apperr.Is(repo.Delete(ctx, artist, b.ID), apperr.KindNotFound))

	list, err := repo.ListByArtist(ctx, artist)
	require.NoError(t, err)
	assert.Empty(t, list)
}

// newConstrainedRepo builds the bookings table by hand with the artist foreign
// key the Postgres migration declares, and turns on sqlite FK enforcement.
func newConstrainedRepo(t *testing.T) (*Repository, uuid.UUID) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Exec(`CREATE TABLE artists (id TEXT PRIMARY KEY)`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE bookings (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		start_at DATETIME NOT NULL,
		end_at DATETIME NOT NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'pending',
		artist_id TEXT NOT NULL REFERENCES artists(id) ON DELETE CASCADE,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error)

	artist := uuid.New()
	require.NoError(t, db.Exec(`INSERT INTO artists (id) VALUES (?)`, artist.String()).Error)
	return NewRepository(db), artist
}

func TestRepository_CreateForUnknownArtist(t *testing.T) {
	repo, artist := newConstrainedRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Booking{Title: "Gig", Start: at(18), End: at(20), ArtistID: artist}))

	err := repo.Create(ctx, &models.Booking{Title: "Ghost", Start: at(18), End: at(20), ArtistID: uuid.New()})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, "artist not found", apperr.Message(err))
}
