package artists

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talentdesk/backend/internal/auth"
	"github.com/talentdesk/backend/internal/models"
	"github.com/talentdesk/backend/pkg/apperr"
)

// memIdentity is an in-memory identity provider; the *Fn fields override behaviour.
type memIdentity struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*models.User
	passwords map[uuid.UUID]string

	CreateFn func(p auth.CreateUserParams) error
	UpdateFn func(id uuid.UUID, p auth.UpdateUserParams) error
	DeleteFn func(id uuid.UUID) error
}

func newMemIdentity() *memIdentity {
	return &memIdentity{users: map[uuid.UUID]*models.User{}, passwords: map[uuid.UUID]string{}}
}

func (m *memIdentity) CreateUser(_ context.Context, p auth.CreateUserParams) (*models.User, error) {
	if m.CreateFn != nil {
		if err := m.CreateFn(p); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	email := auth.NormalizeEmail(p.Email)
	for _, u := range m.users {
		if u.Email == email {
			return nil, apperr.New(apperr.KindConflict, "create user", "email already registered")
		}
	}
	u := &models.User{ID: uuid.New(), Email: email, Metadata: p.Metadata}
	if p.Confirmed {
		now := time.Now()
		u.EmailConfirmedAt = &now
	}
	m.users[u.ID] = u
	m.passwords[u.ID] = p.Password
	return u, nil
}

func (m *memIdentity) UpdateUser(_ context.Context, id uuid.UUID, p auth.UpdateUserParams) (*models.User, error) {
	if m.UpdateFn != nil {
		if err := m.UpdateFn(id, p); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("update user", "user not found")
	}
	if p.Email != nil {
		u.Email = auth.NormalizeEmail(*p.Email)
	}
	if v, ok := p.Metadata["first_name"]; ok {
		u.Metadata.FirstName = v
	}
	if v, ok := p.Metadata["last_name"]; ok {
		u.Metadata.LastName = v
	}
	return u, nil
}

func (m *memIdentity) DeleteUser(_ context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		if err := m.DeleteFn(id); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return apperr.NotFound("delete user", "user not found")
	}
	delete(m.users, id)
	return nil
}

func (m *memIdentity) user(id uuid.UUID) (*models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	return u, ok
}

func (m *memIdentity) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// memStore keeps artists in memory with the same filter and order as Repository.
type memStore struct {
	mu      sync.Mutex
	artists map[uuid.UUID]*models.Artist
	writes  int

	InsertFn func(p InsertParams) error
}

func newMemStore() *memStore {
	return &memStore{artists: map[uuid.UUID]*models.Artist{}}
}

func (m *memStore) Insert(_ context.Context, p InsertParams) (*models.Artist, error) {
	if m.InsertFn != nil {
		if err := m.InsertFn(p); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	a := &models.Artist{
		ID: uuid.New(), UserID: p.UserID, FirstName: p.FirstName, LastName: p.LastName,
		Email: p.Email, PhoneNumber: p.PhoneNumber, Social: p.Social,
		ProfilePicture: p.ProfilePicture, ManagerID: p.ManagerID, CreatedAt: now, UpdatedAt: now,
	}
	m.artists[a.ID] = a
	m.writes++
	return a, nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Artist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.artists[id]
	if !ok {
		return nil, apperr.NotFound("get artist", "artist not found")
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) GetProfile(ctx context.Context, id uuid.UUID) (*models.ArtistProfile, error) {
	a, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.ArtistProfile{ID: a.ID, FirstName: a.FirstName, LastName: a.LastName, Email: a.Email,
		PhoneNumber: a.PhoneNumber, Bio: a.Bio, ProfilePicture: a.ProfilePicture}, nil
}

func (m *memStore) List(_ context.Context, f ListFilter) ([]*models.ArtistDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]*models.ArtistDetail, 0, len(m.artists))
	for _, a := range m.artists {
		if f.ManagerID != nil && (a.ManagerID == nil || *a.ManagerID != *f.ManagerID) {
			continue
		}
		list = append(list, &models.ArtistDetail{Artist: *a})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].LastName != list[j].LastName {
			return list[i].LastName < list[j].LastName
		}
		return list[i].FirstName < list[j].FirstName
	})
	return list, nil
}

func (m *memStore) Update(_ context.Context, id uuid.UUID, p models.ArtistPatch) (*models.Artist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.artists[id]
	if !ok {
		return nil, apperr.NotFound("update artist", "artist not found")
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&a.FirstName, p.FirstName)
	set(&a.LastName, p.LastName)
	set(&a.Email, p.Email)
	set(&a.PhoneNumber, p.PhoneNumber)
	set(&a.Social, p.Social)
	set(&a.Website, p.Website)
	set(&a.Bio, p.Bio)
	set(&a.Address, p.Address)
	set(&a.ProfilePicture, p.ProfilePicture)
	m.writes++
	cp := *a
	return &cp, nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.artists[id]; !ok {
		return apperr.NotFound("delete artist", "artist not found")
	}
	delete(m.artists, id)
	m.writes++
	return nil
}

type fakeObjects struct {
	uploaded []string
	deleted  []string
	err      error
}

func (f *fakeObjects) UploadProfilePicture(_ context.Context, filename, _ string, body io.Reader, _ int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	url := "https://cdn.test/profile-pictures/1_" + filename
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeObjects) DeleteProfilePicture(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

type welcome struct{ email, password string }

type fakeNotifier struct {
	mu   sync.Mutex
	sent []welcome
}

func (f *fakeNotifier) Welcome(email, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, welcome{email, password})
}

type countingRecorder struct {
	mu         sync.Mutex
	outcomes   []string
	bestEffort []string
}

func (r *countingRecorder) RecordHTTPRequest(string, string, int, time.Duration) {}

func (r *countingRecorder) RecordProvisioning(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}
func (r *countingRecorder) RecordBestEffortFailure(step string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bestEffort = append(r.bestEffort, step)
}
func (r *countingRecorder) RecordNotification(bool) {}

var errBoom = errors.New("boom")
