package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/tutti/core"
	"github.com/layer-3/tutti/ports"
)

// DefaultInstruments seeds the instrument catalog of a fresh directory
var DefaultInstruments = []string{
	"Violin", "Viola", "Cello", "Double Bass", "Flute", "Oboe", "Clarinet",
	"Bassoon", "Horn", "Trumpet", "Trombone", "Tuba", "Percussion", "Harp", "Piano",
}

var _ ports.Directory = (*MemoryStore)(nil)

// MemoryStore is an in-memory implementation of the Directory interface.
// Used for local development and tests.
type MemoryStore struct {
	users           map[string]core.User
	instruments     map[string]core.Instrument
	userInstruments map[string]core.UserInstrument
	ensembles       map[string]core.Ensemble
	mu              sync.RWMutex
	now             func() time.Time
}

// NewMemoryStore creates a new in-memory store seeded with the given instrument names
func NewMemoryStore(instruments ...string) *MemoryStore {
	s := &MemoryStore{
		users:           make(map[string]core.User),
		instruments:     make(map[string]core.Instrument),
		userInstruments: make(map[string]core.UserInstrument),
		ensembles:       make(map[string]core.Ensemble),
		now:             time.Now,
	}
	for _, name := range instruments {
		id := uuid.NewString()
		s.instruments[id] = core.Instrument{ID: id, Name: name}
	}
	return s
}

// FindByEmail returns the active user owning email
func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email && u.Active() {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

// FindByID returns the active user with the given id
func (s *MemoryStore) FindByID(ctx context.Context, id string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok || !u.Active() {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

// Create stores a new user, enforcing email uniqueness among active users
func (s *MemoryStore) Create(ctx context.Context, user core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email && u.Active() {
			return core.User{}, core.ErrConflict
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	s.users[user.ID] = user
	return user, nil
}

// UpdateCredential replaces the stored credential of an active user
func (s *MemoryStore) UpdateCredential(ctx context.Context, id, credential string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || !u.Active() {
		return core.ErrNotFound
	}
	u.Credential = credential
	u.UpdatedAt = s.now()
	s.users[id] = u
	return nil
}

// UpdateProfile persists profile fields of an active user
func (s *MemoryStore) UpdateProfile(ctx context.Context, user core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[user.ID]
	if !ok || !current.Active() {
		return core.User{}, core.ErrNotFound
	}
	current.FullName = user.FullName
	current.Address = user.Address
	current.PhoneNumber = user.PhoneNumber
	current.Bio = user.Bio
	current.BirthDate = user.BirthDate
	current.NewsletterOptInAt = user.NewsletterOptInAt
	current.UpdatedAt = user.UpdatedAt
	s.users[user.ID] = current
	return current, nil
}

// Delete removes a user
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

// ListInstruments returns the catalog sorted by name
func (s *MemoryStore) ListInstruments(ctx context.Context) ([]core.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Instrument, 0, len(s.instruments))
	for _, i := range s.instruments {
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out, nil
}

// FindInstrument returns one catalog entry
func (s *MemoryStore) FindInstrument(ctx context.Context, id string) (core.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.instruments[id]
	if !ok {
		return core.Instrument{}, core.ErrNotFound
	}
	return i, nil
}

// ListUserInstruments returns the active instruments of a user
func (s *MemoryStore) ListUserInstruments(ctx context.Context, userID string) ([]core.UserInstrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.UserInstrument, 0)
	for _, ui := range s.userInstruments {
		if ui.UserID == userID && ui.DeactivatedAt == nil {
			out = append(out, ui)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out, nil
}

// CreateUserInstrument stores a declared instrument
func (s *MemoryStore) CreateUserInstrument(ctx context.Context, ui core.UserInstrument) (core.UserInstrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ui.ID == "" {
		ui.ID = uuid.NewString()
	}
	s.userInstruments[ui.ID] = ui
	return ui, nil
}

// UpdateUserInstrument changes an active declared instrument
func (s *MemoryStore) UpdateUserInstrument(ctx context.Context, userID, instrumentID string, update core.UserInstrumentUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ui := range s.userInstruments {
		if ui.UserID != userID || ui.InstrumentID != instrumentID || ui.DeactivatedAt != nil {
			continue
		}
		if update.Experience != nil {
			ui.Experience = *update.Experience
		}
		if update.Description != nil {
			ui.Description = *update.Description
		}
		if update.Genres != nil {
			ui.Genres = update.Genres
		}
		ui.UpdatedAt = s.now()
		s.userInstruments[id] = ui
		return nil
	}
	return core.ErrNotFound
}

// DeactivateUserInstrument hides a declared instrument
func (s *MemoryStore) DeactivateUserInstrument(ctx context.Context, userID, instrumentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ui := range s.userInstruments {
		if ui.UserID != userID || ui.InstrumentID != instrumentID || ui.DeactivatedAt != nil {
			continue
		}
		now := s.now()
		ui.DeactivatedAt = &now
		s.userInstruments[id] = ui
		return nil
	}
	return core.ErrNotFound
}

// CreateEnsemble stores a new ensemble
func (s *MemoryStore) CreateEnsemble(ctx context.Context, e core.Ensemble) (core.Ensemble, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.ensembles[e.ID] = e
	return e, nil
}

// FindEnsemble returns an active ensemble
func (s *MemoryStore) FindEnsemble(ctx context.Context, id string) (core.Ensemble, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.ensembles[id]
	if !ok || e.DeactivatedAt != nil {
		return core.Ensemble{}, core.ErrNotFound
	}
	return e, nil
}

// ListEnsembles returns active ensembles matching filter, oldest first
func (s *MemoryStore) ListEnsembles(ctx context.Context, filter core.EnsembleFilter) (core.EnsemblePage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]core.Ensemble, 0)
	for _, e := range s.ensembles {
		if e.DeactivatedAt != nil || !containsFold(e.Name, filter.Name) || !containsFold(e.City, filter.City) {
			continue
		}
		matches = append(matches, e)
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return matches[i].ID < matches[j].ID
	})

	page := core.EnsemblePage{Ensembles: matches, Total: len(matches)}
	if filter.Limit > 0 && len(matches) > filter.Limit {
		page.Ensembles = matches[:filter.Limit]
	}
	return page, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// UpdateEnsemble replaces an active ensemble
func (s *MemoryStore) UpdateEnsemble(ctx context.Context, e core.Ensemble) (core.Ensemble, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.ensembles[e.ID]
	if !ok || current.DeactivatedAt != nil {
		return core.Ensemble{}, core.ErrNotFound
	}
	s.ensembles[e.ID] = e
	return e, nil
}

// DeactivateEnsemble hides an ensemble and returns it as it was
func (s *MemoryStore) DeactivateEnsemble(ctx context.Context, id string) (core.Ensemble, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.ensembles[id]
	if !ok || e.DeactivatedAt != nil {
		return core.Ensemble{}, core.ErrNotFound
	}
	now := s.now()
	deactivated := e
	deactivated.DeactivatedAt = &now
	s.ensembles[id] = deactivated
	return e, nil
}

// Clear removes all members, declared instruments and ensembles.
// The instrument catalog is kept.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = make(map[string]core.User)
	s.userInstruments = make(map[string]core.UserInstrument)
	s.ensembles = make(map[string]core.Ensemble)
}
