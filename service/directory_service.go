package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/tutti/core"
	"github.com/layer-3/tutti/internal/logger"
	"github.com/layer-3/tutti/ports"
)

// DirectoryService serves members, instruments and ensembles to authenticated callers
type DirectoryService struct {
	dir ports.Directory
	log *logger.Logger
	now func() time.Time
}

// NewDirectoryService creates a new directory service
func NewDirectoryService(dir ports.Directory, log *logger.Logger) *DirectoryService {
	return &DirectoryService{
		dir: dir,
		log: log,
		now: time.Now,
	}
}

// GetUser returns the public profile of an active member
func (s *DirectoryService) GetUser(ctx context.Context, id string) (core.PublicUser, error) {
	user, err := s.dir.FindByID(ctx, id)
	if err != nil {
		return core.PublicUser{}, wrap(err, "failed to get user")
	}
	return user.Public(), nil
}

// UpdateProfile applies profile changes to the caller's account
func (s *DirectoryService) UpdateProfile(ctx context.Context, userID string, update core.ProfileUpdate) (core.User, error) {
	user, err := s.dir.FindByID(ctx, userID)
	if err != nil {
		return core.User{}, wrap(err, "failed to get user")
	}

	saved, err := s.dir.UpdateProfile(ctx, update.Apply(user, s.now()))
	if err != nil {
		return core.User{}, wrap(err, "failed to update user")
	}
	return saved, nil
}

// DeleteUser removes the caller's account. Tokens already issued stop authenticating.
func (s *DirectoryService) DeleteUser(ctx context.Context, userID string) error {
	if err := s.dir.Delete(ctx, userID); err != nil {
		return wrap(err, "failed to delete user")
	}
	s.log.Info("user deleted", "user_id", userID)
	return nil
}

// ListInstruments returns the instrument catalog
func (s *DirectoryService) ListInstruments(ctx context.Context) ([]core.Instrument, error) {
	list, err := s.dir.ListInstruments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}
	return list, nil
}

// ListUserInstruments returns the instruments the caller declared
func (s *DirectoryService) ListUserInstruments(ctx context.Context, userID string) ([]core.UserInstrument, error) {
	list, err := s.dir.ListUserInstruments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user instruments: %w", err)
	}
	return list, nil
}

// AddUserInstrument declares an instrument for the caller
func (s *DirectoryService) AddUserInstrument(ctx context.Context, userID string, ui core.UserInstrument) (core.UserInstrument, error) {
	if _, err := s.dir.FindInstrument(ctx, ui.InstrumentID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.UserInstrument{}, fmt.Errorf("%w: unknown instrument", core.ErrBadRequest)
		}
		return core.UserInstrument{}, fmt.Errorf("failed to get instrument: %w", err)
	}

	now := s.now()
	ui.ID = ""
	ui.UserID = userID
	ui.CreatedAt = now
	ui.UpdatedAt = now
	ui.DeactivatedAt = nil

	saved, err := s.dir.CreateUserInstrument(ctx, ui)
	if err != nil {
		return core.UserInstrument{}, fmt.Errorf("failed to create user instrument: %w", err)
	}
	return saved, nil
}

// UpdateUserInstrument changes one of the caller's declared instruments
func (s *DirectoryService) UpdateUserInstrument(ctx context.Context, userID, instrumentID string, update core.UserInstrumentUpdate) error {
	return wrap(s.dir.UpdateUserInstrument(ctx, userID, instrumentID, update), "failed to update user instrument")
}

// RemoveUserInstrument deactivates one of the caller's declared instruments
func (s *DirectoryService) RemoveUserInstrument(ctx context.Context, userID, instrumentID string) error {
	return wrap(s.dir.DeactivateUserInstrument(ctx, userID, instrumentID), "failed to remove user instrument")
}

// CreateEnsemble stores a new ensemble administered by the caller
func (s *DirectoryService) CreateEnsemble(ctx context.Context, adminID string, e core.Ensemble) (core.Ensemble, error) {
	now := s.now()
	e.ID = ""
	e.AdminUserID = adminID
	e.CreatedAt = now
	e.UpdatedAt = now
	e.DeactivatedAt = nil

	saved, err := s.dir.CreateEnsemble(ctx, e)
	if err != nil {
		return core.Ensemble{}, fmt.Errorf("failed to create ensemble: %w", err)
	}
	return saved, nil
}

// GetEnsemble returns an ensemble with its administrator.
// Admin is nil when the administrator no longer has an active account.
func (s *DirectoryService) GetEnsemble(ctx context.Context, id string) (core.EnsembleView, error) {
	e, err := s.dir.FindEnsemble(ctx, id)
	if err != nil {
		return core.EnsembleView{}, wrap(err, "failed to get ensemble")
	}

	view := core.EnsembleView{Ensemble: e}
	admin, err := s.dir.FindByID(ctx, e.AdminUserID)
	switch {
	case err == nil:
		public := admin.Public()
		view.Admin = &public
	case !errors.Is(err, core.ErrNotFound):
		return core.EnsembleView{}, fmt.Errorf("failed to get ensemble admin: %w", err)
	}
	return view, nil
}

// ListEnsembles searches active ensembles by name and city
func (s *DirectoryService) ListEnsembles(ctx context.Context, filter core.EnsembleFilter) (core.EnsemblePage, error) {
	if filter.Limit <= 0 {
		filter.Limit = core.DefaultEnsembleLimit
	}
	filter.Limit = min(filter.Limit, core.MaxEnsembleLimit)

	page, err := s.dir.ListEnsembles(ctx, filter)
	if err != nil {
		return core.EnsemblePage{}, fmt.Errorf("failed to list ensembles: %w", err)
	}
	return page, nil
}

// UpdateEnsemble applies changes to an ensemble the caller administers
func (s *DirectoryService) UpdateEnsemble(ctx context.Context, callerID, id string, update core.EnsembleUpdate) (core.Ensemble, error) {
	e, err := s.administered(ctx, callerID, id)
	if err != nil {
		return core.Ensemble{}, err
	}

	saved, err := s.dir.UpdateEnsemble(ctx, update.Apply(e, s.now()))
	if err != nil {
		return core.Ensemble{}, wrap(err, "failed to update ensemble")
	}
	return saved, nil
}

// DeleteEnsemble deactivates an ensemble the caller administers
func (s *DirectoryService) DeleteEnsemble(ctx context.Context, callerID, id string) (core.Ensemble, error) {
	if _, err := s.administered(ctx, callerID, id); err != nil {
		return core.Ensemble{}, err
	}

	e, err := s.dir.DeactivateEnsemble(ctx, id)
	if err != nil {
		return core.Ensemble{}, wrap(err, "failed to delete ensemble")
	}
	s.log.Info("ensemble deactivated", "ensemble_id", id, "admin_id", callerID)
	return e, nil
}

func (s *DirectoryService) administered(ctx context.Context, callerID, id string) (core.Ensemble, error) {
	e, err := s.dir.FindEnsemble(ctx, id)
	if err != nil {
		return core.Ensemble{}, wrap(err, "failed to get ensemble")
	}
	if e.AdminUserID != callerID {
		return core.Ensemble{}, core.ErrForbidden
	}
	return e, nil
}

// wrap passes core.ErrNotFound through untouched and annotates everything else
func wrap(err error, msg string) error {
	if err == nil || errors.Is(err, core.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}
