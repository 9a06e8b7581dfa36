package ports

import (
	"context"

	"github.com/layer-3/tutti/core"
)

// UserDirectory looks up and persists members.
// Lookups only return active users and fail with core.ErrNotFound otherwise.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (core.User, error)
	FindByID(ctx context.Context, id string) (core.User, error)

	// Create fails with core.ErrConflict when an active user already owns the email
	Create(ctx context.Context, user core.User) (core.User, error)
	UpdateCredential(ctx context.Context, id, credential string) error
	UpdateProfile(ctx context.Context, user core.User) (core.User, error)
	Delete(ctx context.Context, id string) error
}

// InstrumentCatalog serves instrument reference data
type InstrumentCatalog interface {
	ListInstruments(ctx context.Context) ([]core.Instrument, error)
	FindInstrument(ctx context.Context, id string) (core.Instrument, error)
}

// UserInstrumentStore keeps the instruments members declare
type UserInstrumentStore interface {
	ListUserInstruments(ctx context.Context, userID string) ([]core.UserInstrument, error)
	CreateUserInstrument(ctx context.Context, ui core.UserInstrument) (core.UserInstrument, error)
	UpdateUserInstrument(ctx context.Context, userID, instrumentID string, update core.UserInstrumentUpdate) error
	DeactivateUserInstrument(ctx context.Context, userID, instrumentID string) error
}

// EnsembleStore keeps ensembles
type EnsembleStore interface {
	CreateEnsemble(ctx context.Context, e core.Ensemble) (core.Ensemble, error)
	FindEnsemble(ctx context.Context, id string) (core.Ensemble, error)

	// ListEnsembles returns active ensembles oldest first, at most filter.Limit of them
	ListEnsembles(ctx context.Context, filter core.EnsembleFilter) (core.EnsemblePage, error)
	UpdateEnsemble(ctx context.Context, e core.Ensemble) (core.Ensemble, error)
	DeactivateEnsemble(ctx context.Context, id string) (core.Ensemble, error)
}

// Directory bundles every store the service layer needs
type Directory interface {
	UserDirectory
	InstrumentCatalog
	UserInstrumentStore
	EnsembleStore
}
