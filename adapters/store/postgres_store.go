package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/layer-3/tutti/adapters/store/migrations"
	"github.com/layer-3/tutti/core"
	"github.com/layer-3/tutti/ports"
	"github.com/pressly/goose/v3"
)

const uniqueViolation = "23505"

var _ ports.Directory = (*PostgresStore)(nil)

// PostgresStore is a PostgreSQL implementation of the Directory interface
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore wraps an open database handle
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:  db,
		now: time.Now,
	}
}

// OpenPostgres connects through the pgx stdlib driver and applies migrations
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate postgres: %w", err)
	}

	return NewPostgresStore(db), nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate runs the embedded goose migrations
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// Ping checks the connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

const userColumns = `id, full_name, email, credential, accepted_toc_at, newsletter_opt_in_at,
	address, phone_number, bio, birth_date, created_at, updated_at, deactivated_at`

func scanUser(row interface{ Scan(...any) error }) (core.User, error) {
	var (
		u           core.User
		optIn       sql.NullTime
		deactivated sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.FullName, &u.Email, &u.Credential, &u.AcceptedTocAt, &optIn,
		&u.Address, &u.PhoneNumber, &u.Bio, &u.BirthDate, &u.CreatedAt, &u.UpdatedAt, &deactivated,
	)
	if err != nil {
		return core.User{}, err
	}
	u.NewsletterOptInAt = timePtr(optIn)
	u.DeactivatedAt = timePtr(deactivated)
	return u, nil
}

// FindByEmail returns the active user owning email
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (core.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND deactivated_at IS NULL`

	u, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return core.User{}, notFound(err, "failed to get user by email")
	}
	return u, nil
}

// FindByID returns the active user with the given id
func (s *PostgresStore) FindByID(ctx context.Context, id string) (core.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return core.User{}, core.ErrNotFound
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deactivated_at IS NULL`

	u, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return core.User{}, notFound(err, "failed to get user by id")
	}
	return u, nil
}

// Create inserts a user; the partial unique index turns duplicate emails into core.ErrConflict
func (s *PostgresStore) Create(ctx context.Context, u core.User) (core.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	query := `INSERT INTO users (` + userColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			  RETURNING ` + userColumns

	saved, err := scanUser(s.db.QueryRowContext(ctx, query,
		u.ID, u.FullName, u.Email, u.Credential, u.AcceptedTocAt, nullTime(u.NewsletterOptInAt),
		u.Address, u.PhoneNumber, u.Bio, u.BirthDate, u.CreatedAt, u.UpdatedAt, nullTime(u.DeactivatedAt),
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return core.User{}, core.ErrConflict
		}
		return core.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return saved, nil
}

// UpdateCredential replaces the stored credential of an active user
func (s *PostgresStore) UpdateCredential(ctx context.Context, id, credential string) error {
	query := `UPDATE users SET credential = $2, updated_at = $3 WHERE id = $1 AND deactivated_at IS NULL`

	res, err := s.db.ExecContext(ctx, query, id, credential, s.now())
	if err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}
	return affected(res, "failed to update credential")
}

// UpdateProfile persists profile fields of an active user
func (s *PostgresStore) UpdateProfile(ctx context.Context, u core.User) (core.User, error) {
	query := `UPDATE users
			  SET full_name = $2, address = $3, phone_number = $4, bio = $5, birth_date = $6,
			      newsletter_opt_in_at = $7, updated_at = $8
			  WHERE id = $1 AND deactivated_at IS NULL
			  RETURNING ` + userColumns

	saved, err := scanUser(s.db.QueryRowContext(ctx, query,
		u.ID, u.FullName, u.Address, u.PhoneNumber, u.Bio, u.BirthDate,
		nullTime(u.NewsletterOptInAt), u.UpdatedAt,
	))
	if err != nil {
		return core.User{}, notFound(err, "failed to update user")
	}
	return saved, nil
}

// Delete removes a user and, by cascade, the instruments they declared
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return affected(res, "failed to delete user")
}

// ListInstruments returns the catalog sorted by name
func (s *PostgresStore) ListInstruments(ctx context.Context) ([]core.Instrument, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM instruments ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}
	defer rows.Close()

	out := make([]core.Instrument, 0)
	for rows.Next() {
		var i core.Instrument
		if err := rows.Scan(&i.ID, &i.Name); err != nil {
			return nil, fmt.Errorf("failed to scan instrument: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// FindInstrument returns one catalog entry
func (s *PostgresStore) FindInstrument(ctx context.Context, id string) (core.Instrument, error) {
	if _, err := uuid.Parse(id); err != nil {
		return core.Instrument{}, core.ErrNotFound
	}

	var i core.Instrument
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM instruments WHERE id = $1`, id).Scan(&i.ID, &i.Name)
	if err != nil {
		return core.Instrument{}, notFound(err, "failed to get instrument")
	}
	return i, nil
}

const userInstrumentColumns = `id, user_id, instrument_id, experience, description, genres, created_at, updated_at`

func scanUserInstrument(row interface{ Scan(...any) error }) (core.UserInstrument, error) {
	var (
		ui     core.UserInstrument
		genres []byte
	)
	if err := row.Scan(&ui.ID, &ui.UserID, &ui.InstrumentID, &ui.Experience, &ui.Description, &genres, &ui.CreatedAt, &ui.UpdatedAt); err != nil {
		return core.UserInstrument{}, err
	}
	if err := json.Unmarshal(genres, &ui.Genres); err != nil {
		return core.UserInstrument{}, fmt.Errorf("failed to decode genres: %w", err)
	}
	return ui, nil
}

// ListUserInstruments returns the active instruments of a user
func (s *PostgresStore) ListUserInstruments(ctx context.Context, userID string) ([]core.UserInstrument, error) {
	query := `SELECT ` + userInstrumentColumns + ` FROM user_instruments
			  WHERE user_id = $1 AND deactivated_at IS NULL ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user instruments: %w", err)
	}
	defer rows.Close()

	out := make([]core.UserInstrument, 0)
	for rows.Next() {
		ui, err := scanUserInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user instrument: %w", err)
		}
		out = append(out, ui)
	}
	return out, rows.Err()
}

// CreateUserInstrument stores a declared instrument
func (s *PostgresStore) CreateUserInstrument(ctx context.Context, ui core.UserInstrument) (core.UserInstrument, error) {
	if ui.ID == "" {
		ui.ID = uuid.NewString()
	}
	genres, err := json.Marshal(nonNilGenres(ui.Genres))
	if err != nil {
		return core.UserInstrument{}, fmt.Errorf("failed to encode genres: %w", err)
	}

	query := `INSERT INTO user_instruments (` + userInstrumentColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING ` + userInstrumentColumns

	saved, err := scanUserInstrument(s.db.QueryRowContext(ctx, query,
		ui.ID, ui.UserID, ui.InstrumentID, ui.Experience, ui.Description, genres, ui.CreatedAt, ui.UpdatedAt,
	))
	if err != nil {
		return core.UserInstrument{}, fmt.Errorf("failed to create user instrument: %w", err)
	}
	return saved, nil
}

// UpdateUserInstrument changes an active declared instrument
func (s *PostgresStore) UpdateUserInstrument(ctx context.Context, userID, instrumentID string, update core.UserInstrumentUpdate) error {
	var genres []byte
	if update.Genres != nil {
		var err error
		if genres, err = json.Marshal(update.Genres); err != nil {
			return fmt.Errorf("failed to encode genres: %w", err)
		}
	}

	query := `UPDATE user_instruments
			  SET experience = COALESCE($3, experience),
			      description = COALESCE($4, description),
			      genres = COALESCE($5::jsonb, genres),
			      updated_at = $6
			  WHERE user_id = $1 AND instrument_id = $2 AND deactivated_at IS NULL`

	res, err := s.db.ExecContext(ctx, query, userID, instrumentID,
		nullString(update.Experience), nullString(update.Description), nullBytes(genres), s.now())
	if err != nil {
		return fmt.Errorf("failed to update user instrument: %w", err)
	}
	return affected(res, "failed to update user instrument")
}

// DeactivateUserInstrument hides a declared instrument
func (s *PostgresStore) DeactivateUserInstrument(ctx context.Context, userID, instrumentID string) error {
	query := `UPDATE user_instruments SET deactivated_at = $3
			  WHERE user_id = $1 AND instrument_id = $2 AND deactivated_at IS NULL`

	res, err := s.db.ExecContext(ctx, query, userID, instrumentID, s.now())
	if err != nil {
		return fmt.Errorf("failed to deactivate user instrument: %w", err)
	}
	return affected(res, "failed to deactivate user instrument")
}

const ensembleColumns = `id, name, image_url, description, website, zip_code, city, active_musicians,
	practice_frequency, ensemble_types, genres, admin_user_id, created_at, updated_at, deactivated_at`

func scanEnsemble(row interface{ Scan(...any) error }) (core.Ensemble, error) {
	var (
		e           core.Ensemble
		types       []byte
		genres      []byte
		deactivated sql.NullTime
	)
	err := row.Scan(
		&e.ID, &e.Name, &e.ImageURL, &e.Description, &e.Website, &e.ZipCode, &e.City, &e.ActiveMusicians,
		&e.PracticeFrequency, &types, &genres, &e.AdminUserID, &e.CreatedAt, &e.UpdatedAt, &deactivated,
	)
	if err != nil {
		return core.Ensemble{}, err
	}
	if err := json.Unmarshal(types, &e.EnsembleTypes); err != nil {
		return core.Ensemble{}, fmt.Errorf("failed to decode ensemble types: %w", err)
	}
	if err := json.Unmarshal(genres, &e.Genres); err != nil {
		return core.Ensemble{}, fmt.Errorf("failed to decode genres: %w", err)
	}
	e.DeactivatedAt = timePtr(deactivated)
	return e, nil
}

func encodeEnsembleLists(e core.Ensemble) (types, genres []byte, err error) {
	if types, err = json.Marshal(nonNilStrings(e.EnsembleTypes)); err != nil {
		return nil, nil, fmt.Errorf("failed to encode ensemble types: %w", err)
	}
	if genres, err = json.Marshal(nonNilGenres(e.Genres)); err != nil {
		return nil, nil, fmt.Errorf("failed to encode genres: %w", err)
	}
	return types, genres, nil
}

// CreateEnsemble stores a new ensemble
func (s *PostgresStore) CreateEnsemble(ctx context.Context, e core.Ensemble) (core.Ensemble, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	types, genres, err := encodeEnsembleLists(e)
	if err != nil {
		return core.Ensemble{}, err
	}

	query := `INSERT INTO ensembles (` + ensembleColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			  RETURNING ` + ensembleColumns

	saved, err := scanEnsemble(s.db.QueryRowContext(ctx, query,
		e.ID, e.Name, e.ImageURL, e.Description, e.Website, e.ZipCode, e.City, e.ActiveMusicians,
		e.PracticeFrequency, types, genres, e.AdminUserID, e.CreatedAt, e.UpdatedAt, nullTime(e.DeactivatedAt),
	))
	if err != nil {
		return core.Ensemble{}, fmt.Errorf("failed to create ensemble: %w", err)
	}
	return saved, nil
}

// FindEnsemble returns an active ensemble
func (s *PostgresStore) FindEnsemble(ctx context.Context, id string) (core.Ensemble, error) {
	if _, err := uuid.Parse(id); err != nil {
		return core.Ensemble{}, core.ErrNotFound
	}

	query := `SELECT ` + ensembleColumns + ` FROM ensembles WHERE id = $1 AND deactivated_at IS NULL`

	e, err := scanEnsemble(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return core.Ensemble{}, notFound(err, "failed to get ensemble")
	}
	return e, nil
}

const ensembleMatch = `deactivated_at IS NULL AND name ILIKE $1 AND city ILIKE $2`

// ListEnsembles returns active ensembles matching filter, oldest first
func (s *PostgresStore) ListEnsembles(ctx context.Context, filter core.EnsembleFilter) (core.EnsemblePage, error) {
	name, city := likePattern(filter.Name), likePattern(filter.City)

	var total int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM ensembles WHERE `+ensembleMatch, name, city).Scan(&total)
	if err != nil {
		return core.EnsemblePage{}, fmt.Errorf("failed to count ensembles: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = core.DefaultEnsembleLimit
	}
	query := `SELECT ` + ensembleColumns + ` FROM ensembles WHERE ` + ensembleMatch +
		` ORDER BY created_at, id LIMIT $3`

	rows, err := s.db.QueryContext(ctx, query, name, city, limit)
	if err != nil {
		return core.EnsemblePage{}, fmt.Errorf("failed to list ensembles: %w", err)
	}
	defer rows.Close()

	page := core.EnsemblePage{Ensembles: make([]core.Ensemble, 0), Total: total}
	for rows.Next() {
		e, err := scanEnsemble(rows)
		if err != nil {
			return core.EnsemblePage{}, fmt.Errorf("failed to scan ensemble: %w", err)
		}
		page.Ensembles = append(page.Ensembles, e)
	}
	return page, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns user input into a substring pattern with wildcards escaped
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// UpdateEnsemble replaces the mutable fields of an active ensemble
func (s *PostgresStore) UpdateEnsemble(ctx context.Context, e core.Ensemble) (core.Ensemble, error) {
	types, genres, err := encodeEnsembleLists(e)
	if err != nil {
		return core.Ensemble{}, err
	}

	query := `UPDATE ensembles
			  SET name = $2, image_url = $3, description = $4, website = $5, zip_code = $6, city = $7,
			      active_musicians = $8, practice_frequency = $9, ensemble_types = $10, genres = $11,
			      updated_at = $12
			  WHERE id = $1 AND deactivated_at IS NULL
			  RETURNING ` + ensembleColumns

	saved, err := scanEnsemble(s.db.QueryRowContext(ctx, query,
		e.ID, e.Name, e.ImageURL, e.Description, e.Website, e.ZipCode, e.City,
		e.ActiveMusicians, e.PracticeFrequency, types, genres, e.UpdatedAt,
	))
	if err != nil {
		return core.Ensemble{}, notFound(err, "failed to update ensemble")
	}
	return saved, nil
}

// DeactivateEnsemble hides an ensemble and returns it as it was
func (s *PostgresStore) DeactivateEnsemble(ctx context.Context, id string) (core.Ensemble, error) {
	before, err := s.FindEnsemble(ctx, id)
	if err != nil {
		return core.Ensemble{}, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE ensembles SET deactivated_at = $2 WHERE id = $1 AND deactivated_at IS NULL`, id, s.now())
	if err != nil {
		return core.Ensemble{}, fmt.Errorf("failed to deactivate ensemble: %w", err)
	}
	if err := affected(res, "failed to deactivate ensemble"); err != nil {
		return core.Ensemble{}, err
	}
	return before, nil
}

func notFound(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func affected(res sql.Result, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullBytes(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

func nonNilGenres(g []core.Genre) []core.Genre {
	if g == nil {
		return []core.Genre{}
	}
	return g
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
