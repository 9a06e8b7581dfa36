package core

import "time"

// User is a directory member. Credential holds "<salt>:<hash>" and never leaves the server.
type User struct {
	ID                string     `json:"id"`
	FullName          string     `json:"fullName"`
	Email             string     `json:"email"`
	Credential        string     `json:"-"`
	AcceptedTocAt     time.Time  `json:"acceptedTocAt"`
	NewsletterOptInAt *time.Time `json:"newsletterOptInAt,omitempty"`
	Address           string     `json:"address,omitempty"`
	PhoneNumber       string     `json:"phoneNumber,omitempty"`
	Bio               string     `json:"bio,omitempty"`
	BirthDate         string     `json:"birthDate,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	DeactivatedAt     *time.Time `json:"deactivatedAt,omitempty"`
}

// Active reports whether the user has not been deactivated
func (u User) Active() bool {
	return u.DeactivatedAt == nil
}

// Identity returns the token identity of the user
func (u User) Identity() Identity {
	return Identity{Subject: u.ID, Email: u.Email}
}

// PublicUser is the profile shown to other members
type PublicUser struct {
	ID                string     `json:"id"`
	FullName          string     `json:"fullName"`
	Email             string     `json:"email"`
	NewsletterOptInAt *time.Time `json:"newsletterOptInAt,omitempty"`
	Address           string     `json:"address,omitempty"`
	PhoneNumber       string     `json:"phoneNumber,omitempty"`
	Bio               string     `json:"bio,omitempty"`
	BirthDate         string     `json:"birthDate,omitempty"`
}

// Public strips credential and bookkeeping timestamps
func (u User) Public() PublicUser {
	return PublicUser{
		ID:                u.ID,
		FullName:          u.FullName,
		Email:             u.Email,
		NewsletterOptInAt: u.NewsletterOptInAt,
		Address:           u.Address,
		PhoneNumber:       u.PhoneNumber,
		Bio:               u.Bio,
		BirthDate:         u.BirthDate,
	}
}

// ProfileUpdate carries optional profile changes. Nil fields are left untouched.
type ProfileUpdate struct {
	FullName        *string
	Address         *string
	PhoneNumber     *string
	Bio             *string
	BirthDate       *string
	NewsletterOptIn *bool
}

// Empty reports whether the update changes nothing
func (p ProfileUpdate) Empty() bool {
	return p.FullName == nil && p.Address == nil && p.PhoneNumber == nil &&
		p.Bio == nil && p.BirthDate == nil && p.NewsletterOptIn == nil
}

// Apply returns u with the update applied at now
func (p ProfileUpdate) Apply(u User, now time.Time) User {
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
	if p.PhoneNumber != nil {
		u.PhoneNumber = *p.PhoneNumber
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.BirthDate != nil {
		u.BirthDate = *p.BirthDate
	}
	if p.NewsletterOptIn != nil {
		if *p.NewsletterOptIn {
			t := now
			u.NewsletterOptInAt = &t
		} else {
			u.NewsletterOptInAt = nil
		}
	}
	u.UpdatedAt = now
	return u
}

// Genre is a musical genre a member or ensemble plays
type Genre string

const (
	GenreBaroque      Genre = "baroque"
	GenreFolk         Genre = "folk"
	GenreChamber      Genre = "chamber"
	GenreRomantic     Genre = "romantic"
	GenreLateModern   Genre = "late-modern"
	GenreLateRomantic Genre = "late-romantic"
	GenreSymphonic    Genre = "symphonic"
)

// Genres lists every known genre
var Genres = []Genre{
	GenreBaroque, GenreFolk, GenreChamber, GenreRomantic,
	GenreLateModern, GenreLateRomantic, GenreSymphonic,
}

// Instrument is reference data
type Instrument struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserInstrument is an instrument declared by a member
type UserInstrument struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	InstrumentID  string     `json:"instrumentId"`
	Experience    string     `json:"experience"`
	Description   string     `json:"description"`
	Genres        []Genre    `json:"genre"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	DeactivatedAt *time.Time `json:"-"`
}

// UserInstrumentUpdate carries optional changes to a declared instrument
type UserInstrumentUpdate struct {
	Experience  *string
	Description *string
	Genres      []Genre
}

// Ensemble is a group administered by one member
type Ensemble struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	ImageURL          string     `json:"imageUrl"`
	Description       string     `json:"description"`
	Website           string     `json:"website"`
	ZipCode           string     `json:"zip_code"`
	City              string     `json:"city"`
	ActiveMusicians   string     `json:"active_musicians"`
	PracticeFrequency string     `json:"practice_frequency"`
	EnsembleTypes     []string   `json:"ensemble_type"`
	Genres            []Genre    `json:"genre"`
	AdminUserID       string     `json:"admin_user_id"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	DeactivatedAt     *time.Time `json:"deactivated_at,omitempty"`
}

var (
	ActiveMusicianRanges = []string{"1-4", "5-9", "10-24", "25-49", "50+"}
	PracticeFrequencies  = []string{"daily", "weekly", "bi-weekly", "monthly", "bi-monthly"}
	EnsembleTypes        = []string{"continuous", "project_based"}
)

// EnsembleUpdate carries optional ensemble changes
type EnsembleUpdate struct {
	Name              *string
	ImageURL          *string
	Description       *string
	Website           *string
	ZipCode           *string
	City              *string
	ActiveMusicians   *string
	PracticeFrequency *string
	EnsembleTypes     []string
	Genres            []Genre
}

// Apply returns e with the update applied at now
func (p EnsembleUpdate) Apply(e Ensemble, now time.Time) Ensemble {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&e.Name, p.Name)
	set(&e.ImageURL, p.ImageURL)
	set(&e.Description, p.Description)
	set(&e.Website, p.Website)
	set(&e.ZipCode, p.ZipCode)
	set(&e.City, p.City)
	set(&e.ActiveMusicians, p.ActiveMusicians)
	set(&e.PracticeFrequency, p.PracticeFrequency)
	if p.EnsembleTypes != nil {
		e.EnsembleTypes = p.EnsembleTypes
	}
	if p.Genres != nil {
		e.Genres = p.Genres
	}
	e.UpdatedAt = now
	return e
}

// EnsembleView is an ensemble with its administrator's public profile
type EnsembleView struct {
	Ensemble
	Admin *PublicUser `json:"admin"`
}

// Ensemble listing window bounds
const (
	DefaultEnsembleLimit = 10
	MaxEnsembleLimit     = 100
)

// EnsembleFilter narrows an ensemble listing.
// Name and City match case-insensitive substrings; empty matches everything.
type EnsembleFilter struct {
	Name  string
	City  string
	Limit int
}

// EnsemblePage is one window of matching ensembles and the number of matches overall
type EnsemblePage struct {
	Ensembles []Ensemble
	Total     int
}
