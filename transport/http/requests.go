package http

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/layer-3/tutti/core"
)

// SignUpRequest is the signup payload
type SignUpRequest struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	AcceptedToc     *bool  `json:"acceptedToc"`
	NewsletterOptIn bool   `json:"newsletterOptInAt"`
}

// Validate will validate the payload
func (r SignUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Length(0, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.AcceptedToc, validation.By(acceptedRule)),
	)
}

// LoginRequest is the login payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will validate the payload
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// ResetPasswordRequest is the password change payload
type ResetPasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Validate will validate the payload
func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(1, 200)),
	)
}

// UpdateUserRequest carries optional profile changes
type UpdateUserRequest struct {
	FullName        *string `json:"fullName"`
	NewsletterOptIn *bool   `json:"newsletterOptIn"`
	Address         *string `json:"address"`
	PhoneNumber     *string `json:"phoneNumber"`
	Bio             *string `json:"bio"`
	BirthDate       *string `json:"birthDate"`
}

// Validate will validate the payload
func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&r.Bio, validation.Length(0, 2000)),
		validation.Field(&r.BirthDate, validation.Date("2006-01-02")),
	)
}

// ProfileUpdate converts the payload for the service layer
func (r UpdateUserRequest) ProfileUpdate() core.ProfileUpdate {
	return core.ProfileUpdate{
		FullName:        r.FullName,
		Address:         r.Address,
		PhoneNumber:     r.PhoneNumber,
		Bio:             r.Bio,
		BirthDate:       r.BirthDate,
		NewsletterOptIn: r.NewsletterOptIn,
	}
}

// UserInstrumentRequest declares or updates an instrument.
// On update every field is optional.
type UserInstrumentRequest struct {
	InstrumentID *string      `json:"instrumentId"`
	Experience   *string      `json:"experience"`
	Description  *string      `json:"description"`
	Genres       []core.Genre `json:"genre"`
}

// ValidateCreate validates a new declaration
func (r UserInstrumentRequest) ValidateCreate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.InstrumentID, validation.Required, is.UUID),
		validation.Field(&r.Experience, validation.Required),
		validation.Field(&r.Description, validation.NotNil),
		validation.Field(&r.Genres, validation.NotNil, validation.By(genresRule)),
	)
}

// ValidateUpdate validates a partial change. InstrumentID is ignored.
func (r UserInstrumentRequest) ValidateUpdate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Genres, validation.By(genresRule)),
	)
}

// UserInstrument converts a create payload
func (r UserInstrumentRequest) UserInstrument() core.UserInstrument {
	return core.UserInstrument{
		InstrumentID: deref(r.InstrumentID),
		Experience:   deref(r.Experience),
		Description:  deref(r.Description),
		Genres:       r.Genres,
	}
}

// Update converts an update payload
func (r UserInstrumentRequest) Update() core.UserInstrumentUpdate {
	return core.UserInstrumentUpdate{
		Experience:  r.Experience,
		Description: r.Description,
		Genres:      r.Genres,
	}
}

// EnsembleRequest creates or updates an ensemble.
// On update every field is optional.
type EnsembleRequest struct {
	Name              *string      `json:"name"`
	ImageURL          *string      `json:"imageUrl"`
	Description       *string      `json:"description"`
	Website           *string      `json:"website"`
	ZipCode           *string      `json:"zip_code"`
	City              *string      `json:"city"`
	ActiveMusicians   *string      `json:"active_musicians"`
	PracticeFrequency *string      `json:"practice_frequency"`
	EnsembleTypes     []string     `json:"ensemble_type"`
	Genres            []core.Genre `json:"genre"`
}

// ValidateCreate validates a new ensemble
func (r EnsembleRequest) ValidateCreate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.ImageURL, validation.Required, is.URL),
		validation.Field(&r.Description, validation.NotNil),
		validation.Field(&r.Website, validation.Required, is.URL),
		validation.Field(&r.ZipCode, validation.NotNil),
		validation.Field(&r.City, validation.NotNil),
		validation.Field(&r.ActiveMusicians, validation.Required, validation.In(anySlice(core.ActiveMusicianRanges)...)),
		validation.Field(&r.PracticeFrequency, validation.Required, validation.In(anySlice(core.PracticeFrequencies)...)),
		validation.Field(&r.EnsembleTypes, validation.NotNil, validation.By(ensembleTypesRule)),
		validation.Field(&r.Genres, validation.NotNil, validation.By(genresRule)),
	)
}

// ValidateUpdate validates a partial change
func (r EnsembleRequest) ValidateUpdate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&r.ImageURL, is.URL),
		validation.Field(&r.Website, is.URL),
		validation.Field(&r.ActiveMusicians, validation.In(anySlice(core.ActiveMusicianRanges)...)),
		validation.Field(&r.PracticeFrequency, validation.In(anySlice(core.PracticeFrequencies)...)),
		validation.Field(&r.EnsembleTypes, validation.By(ensembleTypesRule)),
		validation.Field(&r.Genres, validation.By(genresRule)),
	)
}

// Ensemble converts a create payload
func (r EnsembleRequest) Ensemble() core.Ensemble {
	return core.Ensemble{
		Name:              deref(r.Name),
		ImageURL:          deref(r.ImageURL),
		Description:       deref(r.Description),
		Website:           deref(r.Website),
		ZipCode:           deref(r.ZipCode),
		City:              deref(r.City),
		ActiveMusicians:   deref(r.ActiveMusicians),
		PracticeFrequency: deref(r.PracticeFrequency),
		EnsembleTypes:     r.EnsembleTypes,
		Genres:            r.Genres,
	}
}

// Update converts an update payload
func (r EnsembleRequest) Update() core.EnsembleUpdate {
	return core.EnsembleUpdate{
		Name:              r.Name,
		ImageURL:          r.ImageURL,
		Description:       r.Description,
		Website:           r.Website,
		ZipCode:           r.ZipCode,
		City:              r.City,
		ActiveMusicians:   r.ActiveMusicians,
		PracticeFrequency: r.PracticeFrequency,
		EnsembleTypes:     r.EnsembleTypes,
		Genres:            r.Genres,
	}
}

// EnsembleQuery filters an ensemble listing
type EnsembleQuery struct {
	Name  string `form:"name"`
	City  string `form:"city"`
	Limit int    `form:"limit"`
}

// Validate will validate the query
func (q EnsembleQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Name, validation.Length(0, 200)),
		validation.Field(&q.City, validation.Length(0, 200)),
		validation.Field(&q.Limit, validation.Min(1), validation.Max(core.MaxEnsembleLimit)),
	)
}

// Filter converts the query for the service layer
func (q EnsembleQuery) Filter() core.EnsembleFilter {
	return core.EnsembleFilter{Name: q.Name, City: q.City, Limit: q.Limit}
}

// acceptedRule rejects terms that were sent and declined
func acceptedRule(value any) error {
	if accepted, ok := value.(*bool); ok && accepted != nil && !*accepted {
		return errors.New("must be accepted")
	}
	return nil
}

func genresRule(value any) error {
	genres, _ := value.([]core.Genre)
	for i, g := range genres {
		if !contains(core.Genres, g) {
			return fmt.Errorf("item %d: unknown genre %q", i, g)
		}
	}
	return nil
}

func ensembleTypesRule(value any) error {
	types, _ := value.([]string)
	for i, t := range types {
		if !contains(core.EnsembleTypes, t) {
			return fmt.Errorf("item %d: unknown ensemble type %q", i, t)
		}
	}
	return nil
}

// validateUUIDParam checks a path parameter
func validateUUIDParam(name, value string) error {
	if err := validation.Validate(value, validation.Required, is.UUID); err != nil {
		return validation.Errors{name: err}
	}
	return nil
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func anySlice(list []string) []any {
	out := make([]any, len(list))
	for i, s := range list {
		out[i] = s
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
