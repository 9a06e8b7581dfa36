package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/tutti/core"
	"github.com/layer-3/tutti/internal/logger"
	"github.com/layer-3/tutti/ports"
)

// Flow names used for metrics and logs
const (
	FlowSignUp        = "signup"
	FlowSignIn        = "signin"
	FlowResetPassword = "reset_password"
)

// SignUpInput is everything needed to open an account
type SignUpInput struct {
	FullName        string
	Email           string
	Password        string
	NewsletterOptIn bool
}

// AuthService handles authentication business logic
type AuthService struct {
	tokenizer ports.Tokenizer
	hasher    ports.PasswordHasher
	users     ports.UserDirectory
	eventPub  ports.EventPublisher
	recorder  ports.AuthRecorder
	log       *logger.Logger
	now       func() time.Time

	dummyOnce       sync.Once
	dummyCredential string
}

// NewAuthService creates a new authentication service
func NewAuthService(
	tokenizer ports.Tokenizer,
	hasher ports.PasswordHasher,
	users ports.UserDirectory,
	eventPub ports.EventPublisher,
	recorder ports.AuthRecorder,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		tokenizer: tokenizer,
		hasher:    hasher,
		users:     users,
		eventPub:  eventPub,
		recorder:  recorder,
		log:       log,
		now:       time.Now,
	}
}

// TokenTTL is the lifetime of issued tokens
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenizer.TTL()
}

// SignUp registers a new member and returns a token for them
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (token string, err error) {
	defer func() { s.recorder.RecordFlow(FlowSignUp, err) }()

	_, err = s.users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return "", core.ErrConflict
	case !errors.Is(err, core.ErrNotFound):
		return "", fmt.Errorf("failed to look up email: %w", err)
	}

	credential, err := s.hasher.Hash(in.Password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := core.User{
		ID:            uuid.NewString(),
		FullName:      in.FullName,
		Email:         in.Email,
		Credential:    credential,
		AcceptedTocAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.NewsletterOptIn {
		user.NewsletterOptInAt = &now
	}

	// A concurrent signup for the same email loses here with core.ErrConflict.
	user, err = s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, core.ErrConflict) {
			return "", core.ErrConflict
		}
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err = s.tokenizer.IdentityToToken(user.Identity())
	if err != nil {
		return "", fmt.Errorf("failed to create token: %w", err)
	}

	if err := s.eventPub.PublishSignedUp(ctx, user.Identity()); err != nil {
		s.log.Warn("failed to publish signup event", "user_id", user.ID, "error", err)
	}

	s.log.Info("user signed up", "user_id", user.ID)
	return token, nil
}

// SignIn exchanges an email and password for a token.
// Unknown emails and wrong passwords both fail with core.ErrUnauthorized.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (token string, err error) {
	defer func() { s.recorder.RecordFlow(FlowSignIn, err) }()

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// keep the response time close to the known-email path
			s.hasher.Verify(password, s.dummy())
			return "", core.ErrUnauthorized
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	if !s.hasher.Verify(password, user.Credential) {
		return "", core.ErrUnauthorized
	}

	token, err = s.tokenizer.IdentityToToken(user.Identity())
	if err != nil {
		return "", fmt.Errorf("failed to create token: %w", err)
	}

	return token, nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		credential, err := s.hasher.Hash(uuid.NewString())
		if err != nil {
			s.log.Error("failed to prepare dummy credential", "error", err)
			return
		}
		s.dummyCredential = credential
	})
	return s.dummyCredential
}

// ResetPassword replaces the credential of the authenticated member
func (s *AuthService) ResetPassword(ctx context.Context, id core.Identity, current, next string) (err error) {
	defer func() { s.recorder.RecordFlow(FlowResetPassword, err) }()

	user, err := s.users.FindByID(ctx, id.Subject)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.ErrUnauthorized
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if !s.hasher.Verify(current, user.Credential) {
		return core.ErrUnauthorized
	}

	if s.hasher.Verify(next, user.Credential) {
		return fmt.Errorf("%w: new password must differ from the current one", core.ErrBadRequest)
	}

	credential, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdateCredential(ctx, user.ID, credential); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.ErrUnauthorized
		}
		return fmt.Errorf("failed to update credential: %w", err)
	}

	if err := s.eventPub.PublishPasswordChanged(ctx, user.Identity()); err != nil {
		s.log.Warn("failed to publish password change event", "user_id", user.ID, "error", err)
	}

	return nil
}

// VerifyCredential decides whether a raw token authenticates a request.
// Any unexpected failure rejects.
func (s *AuthService) VerifyCredential(ctx context.Context, rawToken string) core.AuthResult {
	if rawToken == "" {
		return core.Rejected(core.RejectMissingCredential)
	}

	id, err := s.tokenizer.TokenToIdentity(rawToken)
	if err != nil {
		return core.Rejected(core.RejectInvalidCredential)
	}

	user, err := s.users.FindByEmail(ctx, id.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Rejected(core.RejectIdentityMismatch)
		}
		s.log.Error("directory lookup failed during auth", "error", err)
		return core.Rejected(core.RejectDirectoryUnavailable)
	}

	if !user.Active() || user.ID != id.Subject {
		return core.Rejected(core.RejectIdentityMismatch)
	}

	return core.Authenticated(id)
}

// CurrentUser returns the member behind an authenticated identity
func (s *AuthService) CurrentUser(ctx context.Context, id core.Identity) (core.User, error) {
	user, err := s.users.FindByID(ctx, id.Subject)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.User{}, core.ErrUnauthorized
		}
		return core.User{}, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}
