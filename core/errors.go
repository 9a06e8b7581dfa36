package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentialFormat = errors.New("invalid credential format")
	ErrInvalidOrExpiredToken   = errors.New("invalid or expired token")
	ErrIdentityMismatch        = errors.New("identity mismatch")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrConflict                = errors.New("conflict")
	ErrBadRequest              = errors.New("bad request")
	ErrNotFound                = errors.New("not found")
	ErrForbidden               = errors.New("forbidden")

	// Both token errors match ErrInvalidOrExpiredToken with errors.Is.
	ErrInvalidToken = fmt.Errorf("%w: invalid token", ErrInvalidOrExpiredToken)
	ErrTokenExpired = fmt.Errorf("%w: token has expired", ErrInvalidOrExpiredToken)
)
