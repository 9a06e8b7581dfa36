package ports

import (
	"time"

	"github.com/layer-3/tutti/core"
)

// Tokenizer converts between identities and signed tokens
type Tokenizer interface {
	IdentityToToken(id core.Identity) (string, error)

	// TokenToIdentity fails with an error matching core.ErrInvalidOrExpiredToken
	TokenToIdentity(token string) (core.Identity, error)

	// TTL is the lifetime of issued tokens
	TTL() time.Duration
}

// PasswordHasher turns passwords into stored credentials and back
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, stored string) bool
}
