package tutti

import (
	"net/http"

	"github.com/layer-3/tutti/core"
	"github.com/layer-3/tutti/ports"
	"github.com/layer-3/tutti/service"
	transport "github.com/layer-3/tutti/transport/http"
)

// Authenticator is the public interface other resource controllers use to authenticate members
type Authenticator interface {
	// IssueToken signs an identity assertion for subject and email
	IssueToken(subject, email string) (string, error)

	// VerifyRequestCredential runs the auth guard against an inbound request
	VerifyRequestCredential(r *http.Request) core.AuthResult

	// HashPassword returns a "<salt>:<hash>" credential
	HashPassword(plaintext string) (string, error)

	// VerifyPassword checks plaintext against a stored credential
	VerifyPassword(plaintext, stored string) bool
}

var _ Authenticator = (*Kit)(nil)

// Kit implements Authenticator on top of the service layer
type Kit struct {
	tokenizer  ports.Tokenizer
	hasher     ports.PasswordHasher
	guard      *service.AuthService
	cookieName string
}

// NewKit creates a new Kit. An empty cookieName selects the default "token" cookie.
func NewKit(tokenizer ports.Tokenizer, hasher ports.PasswordHasher, guard *service.AuthService, cookieName string) *Kit {
	if cookieName == "" {
		cookieName = transport.DefaultCookieName
	}
	return &Kit{
		tokenizer:  tokenizer,
		hasher:     hasher,
		guard:      guard,
		cookieName: cookieName,
	}
}

func (k *Kit) IssueToken(subject, email string) (string, error) {
	return k.tokenizer.IdentityToToken(core.Identity{Subject: subject, Email: email})
}

func (k *Kit) VerifyRequestCredential(r *http.Request) core.AuthResult {
	token, _ := transport.ExtractCredential(r, k.cookieName)
	return k.guard.VerifyCredential(r.Context(), token)
}

func (k *Kit) HashPassword(plaintext string) (string, error) {
	return k.hasher.Hash(plaintext)
}

func (k *Kit) VerifyPassword(plaintext, stored string) bool {
	return k.hasher.Verify(plaintext, stored)
}
