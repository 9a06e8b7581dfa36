package tokenizer

import "github.com/golang-jwt/jwt/v5"

// IdentityClaims combines standard claims with the member email
type IdentityClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}
