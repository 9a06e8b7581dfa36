package http

import (
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// DefaultCookieName carries the token when the client does not send a header
const DefaultCookieName = "token"

// ExtractCredential returns the raw token of a request.
// A well-formed bearer header wins; anything else falls back to the cookie.
func ExtractCredential(r *http.Request, cookieName string) (string, bool) {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, bearerPrefix) {
		if token := strings.TrimSpace(auth[len(bearerPrefix):]); token != "" {
			return token, true
		}
	}

	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}

	return "", false
}
