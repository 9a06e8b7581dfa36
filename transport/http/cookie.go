package http

import (
	"net/http"
	"time"
)

// CookieConfig describes the auth cookie
type CookieConfig struct {
	Name   string
	Secure bool
}

func (cc CookieConfig) name() string {
	if cc.Name == "" {
		return DefaultCookieName
	}
	return cc.Name
}

func setAuthCookie(w http.ResponseWriter, cc CookieConfig, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     cc.name(),
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearAuthCookie(w http.ResponseWriter, cc CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cc.name(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
