package security

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SessionCookieName is the cookie carrying the session ID
const SessionCookieName = "childsubs_session"

// GenerateSessionID creates a new UUID for session identification
func GenerateSessionID() string {
	return uuid.New().String()
}

// IsSecureRequest determines if the request is over HTTPS, directly or
// behind a proxy that sets X-Forwarded-Proto
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if r.Header.Get("X-Forwarded-Proto") == "https" {
		return true
	}
	return r.URL.Scheme == "https"
}

// CreateSessionCookie creates the session cookie. Secure follows the request scheme.
func CreateSessionCookie(r *http.Request, value string, expires time.Time) *http.Cookie {
	return newCookie(r, SessionCookieName, value, expires, 0)
}

// CreateDeleteCookie expires the named cookie
func CreateDeleteCookie(r *http.Request, name string) *http.Cookie {
	return newCookie(r, name, "", time.Time{}, -1)
}

// CreateShortLivedCookie is used for OAuth state, which only has to survive one redirect
func CreateShortLivedCookie(r *http.Request, name, value string, ttl time.Duration) *http.Cookie {
	return newCookie(r, name, value, time.Now().Add(ttl), int(ttl.Seconds()))
}

func newCookie(r *http.Request, name, value string, expires time.Time, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}
