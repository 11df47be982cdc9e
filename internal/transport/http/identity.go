package http

import (
	"net/http"

	"github.com/google/uuid"
)

// SessionCookieName holds the opaque per-browser session token.
const SessionCookieName = "live_quiz_session"

// sessionToken returns the caller's token, minting and setting one if absent.
func sessionToken(w http.ResponseWriter, r *http.Request) string {
	if token := existingToken(r); token != "" {
		return token
	}

	token := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return token
}

// existingToken returns the caller's token or "" without minting one.
func existingToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}
