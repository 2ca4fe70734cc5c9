package chi

import (
	"net/http"

	"github.com/kailas-cloud/shelfrec/internal/usecase/session"
)

// Session identification. Clients may send the ID back either way.
const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "shelfrec_session"
)

// existingSessionID returns the well-formed session ID carried by r, if any.
func existingSessionID(r *http.Request) (string, bool) {
	if id := r.Header.Get(SessionHeader); session.ValidID(id) {
		return id, true
	}
	if c, err := r.Cookie(SessionCookie); err == nil && session.ValidID(c.Value) {
		return c.Value, true
	}
	return "", false
}

// sessionID returns the session of r, issuing a new one when absent or
// malformed, and echoes it on the response.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	id, ok := existingSessionID(r)
	if !ok {
		id = session.NewID()
	}
	w.Header().Set(SessionHeader, id)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
