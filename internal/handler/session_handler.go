package handlers

import (
	"errors"
	"net/http"

	"communityBoard/internal/feed"
)

// withSession runs fn against the caller's feed session. A session closed by
// the idle reaper between Acquire and fn is reopened once.
func (h *Handlers) withSession(w http.ResponseWriter, r *http.Request, fn func(*feed.Session) error) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, "Требуется аутентификация", http.StatusUnauthorized)
		return
	}

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var s *feed.Session
		s, err = h.Sessions.Acquire(r.Context(), userID)
		if err != nil {
			break
		}
		if err = fn(s); !errors.Is(err, feed.ErrSessionClosed) {
			break
		}
	}

	if err != nil {
		h.writeServiceError(w, r, err)
	}
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, "Требуется аутентификация", http.StatusUnauthorized)
		return
	}

	released := h.Sessions.Release(r.Context(), userID)
	writeSuccess(w, map[string]bool{"released": released}, http.StatusOK)
}
