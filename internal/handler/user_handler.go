package handlers

import (
	"net/http"
	"unicode/utf8"

	"communityBoard/internal/feed"
	"github.com/gorilla/mux"
)

const maxSearchQuery = 100

func (h *Handlers) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *feed.Session) error {
		header, err := h.ProfileService.Header(r.Context(), s)
		if err != nil {
			return err
		}
		writeSuccess(w, header, http.StatusOK)
		return nil
	})
}

func (h *Handlers) GetAttendance(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *feed.Session) error {
		rows, err := h.AttendanceService.Log(r.Context(), s)
		if err != nil {
			return err
		}
		writeSuccess(w, rows, http.StatusOK)
		return nil
	})
}

func (h *Handlers) SearchUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if utf8.RuneCountInString(query) > maxSearchQuery {
		WriteError(w, "Слишком длинный запрос", http.StatusBadRequest)
		return
	}

	h.withSession(w, r, func(s *feed.Session) error {
		results, err := h.SearchService.Users(r.Context(), s, query)
		if err != nil {
			return err
		}
		writeSuccess(w, results, http.StatusOK)
		return nil
	})
}

func (h *Handlers) GetUserPosts(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	if err := h.Validate.Var(userID, "required,max=128"); err != nil {
		WriteError(w, "Неверный идентификатор пользователя", http.StatusBadRequest)
		return
	}

	h.withSession(w, r, func(s *feed.Session) error {
		posts, err := h.SearchService.UserPosts(r.Context(), s, userID)
		if err != nil {
			return err
		}
		writeSuccess(w, posts, http.StatusOK)
		return nil
	})
}
