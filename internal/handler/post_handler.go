package handlers

import (
	"net/http"

	"communityBoard/internal/feed"
	"communityBoard/internal/models"
	"github.com/gorilla/mux"
)

type postParams struct {
	Date   string `validate:"required,max=64,excludesall=./"`
	PostID string `validate:"required,max=128,excludesall=./"`
}

type intentParams struct {
	IntentID string `validate:"required,uuid"`
}

func (h *Handlers) GetFeed(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *feed.Session) error {
		resp, err := h.FeedService.Feed(r.Context(), s)
		if err != nil {
			return err
		}
		writeSuccess(w, resp, http.StatusOK)
		return nil
	})
}

func (h *Handlers) LoadMore(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *feed.Session) error {
		resp, err := h.FeedService.LoadMore(r.Context(), s)
		if err != nil {
			return err
		}
		writeSuccess(w, resp, http.StatusOK)
		return nil
	})
}

func (h *Handlers) ToggleAvailability(w http.ResponseWriter, r *http.Request) {
	h.mutatePost(w, r, h.PostService.ToggleAvailability)
}

func (h *Handlers) ToggleVolunteer(w http.ResponseWriter, r *http.Request) {
	h.mutatePost(w, r, h.PostService.ToggleVolunteer)
}

func (h *Handlers) DeletePost(w http.ResponseWriter, r *http.Request) {
	h.mutatePost(w, r, h.PostService.DeletePost)
}

// mutatePost answers 202: the change is applied locally and written in the background.
func (h *Handlers) mutatePost(w http.ResponseWriter, r *http.Request,
	apply func(s *feed.Session, date, postID string) (*models.IntentResponse, error)) {
	vars := mux.Vars(r)
	params := postParams{Date: vars["date"], PostID: vars["postID"]}
	if err := h.Validate.Struct(params); err != nil {
		WriteError(w, "Неверные параметры поста: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.withSession(w, r, func(s *feed.Session) error {
		resp, err := apply(s, params.Date, params.PostID)
		if err != nil {
			return err
		}
		writeSuccess(w, resp, http.StatusAccepted)
		return nil
	})
}

func (h *Handlers) GetFailedIntents(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *feed.Session) error {
		writeSuccess(w, h.PostService.FailedIntents(s), http.StatusOK)
		return nil
	})
}

func (h *Handlers) RetryIntent(w http.ResponseWriter, r *http.Request) {
	params := intentParams{IntentID: mux.Vars(r)["intentID"]}
	if err := h.Validate.Struct(params); err != nil {
		WriteError(w, "Неверный идентификатор операции", http.StatusBadRequest)
		return
	}

	h.withSession(w, r, func(s *feed.Session) error {
		resp, err := h.PostService.Retry(s, params.IntentID)
		if err != nil {
			return err
		}
		writeSuccess(w, resp, http.StatusAccepted)
		return nil
	})
}
