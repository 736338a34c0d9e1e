package service

import (
	"time"

	"communityBoard/internal/feed"
	"communityBoard/internal/models"
)

// PostService applies the signed-in user's mutations to their own posts.
type PostService interface {
	ToggleAvailability(s *feed.Session, date, postID string) (*models.IntentResponse, error)
	ToggleVolunteer(s *feed.Session, date, postID string) (*models.IntentResponse, error)
	DeletePost(s *feed.Session, date, postID string) (*models.IntentResponse, error)
	FailedIntents(s *feed.Session) []models.IntentResponse
	Retry(s *feed.Session, intentID string) (*models.IntentResponse, error)
}

type postService struct{}

func NewPostService() PostService {
	return &postService{}
}

func (p *postService) ToggleAvailability(s *feed.Session, date, postID string) (*models.IntentResponse, error) {
	return intentResult(s.ToggleAvailability(date, postID))
}

func (p *postService) ToggleVolunteer(s *feed.Session, date, postID string) (*models.IntentResponse, error) {
	return intentResult(s.ToggleVolunteer(date, postID))
}

func (p *postService) DeletePost(s *feed.Session, date, postID string) (*models.IntentResponse, error) {
	return intentResult(s.DeletePost(date, postID))
}

func (p *postService) FailedIntents(s *feed.Session) []models.IntentResponse {
	failed := s.FailedIntents()

	out := make([]models.IntentResponse, 0, len(failed))
	for _, intent := range failed {
		out = append(out, toIntentResponse(intent))
	}
	return out
}

func (p *postService) Retry(s *feed.Session, intentID string) (*models.IntentResponse, error) {
	return intentResult(s.Retry(intentID))
}

func intentResult(intent *feed.Intent, err error) (*models.IntentResponse, error) {
	if err != nil {
		return nil, err
	}
	resp := toIntentResponse(intent)
	return &resp, nil
}

func toIntentResponse(intent *feed.Intent) models.IntentResponse {
	resp := models.IntentResponse{
		ID:        intent.ID,
		Kind:      string(intent.Kind),
		DateKey:   intent.DateKey,
		PostID:    intent.PostID,
		Field:     intent.Field,
		State:     intent.State().String(),
		CreatedAt: intent.CreatedAt.UTC().Format(time.RFC3339),
	}

	if intent.Kind != feed.IntentDelete {
		value := intent.Value
		resp.Value = &value
	}
	if err := intent.Err(); err != nil {
		resp.Error = err.Error()
	}

	return resp
}
