package service

import (
	"context"

	"communityBoard/internal/feed"
	"communityBoard/internal/models"
)

type FeedService interface {
	Feed(ctx context.Context, s *feed.Session) (*models.FeedResponse, error)
	LoadMore(ctx context.Context, s *feed.Session) (*models.FeedResponse, error)
}

type feedService struct{}

func NewFeedService() FeedService {
	return &feedService{}
}

func (f *feedService) Feed(ctx context.Context, s *feed.Session) (*models.FeedResponse, error) {
	page, err := s.Feed(ctx)
	if err != nil {
		return nil, err
	}

	resp := &models.FeedResponse{
		Posts:   make([]models.FeedPost, 0, len(page.Items)),
		Count:   page.Count,
		Total:   page.Total,
		HasMore: page.HasMore,
	}

	for _, item := range page.Items {
		resp.Posts = append(resp.Posts, toFeedPost(item, s.UserID))
	}

	return resp, nil
}

// LoadMore grows the window one step and renders the larger page.
func (f *feedService) LoadMore(ctx context.Context, s *feed.Session) (*models.FeedResponse, error) {
	if _, err := s.More(); err != nil {
		return nil, err
	}
	return f.Feed(ctx, s)
}

func toFeedPost(item feed.FeedItem, viewerID string) models.FeedPost {
	post := item.Post

	fp := models.FeedPost{
		ID:                 post.ID,
		DateKey:            post.DateKey,
		AuthorID:           post.UserID,
		AuthorName:         post.Name,
		Caption:            post.Caption,
		Category:           post.Category,
		PostedAt:           item.PostedAt,
		IsAvailable:        post.IsAvailable,
		IsVolunteer:        post.IsVolunteer,
		AvailabilityBadge:  models.BadgeCompleted,
		CompensationBadge:  models.BadgePaid,
		CanEdit:            post.UserID == viewerID,
		ProfilePlaceholder: item.Images.Profile.Placeholder(),
		PostImageStatus:    item.Images.Post.Status.String(),
	}

	if post.IsAvailable {
		fp.AvailabilityBadge = models.BadgeAvailable
	}
	if post.IsVolunteer {
		fp.CompensationBadge = models.BadgeVolunteer
	}
	if !item.Images.Profile.Placeholder() {
		fp.ProfileImageURL = item.Images.Profile.URL
	}
	if !item.Images.Post.Placeholder() {
		fp.PostImageURL = item.Images.Post.URL
	}

	return fp
}
