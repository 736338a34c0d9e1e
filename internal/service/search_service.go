package service

import (
	"context"
	"fmt"
	"strings"

	"communityBoard/internal/feed"
	"communityBoard/internal/models"
	"communityBoard/internal/repository"
)

type SearchService interface {
	Users(ctx context.Context, s *feed.Session, query string) ([]models.UserSearchResult, error)
	UserPosts(ctx context.Context, s *feed.Session, userID string) ([]models.UserPost, error)
}

type searchService struct {
	userRepo repository.UserRepository
}

func NewSearchService(userRepo repository.UserRepository) SearchService {
	return &searchService{userRepo: userRepo}
}

// Users lists everyone but the signed-in user whose name contains query,
// ignoring case. An empty query matches all.
func (ss *searchService) Users(ctx context.Context, s *feed.Session, query string) ([]models.UserSearchResult, error) {
	users, err := ss.userRepo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска пользователей: %w", err)
	}

	query = strings.ToLower(strings.TrimSpace(query))

	var matched []*models.User
	for _, user := range users {
		if user.ID == s.UserID {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(user.Name), query) {
			continue
		}
		matched = append(matched, user)
	}

	refs := make([]models.ImageRef, len(matched))
	for i, user := range matched {
		refs[i] = models.ImageRef{Namespace: models.ProfileImageNamespace, RefID: user.ID}
	}
	images := s.SearchImages().ResolveAll(ctx, refs)

	results := make([]models.UserSearchResult, 0, len(matched))
	for i, user := range matched {
		image := images[refs[i]]
		result := models.UserSearchResult{
			UserID:      user.ID,
			Name:        user.Name,
			Placeholder: image.Placeholder(),
		}
		if !image.Placeholder() {
			result.ImageURL = image.URL
		}
		results = append(results, result)
	}

	return results, nil
}

// UserPosts lists the author's dated posts, newest first. The author's
// profile picture and the post pictures come from the search image cache.
func (ss *searchService) UserPosts(ctx context.Context, s *feed.Session, userID string) ([]models.UserPost, error) {
	posts := feed.FilterByAuthor(s.Posts(), userID)

	profileRef := models.ImageRef{Namespace: models.ProfileImageNamespace, RefID: userID}
	refs := make([]models.ImageRef, 0, len(posts)+1)
	refs = append(refs, profileRef)
	for _, post := range posts {
		refs = append(refs, models.ImageRef{Namespace: models.PostImageNamespace, RefID: post.PostPicRef})
	}
	images := s.SearchImages().ResolveAll(ctx, refs)
	profile := images[profileRef]

	out := make([]models.UserPost, 0, len(posts))
	for i, post := range posts {
		picture := images[refs[i+1]]
		up := models.UserPost{
			ID:                 post.ID,
			DateKey:            post.DateKey,
			Caption:            post.Caption,
			Category:           post.Category,
			Date:               feed.FormatShortDate(post.Date, s.Location()),
			IsAvailable:        post.IsAvailable,
			IsVolunteer:        post.IsVolunteer,
			ProfilePlaceholder: profile.Placeholder(),
			PostImageStatus:    picture.Status.String(),
		}
		if !profile.Placeholder() {
			up.ProfileImageURL = profile.URL
		}
		if !picture.Placeholder() {
			up.PostImageURL = picture.URL
		}
		out = append(out, up)
	}

	return out, nil
}
