package service

import (
	"context"

	"communityBoard/internal/feed"
	"communityBoard/internal/models"
)

type ProfileService interface {
	Header(ctx context.Context, s *feed.Session) (*models.ProfileHeader, error)
}

type profileService struct{}

func NewProfileService() ProfileService {
	return &profileService{}
}

func (p *profileService) Header(ctx context.Context, s *feed.Session) (*models.ProfileHeader, error) {
	user, err := s.User()
	if err != nil {
		return nil, err
	}

	skills := make([]string, len(user.JobSkillset))
	copy(skills, user.JobSkillset)

	return &models.ProfileHeader{
		UserID:        user.ID,
		Name:          user.Name,
		ImageURL:      user.ImageURL,
		ContactNumber: orNotAvailable(user.ContactNumber),
		Email:         orNotAvailable(user.Email),
		FacebookLink:  user.FacebookLink,
		Skills:        skills,
	}, nil
}

func orNotAvailable(s string) string {
	if s == "" {
		return models.NotAvailable
	}
	return s
}
