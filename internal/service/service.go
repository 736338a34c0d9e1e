package service

import (
	"log/slog"

	"communityBoard/internal/config"
	"communityBoard/internal/repository"
	"communityBoard/internal/storage"
)

type Service struct {
	Auth       AuthService
	Sessions   SessionManager
	Feed       FeedService
	Post       PostService
	Search     SearchService
	Attendance AttendanceService
	Profile    ProfileService
	Stats      StatsService
}

func NewService(rep *repository.Repository, cfg *config.Config, storage storage.Storage, logger *slog.Logger) *Service {
	return &Service{
		Auth:       NewAuthService(cfg),
		Sessions:   NewSessionManager(rep, storage, cfg, logger),
		Feed:       NewFeedService(),
		Post:       NewPostService(),
		Search:     NewSearchService(rep.User),
		Attendance: NewAttendanceService(),
		Profile:    NewProfileService(),
		Stats:      NewStatsService(rep.Stats),
	}
}
