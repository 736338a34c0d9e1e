package service

import (
	"context"

	"communityBoard/internal/repository"
)

type StatsService interface {
	CountDocuments(ctx context.Context) (map[string]int, error)
}

type statsService struct {
	statsRepo repository.StatsRepository
}

func NewStatsService(statsRepo repository.StatsRepository) StatsService {
	return &statsService{statsRepo: statsRepo}
}

func (t *statsService) CountDocuments(ctx context.Context) (map[string]int, error) {
	counts, err := t.statsRepo.CountDocuments(ctx)
	if err != nil {
		return nil, err
	}

	return counts, nil
}
