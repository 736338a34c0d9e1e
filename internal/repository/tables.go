package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// StatsRepository reports document counts for the health endpoint.
type StatsRepository interface {
	CountDocuments(ctx context.Context) (map[string]int, error)
}

type collectionCount struct {
	Collection string `db:"collection"`
	Count      int    `db:"count"`
}

type statsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) CountDocuments(ctx context.Context) (map[string]int, error) {
	var rows []collectionCount

	err := r.db.SelectContext(ctx, &rows, `
			SELECT collection, COUNT(*) AS count
			FROM documents
			GROUP BY collection
			ORDER BY collection
		`)

	if err != nil {
		return nil, fmt.Errorf("ошибка при подсчёте документов: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Collection] = row.Count
	}

	return counts, nil
}

// storeStats counts through any DocumentStore, used when the backend is not Postgres.
type storeStats struct {
	store DocumentStore
}

func NewStoreStats(store DocumentStore) StatsRepository {
	return &storeStats{store: store}
}

func (s *storeStats) CountDocuments(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, 2)
	for _, collection := range []string{UsersCollection, PostsCollection} {
		docs, err := s.store.List(ctx, collection)
		if err != nil {
			return nil, fmt.Errorf("ошибка при подсчёте документов: %w", err)
		}
		if len(docs) > 0 {
			counts[collection] = len(docs)
		}
	}
	return counts, nil
}
