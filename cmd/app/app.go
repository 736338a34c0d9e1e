package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"communityBoard/internal/config"
	"communityBoard/internal/database"
	"communityBoard/internal/repository"
	"communityBoard/internal/service"
	"communityBoard/internal/storage"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// App holds the connections opened for the configured backends.
type App struct {
	Repo     *repository.Repository
	Services *service.Service
	Storage  *storage.MinIOClient

	closers []func() error
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("Ошибка при закрытии соединения: %v", err)
		}
	}
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) *App {
	a := &App{}

	// connection document store
	repo, err := a.openRepository(ctx, cfg, logger)
	if err != nil {
		a.Close()
		log.Fatalf("Не удалось подключиться к хранилищу документов: %v", err)
	}
	a.Repo = repo

	// connection MinIO
	minioClient, err := storage.NewMinIOClient(cfg)
	if err != nil {
		a.Close()
		log.Fatalf("Не удалось инициализировать MinIO: %v", err)
	}
	if err := minioClient.EnsureBucket(ctx); err != nil {
		log.Printf("Внимание: бакет MinIO недоступен: %v", err)
	}
	a.Storage = minioClient

	a.Services = service.NewService(repo, cfg, minioClient, logger)

	return a
}

func (a *App) openRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repository.Repository, error) {
	switch cfg.DocstoreBackend {
	case config.BackendPostgres:
		db, err := database.ConnectDB(cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.CloseDB)

		store := repository.NewDocumentRepository(db.DB, func() repository.Listener {
			return db.NewListener()
		}, logger)

		repo := repository.NewRepository(store, logger)
		repo.Stats = repository.NewStatsRepository(db.DB)
		return repo, nil

	case config.BackendNATS:
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name("community-board"))
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к NATS: %w", err)
		}
		a.closers = append(a.closers, func() error {
			return nc.Drain()
		})

		js, err := jetstream.New(nc)
		if err != nil {
			return nil, fmt.Errorf("ошибка создания контекста JetStream: %w", err)
		}

		kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      cfg.NATS.Bucket,
			Description: "Документы пользователей и постов",
			History:     1,
		})
		if err != nil {
			return nil, fmt.Errorf("ошибка создания KV бакета %s: %w", cfg.NATS.Bucket, err)
		}

		log.Printf("Хранилище документов: NATS KV %s", cfg.NATS.Bucket)
		return repository.NewRepository(repository.NewKVDocumentRepository(kv, logger), logger), nil

	default:
		return nil, fmt.Errorf("неизвестное хранилище документов: %q", cfg.DocstoreBackend)
	}
}
