package repository

import (
	"communityBoard/internal/models"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
)

const (
	UsersCollection = "users"
	PostsCollection = "posts"
	PostsDocumentID = "posts"
)

var (
	ErrDocumentNotFound = errors.New("документ не найден")
	ErrUserNotFound     = errors.New("пользователь не найден")
	ErrInvalidPath      = errors.New("неверный путь поля")
	ErrUpdateConflict   = errors.New("конфликт версий документа")
)

type Document struct {
	Collection string
	ID         string
	Data       json.RawMessage
	Exists     bool
}

// DocumentStore is the document database consumed by the service.
// Subscribe delivers the current snapshot before it returns, then every change
// until the returned function is called.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Subscribe(ctx context.Context, collection, id string, fn func(*Document, error)) (func(), error)
	List(ctx context.Context, collection string) ([]*Document, error)
	UpdateField(ctx context.Context, collection, id, path string, value any) error
	Put(ctx context.Context, collection, id string, data any) error
	Delete(ctx context.Context, collection, id string) error
}

type UserRepository interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	SubscribeUser(ctx context.Context, userID string, fn func(*models.User, error)) (func(), error)
}

type PostRepository interface {
	GetPosts(ctx context.Context) (*models.PostBuckets, error)
	SubscribePosts(ctx context.Context, fn func(*models.PostBuckets, error)) (func(), error)
	SetPostField(ctx context.Context, date, postID, field string, value any) error
	RemovePost(ctx context.Context, date, postID string) error
}

type Repository struct {
	Documents DocumentStore
	User      UserRepository
	Post      PostRepository
	Stats     StatsRepository
}

func NewRepository(store DocumentStore, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		Documents: store,
		User:      NewUserRepository(store, logger),
		Post:      NewPostRepository(store),
		Stats:     NewStoreStats(store),
	}
}
