package repository

import (
	"communityBoard/internal/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/go-playground/validator/v10"
	"log/slog"
)

type userRepository struct {
	store    DocumentStore
	validate *validator.Validate
	logger   *slog.Logger
}

func NewUserRepository(store DocumentStore, logger *slog.Logger) UserRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &userRepository{
		store:    store,
		validate: validator.New(),
		logger:   logger,
	}
}

func (r *userRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	doc, err := r.store.Get(ctx, UsersCollection, userID)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil, fmt.Errorf("пользователь с ID %s: %w", userID, ErrUserNotFound)
		}
		return nil, fmt.Errorf("ошибка при получении пользователя: %w", err)
	}

	return r.decodeUser(doc)
}

func (r *userRepository) ListUsers(ctx context.Context) ([]*models.User, error) {
	docs, err := r.store.List(ctx, UsersCollection)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении пользователей: %w", err)
	}

	users := make([]*models.User, 0, len(docs))
	for _, doc := range docs {
		user, err := r.decodeUser(doc)
		if err != nil {
			r.logger.Warn("Skipping invalid user document", "user_id", doc.ID, "error", err)
			continue
		}
		users = append(users, user)
	}

	return users, nil
}

func (r *userRepository) SubscribeUser(ctx context.Context, userID string, fn func(*models.User, error)) (func(), error) {
	return r.store.Subscribe(ctx, UsersCollection, userID, func(doc *Document, err error) {
		if err != nil {
			fn(nil, err)
			return
		}
		if !doc.Exists {
			fn(nil, nil)
			return
		}
		fn(r.decodeUser(doc))
	})
}

func (r *userRepository) decodeUser(doc *Document) (*models.User, error) {
	var user models.User
	if err := json.Unmarshal(doc.Data, &user); err != nil {
		return nil, fmt.Errorf("неверный формат документа пользователя %s: %w", doc.ID, err)
	}

	if err := r.validate.Struct(user); err != nil {
		return nil, fmt.Errorf("неверные данные пользователя %s: %w", doc.ID, err)
	}

	user.ID = doc.ID
	if user.UserID == "" {
		user.UserID = doc.ID
	}

	return &user, nil
}
