package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"communityBoard/internal/models"
)

// postRepository keeps every post in the single posts/posts document,
// grouped by date key then post id.
type postRepository struct {
	store DocumentStore
}

func NewPostRepository(store DocumentStore) PostRepository {
	return &postRepository{store: store}
}

func (r *postRepository) GetPosts(ctx context.Context) (*models.PostBuckets, error) {
	doc, err := r.store.Get(ctx, PostsCollection, PostsDocumentID)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return models.NewPostBuckets(), nil
		}
		return nil, fmt.Errorf("ошибка при получении постов: %w", err)
	}

	return models.ParseBuckets(doc.Data)
}

func (r *postRepository) SubscribePosts(ctx context.Context, fn func(*models.PostBuckets, error)) (func(), error) {
	return r.store.Subscribe(ctx, PostsCollection, PostsDocumentID, func(doc *Document, err error) {
		if err != nil {
			fn(nil, err)
			return
		}
		if !doc.Exists {
			fn(models.NewPostBuckets(), nil)
			return
		}
		fn(models.ParseBuckets(doc.Data))
	})
}

func (r *postRepository) SetPostField(ctx context.Context, date, postID, field string, value any) error {
	path, err := postPath(date, postID, field)
	if err != nil {
		return err
	}

	err = r.store.UpdateField(ctx, PostsCollection, PostsDocumentID, path, value)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении поста %s: %w", postID, err)
	}

	return nil
}

// RemovePost writes null over the post entry.
func (r *postRepository) RemovePost(ctx context.Context, date, postID string) error {
	path, err := postPath(date, postID)
	if err != nil {
		return err
	}

	err = r.store.UpdateField(ctx, PostsCollection, PostsDocumentID, path, nil)
	if err != nil {
		return fmt.Errorf("ошибка при удалении поста %s: %w", postID, err)
	}

	return nil
}

func postPath(segments ...string) (string, error) {
	for _, s := range segments {
		if s == "" || strings.Contains(s, ".") {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, s)
		}
	}
	return strings.Join(segments, "."), nil
}
