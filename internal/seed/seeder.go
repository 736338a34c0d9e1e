package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"communityBoard/internal/models"
	"communityBoard/internal/repository"
)

type DocumentWriter interface {
	Put(ctx context.Context, collection, id string, data any) error
	List(ctx context.Context, collection string) ([]*repository.Document, error)
	Delete(ctx context.Context, collection, id string) error
}

type ImageUploader interface {
	UploadImage(ctx context.Context, namespace, refID, fileName string, file io.Reader, size int64) (string, error)
}

var (
	ErrNoUploader    = errors.New("хранилище изображений не настроено")
	ErrImageTooLarge = errors.New("изображение превышает допустимый размер")
)

type Seeder struct {
	Docs    DocumentWriter
	Images  ImageUploader
	BaseDir string
	// MaxSize limits each uploaded image; zero means no limit.
	MaxSize int64
	// Prune deletes user documents the fixture does not list.
	Prune  bool
	Logger *slog.Logger
}

type UploadedImage struct {
	Object string
	Size   int64
}

type Report struct {
	Users  int
	Pruned int
	Posts  int
	Images []UploadedImage
}

// Bytes is the total size of uploaded images.
func (r *Report) Bytes() int64 {
	var total int64
	for _, img := range r.Images {
		total += img.Size
	}
	return total
}

// Apply writes every user document, replaces the posts document, then uploads images.
func (s *Seeder) Apply(ctx context.Context, f *Fixture) (*Report, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	report := &Report{}

	for _, u := range f.Users {
		if err := s.Docs.Put(ctx, repository.UsersCollection, u.ID, u.document()); err != nil {
			return report, fmt.Errorf("ошибка записи пользователя %s: %w", u.ID, err)
		}
		report.Users++
	}

	if s.Prune {
		pruned, err := s.prune(ctx, f, logger)
		report.Pruned = pruned
		if err != nil {
			return report, err
		}
	}

	if len(f.Posts) > 0 {
		buckets := models.NewPostBuckets()
		for _, p := range f.Posts {
			buckets.Put(p.post())
		}
		if err := s.Docs.Put(ctx, repository.PostsCollection, repository.PostsDocumentID, buckets); err != nil {
			return report, fmt.Errorf("ошибка записи постов: %w", err)
		}
		report.Posts = buckets.Len()
	}

	if len(f.Images) > 0 && s.Images == nil {
		return report, ErrNoUploader
	}

	for _, img := range f.Images {
		uploaded, err := s.upload(ctx, img)
		if err != nil {
			return report, err
		}
		logger.Info("Image uploaded", "object", uploaded.Object, "size", uploaded.Size)
		report.Images = append(report.Images, uploaded)
	}

	return report, nil
}

func (s *Seeder) prune(ctx context.Context, f *Fixture, logger *slog.Logger) (int, error) {
	keep := make(map[string]bool, len(f.Users))
	for _, u := range f.Users {
		keep[u.ID] = true
	}

	docs, err := s.Docs.List(ctx, repository.UsersCollection)
	if err != nil {
		return 0, fmt.Errorf("ошибка получения списка пользователей: %w", err)
	}

	pruned := 0
	for _, doc := range docs {
		if keep[doc.ID] {
			continue
		}
		if err := s.Docs.Delete(ctx, repository.UsersCollection, doc.ID); err != nil {
			return pruned, fmt.Errorf("ошибка удаления пользователя %s: %w", doc.ID, err)
		}
		logger.Info("User pruned", "user_id", doc.ID)
		pruned++
	}

	return pruned, nil
}

func (s *Seeder) upload(ctx context.Context, img ImageFixture) (UploadedImage, error) {
	path := img.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.BaseDir, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return UploadedImage{}, fmt.Errorf("ошибка открытия изображения %s: %w", img.File, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return UploadedImage{}, fmt.Errorf("ошибка чтения изображения %s: %w", img.File, err)
	}
	if s.MaxSize > 0 && info.Size() > s.MaxSize {
		return UploadedImage{}, fmt.Errorf("%s (%d байт): %w", img.File, info.Size(), ErrImageTooLarge)
	}

	object, err := s.Images.UploadImage(ctx, img.Namespace, img.RefID, filepath.Base(path), file, info.Size())
	if err != nil {
		return UploadedImage{}, fmt.Errorf("ошибка загрузки изображения %s: %w", img.File, err)
	}

	return UploadedImage{Object: object, Size: info.Size()}, nil
}
