package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"communityBoard/internal/config"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Storage is the blob store holding profile and post images under
// "<namespace>/<ref>/<object>".
type Storage interface {
	ListObjects(ctx context.Context, prefix string) ([]string, error)
	GetObjectURL(ctx context.Context, objectName string) (string, error)
	DeleteObject(ctx context.Context, objectName string) error
	UploadImage(ctx context.Context, namespace, refID, fileName string, file io.Reader, size int64) (string, error)
}

type MinIOClient struct {
	client *minio.Client
	config config.MinIO
}

func NewMinIOClient(cfg *config.Config) (*MinIOClient, error) {
	client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
		Secure: cfg.MinIO.UseSSL,
		Region: cfg.MinIO.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания клиента MinIO: %w", err)
	}

	return &MinIOClient{client: client, config: cfg.MinIO}, nil
}

// EnsureBucket creates the configured bucket when it does not exist yet.
func (m *MinIOClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.config.BucketName)
	if err != nil {
		return fmt.Errorf("ошибка проверки бакета MinIO: %w", err)
	}
	if exists {
		return nil
	}

	err = m.client.MakeBucket(ctx, m.config.BucketName, minio.MakeBucketOptions{Region: m.config.Region})
	if err != nil {
		return fmt.Errorf("ошибка создания бакета MinIO: %w", err)
	}
	return nil
}

func (m *MinIOClient) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	var names []string

	for object := range m.client.ListObjects(ctx, m.config.BucketName, minio.ListObjectsOptions{Prefix: prefix}) {
		if object.Err != nil {
			return nil, fmt.Errorf("ошибка получения списка объектов %s: %w", prefix, object.Err)
		}
		// a nested "directory" is not an image
		if strings.HasSuffix(object.Key, "/") {
			continue
		}
		names = append(names, object.Key)
	}

	return names, nil
}

func (m *MinIOClient) GetObjectURL(ctx context.Context, objectName string) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.config.BucketName, objectName, m.expiry(), url.Values{})
	if err != nil {
		return "", fmt.Errorf("ошибка получения ссылки на объект %s: %w", objectName, err)
	}
	return u.String(), nil
}

func (m *MinIOClient) DeleteObject(ctx context.Context, objectName string) error {
	err := m.client.RemoveObject(ctx, m.config.BucketName, objectName,
		minio.RemoveObjectOptions{
			GovernanceBypass: true,
		})
	if err != nil {
		return fmt.Errorf("ошибка удаления из MinIO: %w", err)
	}
	return nil
}

// UploadImage stores the file under namespace/refID and returns the object name.
// The content type is detected from the file contents.
func (m *MinIOClient) UploadImage(ctx context.Context, namespace, refID, fileName string, file io.Reader, size int64) (string, error) {
	head := make([]byte, 3072)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("ошибка чтения файла %s: %w", fileName, err)
	}
	head = head[:n]

	mtype := mimetype.Detect(head)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("файл %s не является изображением: %s", fileName, mtype.String())
	}

	now := time.Now()
	objectName := ObjectName(namespace, refID, uuid.New().String()+mtype.Extension())

	_, err = m.client.PutObject(ctx, m.config.BucketName, objectName, io.MultiReader(bytes.NewReader(head), file), size,
		minio.PutObjectOptions{
			ContentType: mtype.String(),
			UserMetadata: map[string]string{
				"original-filename": fileName,
				"ref-id":            refID,
				"uploaded-at":       now.Format(time.RFC3339),
			},
		})
	if err != nil {
		return "", fmt.Errorf("ошибка загрузки в MinIO: %w", err)
	}

	return objectName, nil
}

func (m *MinIOClient) expiry() time.Duration {
	if m.config.URLExpiry <= 0 {
		return 24 * time.Hour
	}
	return m.config.URLExpiry
}

// ObjectName builds "<namespace>/<refID>/<file>".
func ObjectName(namespace, refID, file string) string {
	return namespace + "/" + refID + "/" + file
}
