package seed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"communityBoard/internal/models"
	"communityBoard/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureYAML = `
users:
  - id: u1
    name: Ann
    email: ann@example.com
    jobSkillset: [cooking, driving]
    attendance:
      "2024-05-01":
        checkIn: 2024-05-01T08:05:00Z
  - id: u2
    name: Bob
posts:
  - id: p1
    date: "2024-05-01"
    userId: u1
    name: Ann
    caption: soup
    postedAt: 2024-05-01T09:00:00Z
    isAvailable: true
  - id: p2
    date: "2024-05-02"
    userId: u2
    name: Bob
    caption: ride
  - id: p3
    date: "2024-05-01"
    userId: u2
    caption: bread
images:
  - namespace: posts
    refId: p1
    file: p1.jpg
`

type recordingWriter struct {
	docs map[string][]byte
	err  error
}

func (w *recordingWriter) Put(ctx context.Context, collection, id string, data any) error {
	if w.err != nil {
		return w.err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if w.docs == nil {
		w.docs = make(map[string][]byte)
	}
	w.docs[collection+"/"+id] = raw
	return nil
}

func (w *recordingWriter) List(ctx context.Context, collection string) ([]*repository.Document, error) {
	var out []*repository.Document
	for key, raw := range w.docs {
		if id, ok := strings.CutPrefix(key, collection+"/"); ok {
			out = append(out, &repository.Document{Collection: collection, ID: id, Data: raw, Exists: true})
		}
	}
	return out, nil
}

func (w *recordingWriter) Delete(ctx context.Context, collection, id string) error {
	if _, ok := w.docs[collection+"/"+id]; !ok {
		return repository.ErrDocumentNotFound
	}
	delete(w.docs, collection+"/"+id)
	return nil
}

type recordingUploader struct {
	uploads map[string]string
}

func (u *recordingUploader) UploadImage(ctx context.Context, namespace, refID, fileName string, file io.Reader, size int64) (string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	if u.uploads == nil {
		u.uploads = make(map[string]string)
	}
	name := namespace + "/" + refID + "/" + fileName
	u.uploads[name] = string(data)
	return name, nil
}

func TestLoadFixture(t *testing.T) {
	t.Run("Корректный файл", func(t *testing.T) {
		f, err := LoadFixture(strings.NewReader(fixtureYAML))
		require.NoError(t, err)

		assert.Len(t, f.Users, 2)
		assert.Len(t, f.Posts, 3)
		assert.Equal(t, 2024, f.Posts[0].PostedAt.Year())
		assert.Equal(t, 8, f.Users[0].Attendance["2024-05-01"].CheckIn.Hour())
	})

	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "Неизвестное поле",
			yaml: "users:\n  - id: u1\n    name: Ann\n    role: admin\n",
		},
		{
			name: "Пользователь без имени",
			yaml: "users:\n  - id: u1\n",
		},
		{
			name: "Неверная дата поста",
			yaml: "users:\n  - id: u1\n    name: Ann\nposts:\n  - id: p1\n    date: \"01/05/2024\"\n    userId: u1\n",
		},
		{
			name: "Неизвестный автор",
			yaml: "users:\n  - id: u1\n    name: Ann\nposts:\n  - id: p1\n    date: \"2024-05-01\"\n    userId: u9\n",
		},
		{
			name: "Повтор поста",
			yaml: "users:\n  - id: u1\n    name: Ann\nposts:\n  - id: p1\n    date: \"2024-05-01\"\n    userId: u1\n  - id: p1\n    date: \"2024-05-01\"\n    userId: u1\n",
		},
		{
			name: "Неизвестное пространство изображений",
			yaml: "images:\n  - namespace: avatars\n    refId: u1\n    file: a.png\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFixture(strings.NewReader(tc.yaml))
			assert.ErrorIs(t, err, ErrInvalidFixture)
		})
	}

	t.Run("Пустой файл", func(t *testing.T) {
		f, err := LoadFixture(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, f.Users)
	})
}

func TestSeeder_Apply(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "p1.jpg"), []byte("jpeg-bytes"), 0o644))

	f, err := LoadFixture(strings.NewReader(fixtureYAML))
	require.NoError(t, err)

	docs := &recordingWriter{}
	images := &recordingUploader{}
	s := &Seeder{Docs: docs, Images: images, BaseDir: dir}

	report, err := s.Apply(context.Background(), f)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Users)
	assert.Equal(t, 3, report.Posts)
	assert.Equal(t, int64(len("jpeg-bytes")), report.Bytes())

	t.Run("Документ пользователя", func(t *testing.T) {
		raw, ok := docs.docs[repository.UsersCollection+"/u1"]
		require.True(t, ok)

		var user models.User
		require.NoError(t, json.Unmarshal(raw, &user))
		assert.Equal(t, "u1", user.UserID)
		assert.Equal(t, []string{"cooking", "driving"}, user.JobSkillset)
		assert.True(t, user.Attendance["2024-05-01"].CheckIn.Set)
		assert.False(t, user.Attendance["2024-05-01"].CheckOut.Set)
	})

	t.Run("Документ постов сохраняет порядок", func(t *testing.T) {
		raw, ok := docs.docs[repository.PostsCollection+"/"+repository.PostsDocumentID]
		require.True(t, ok)

		b, err := models.ParseBuckets(raw)
		require.NoError(t, err)
		assert.Equal(t, []string{"2024-05-01", "2024-05-02"}, b.Dates())

		bucket := b.Bucket("2024-05-01")
		require.Len(t, bucket, 2)
		assert.Equal(t, "p1", bucket[0].ID)
		assert.Equal(t, "p3", bucket[1].ID)
		assert.True(t, bucket[0].IsAvailable)
		require.NotNil(t, bucket[0].Date)
		assert.Nil(t, bucket[1].Date)
	})

	t.Run("Изображение загружено", func(t *testing.T) {
		assert.Equal(t, "jpeg-bytes", images.uploads["posts/p1/p1.jpg"])
	})
}

func TestSeeder_Errors(t *testing.T) {
	f, err := LoadFixture(strings.NewReader(fixtureYAML))
	require.NoError(t, err)

	t.Run("Ошибка записи", func(t *testing.T) {
		s := &Seeder{Docs: &recordingWriter{err: errors.New("db down")}}
		report, err := s.Apply(context.Background(), f)
		assert.Error(t, err)
		assert.Equal(t, 0, report.Users)
	})

	t.Run("Нет хранилища изображений", func(t *testing.T) {
		s := &Seeder{Docs: &recordingWriter{}}
		_, err := s.Apply(context.Background(), f)
		assert.ErrorIs(t, err, ErrNoUploader)
	})

	t.Run("Файл изображения отсутствует", func(t *testing.T) {
		s := &Seeder{Docs: &recordingWriter{}, Images: &recordingUploader{}, BaseDir: t.TempDir()}
		_, err := s.Apply(context.Background(), f)
		assert.Error(t, err)
	})
}

func TestSeeder_Prune(t *testing.T) {
	f, err := LoadFixture(strings.NewReader("users:\n  - id: u1\n    name: Ann\n"))
	require.NoError(t, err)

	docs := &recordingWriter{docs: map[string][]byte{
		repository.UsersCollection + "/u1":    []byte(`{}`),
		repository.UsersCollection + "/old":   []byte(`{}`),
		repository.PostsCollection + "/posts": []byte(`{}`),
	}}

	t.Run("Без флага ничего не удаляется", func(t *testing.T) {
		report, err := (&Seeder{Docs: docs}).Apply(context.Background(), f)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Pruned)
		assert.Contains(t, docs.docs, repository.UsersCollection+"/old")
	})

	t.Run("Лишние пользователи удаляются", func(t *testing.T) {
		report, err := (&Seeder{Docs: docs, Prune: true}).Apply(context.Background(), f)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Pruned)
		assert.NotContains(t, docs.docs, repository.UsersCollection+"/old")
		assert.Contains(t, docs.docs, repository.UsersCollection+"/u1")
		assert.Contains(t, docs.docs, repository.PostsCollection+"/posts")
	})
}

func TestSeeder_MaxSize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "p1.jpg"), []byte("jpeg-bytes"), 0o644))

	f, err := LoadFixture(strings.NewReader(fixtureYAML))
	require.NoError(t, err)

	t.Run("Слишком большое изображение", func(t *testing.T) {
		images := &recordingUploader{}
		s := &Seeder{Docs: &recordingWriter{}, Images: images, BaseDir: dir, MaxSize: 4}

		_, err := s.Apply(context.Background(), f)
		assert.ErrorIs(t, err, ErrImageTooLarge)
		assert.Empty(t, images.uploads)
	})

	t.Run("Размер на границе допустим", func(t *testing.T) {
		images := &recordingUploader{}
		s := &Seeder{Docs: &recordingWriter{}, Images: images, BaseDir: dir, MaxSize: int64(len("jpeg-bytes"))}

		report, err := s.Apply(context.Background(), f)
		require.NoError(t, err)
		assert.Len(t, report.Images, 1)
	})
}
