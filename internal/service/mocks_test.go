package service

import (
	"context"
	"sync"
	"testing"

	"communityBoard/internal/feed"
	"communityBoard/internal/models"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) ListUsers(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) SubscribeUser(ctx context.Context, userID string, fn func(*models.User, error)) (func(), error) {
	args := m.Called(ctx, userID, fn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}

type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockBlobStore) GetObjectURL(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

// staticSource serves fixed documents and never pushes updates.
type staticSource struct {
	mu       sync.Mutex
	user     *models.User
	posts    *models.PostBuckets
	released int
}

func (s *staticSource) SubscribeUser(ctx context.Context, userID string, fn func(*models.User, error)) (func(), error) {
	fn(s.user, nil)
	return s.release, nil
}

func (s *staticSource) SubscribePosts(ctx context.Context, fn func(*models.PostBuckets, error)) (func(), error) {
	fn(s.posts, nil)
	return s.release, nil
}

func (s *staticSource) release() {
	s.mu.Lock()
	s.released++
	s.mu.Unlock()
}

func (s *staticSource) Released() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

type okWriter struct{}

func (okWriter) SetPostField(ctx context.Context, date, postID, field string, value any) error {
	return nil
}

func (okWriter) RemovePost(ctx context.Context, date, postID string) error {
	return nil
}

const testPosts = `{
	"2024-05-01": {
		"p1": {"userID": "u1", "name": "Ann", "date": {"seconds": 1714521600}, "caption": "soup", "isAvailable": true, "userProfileRef": "u1", "postPicRef": "p1"}
	},
	"2024-05-02": {
		"p2": {"userID": "u2", "name": "Bob", "date": {"seconds": 1714608000}, "caption": "ride", "isVolunteer": true},
		"p3": {"userID": "u2", "name": "Bob", "caption": "undated"}
	}
}`

func openSession(t *testing.T, user *models.User, blobs feed.BlobStore) *feed.Session {
	t.Helper()

	b, err := models.ParseBuckets([]byte(testPosts))
	require.NoError(t, err)

	s, err := feed.OpenSession(context.Background(), "u1", &staticSource{user: user, posts: b}, okWriter{}, blobs, feed.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(context.Background()) })

	return s
}
