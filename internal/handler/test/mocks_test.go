package test

import (
	"context"
	"time"

	"communityBoard/internal/feed"
	"communityBoard/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) ValidateToken(tokenString string) (*jwt.Token, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jwt.Token), args.Error(1)
}

func (m *MockAuthService) UserIDFromToken(tokenString string) (string, error) {
	args := m.Called(tokenString)
	return args.String(0), args.Error(1)
}

type MockSessionManager struct {
	mock.Mock
}

func (m *MockSessionManager) Acquire(ctx context.Context, userID string) (*feed.Session, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*feed.Session), args.Error(1)
}

func (m *MockSessionManager) Release(ctx context.Context, userID string) bool {
	args := m.Called(ctx, userID)
	return args.Bool(0)
}

func (m *MockSessionManager) ReapIdle(ctx context.Context, now time.Time) int {
	args := m.Called(ctx, now)
	return args.Int(0)
}

func (m *MockSessionManager) Run(ctx context.Context, interval time.Duration) {
	m.Called(ctx, interval)
}

func (m *MockSessionManager) CloseAll(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockSessionManager) Count() int {
	args := m.Called()
	return args.Int(0)
}

type MockStatsService struct {
	mock.Mock
}

func (m *MockStatsService) CountDocuments(ctx context.Context) (map[string]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

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

// staticSource serves fixed documents and never pushes updates.
type staticSource struct {
	user  *models.User
	posts *models.PostBuckets
}

func (s staticSource) SubscribeUser(ctx context.Context, userID string, fn func(*models.User, error)) (func(), error) {
	fn(s.user, nil)
	return func() {}, nil
}

func (s staticSource) SubscribePosts(ctx context.Context, fn func(*models.PostBuckets, error)) (func(), error) {
	fn(s.posts, nil)
	return func() {}, nil
}

type okWriter struct{}

func (okWriter) SetPostField(ctx context.Context, date, postID, field string, value any) error {
	return nil
}

func (okWriter) RemovePost(ctx context.Context, date, postID string) error {
	return nil
}

// emptyBlobs has no objects under any prefix.
type emptyBlobs struct{}

func (emptyBlobs) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	return nil, nil
}

func (emptyBlobs) GetObjectURL(ctx context.Context, name string) (string, error) {
	return "", nil
}
