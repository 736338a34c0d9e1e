package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"communityBoard/internal/config"
	"communityBoard/internal/feed"
	"communityBoard/internal/models"
	"communityBoard/internal/repository"
	"golang.org/x/sync/singleflight"
)

// SessionManager keeps one feed session per signed-in user.
type SessionManager interface {
	Acquire(ctx context.Context, userID string) (*feed.Session, error)
	Release(ctx context.Context, userID string) bool
	ReapIdle(ctx context.Context, now time.Time) int
	Run(ctx context.Context, interval time.Duration)
	CloseAll(ctx context.Context)
	Count() int
}

type openFunc func(ctx context.Context, userID string) (*feed.Session, error)

type sessionManager struct {
	open    openFunc
	idleTTL time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*feed.Session
	group    singleflight.Group
}

// documentSource joins the user and post subscriptions into a feed.Source.
type documentSource struct {
	users repository.UserRepository
	posts repository.PostRepository
}

func (d documentSource) SubscribeUser(ctx context.Context, userID string, fn func(*models.User, error)) (func(), error) {
	return d.users.SubscribeUser(ctx, userID, fn)
}

func (d documentSource) SubscribePosts(ctx context.Context, fn func(*models.PostBuckets, error)) (func(), error) {
	return d.posts.SubscribePosts(ctx, fn)
}

func NewSessionManager(repo *repository.Repository, blobs feed.BlobStore, cfg *config.Config, logger *slog.Logger) SessionManager {
	src := documentSource{users: repo.User, posts: repo.Post}
	opts := feed.Options{
		PageSize:       cfg.Feed.PageSize,
		PageStep:       cfg.Feed.PageStep,
		ImageCacheSize: cfg.Feed.ImageCacheSize,
		Location:       cfg.Feed.Location(),
		Logger:         logger,
	}

	return newSessionManager(func(ctx context.Context, userID string) (*feed.Session, error) {
		return feed.OpenSession(ctx, userID, src, repo.Post, blobs, opts)
	}, cfg.Server.SessionIdleTTL, logger)
}

func newSessionManager(open openFunc, idleTTL time.Duration, logger *slog.Logger) *sessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &sessionManager{
		open:     open,
		idleTTL:  idleTTL,
		logger:   logger,
		sessions: make(map[string]*feed.Session),
	}
}

// Acquire returns the user's session, opening it on first use.
// Concurrent first requests share one open.
func (m *sessionManager) Acquire(ctx context.Context, userID string) (*feed.Session, error) {
	if s := m.lookup(userID); s != nil {
		s.Touch()
		return s, nil
	}

	v, err, _ := m.group.Do(userID, func() (any, error) {
		if s := m.lookup(userID); s != nil {
			return s, nil
		}

		s, err := m.open(ctx, userID)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.sessions[userID] = s
		m.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*feed.Session), nil
}

func (m *sessionManager) lookup(userID string) *feed.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID]
}

// Release closes the user's session. It reports whether one was open.
func (m *sessionManager) Release(ctx context.Context, userID string) bool {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if ok {
		s.Close(ctx)
	}
	return ok
}

// ReapIdle closes sessions unused for longer than the idle TTL.
func (m *sessionManager) ReapIdle(ctx context.Context, now time.Time) int {
	if m.idleTTL <= 0 {
		return 0
	}

	var idle []*feed.Session
	m.mu.Lock()
	for userID, s := range m.sessions {
		if now.Sub(s.LastUsed()) > m.idleTTL {
			idle = append(idle, s)
			delete(m.sessions, userID)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Close(ctx)
	}
	if len(idle) > 0 {
		m.logger.Info("Idle sessions released", "count", len(idle))
	}
	return len(idle)
}

// Run reaps idle sessions every interval until ctx is done.
func (m *sessionManager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.ReapIdle(ctx, now)
		}
	}
}

func (m *sessionManager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*feed.Session)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Close(ctx)
		}()
	}
	wg.Wait()
}

func (m *sessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
