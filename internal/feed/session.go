package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"communityBoard/internal/metrics"
	"communityBoard/internal/models"
)

var (
	ErrUserNotFound  = errors.New("документ пользователя не найден")
	ErrSessionClosed = errors.New("сессия закрыта")
)

// Image cache views.
const (
	FeedView   = "feed"
	SearchView = "search"
)

// Source delivers realtime snapshots of the documents a session follows.
// Both subscriptions deliver the current snapshot before returning.
type Source interface {
	SubscribeUser(ctx context.Context, userID string, fn func(*models.User, error)) (func(), error)
	SubscribePosts(ctx context.Context, fn func(*models.PostBuckets, error)) (func(), error)
}

type Options struct {
	PageSize       int
	PageStep       int
	ImageCacheSize int
	Location       *time.Location
	Logger         *slog.Logger
}

// Session is the state of one signed-in user's view: identity, the latest
// user and posts documents, the feed window and per-view image caches.
type Session struct {
	UserID string

	mu       sync.Mutex
	user     *models.User
	userErr  error
	window   *Window
	lastUsed time.Time
	closed   bool

	posts        *Posts
	feedImages   *ImageCache
	searchImages *ImageCache
	location     *time.Location

	cancel      context.CancelFunc
	unsubscribe []func()
	closeOnce   sync.Once
	logger      *slog.Logger
}

// OpenSession subscribes to the user and posts documents. A missing user
// document fails the open with ErrUserNotFound.
func OpenSession(ctx context.Context, userID string, src Source, writer PostWriter, blobs BlobStore, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("user_id", userID)

	// subscriptions and writes outlive the request that opened the session
	base, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s := &Session{
		UserID:       userID,
		window:       NewWindow(opts.PageSize, opts.PageStep),
		lastUsed:     time.Now(),
		posts:        NewPosts(base, writer, logger),
		feedImages:   NewImageCache(FeedView, blobs, opts.ImageCacheSize, logger),
		searchImages: NewImageCache(SearchView, blobs, opts.ImageCacheSize, logger),
		location:     location(opts.Location),
		cancel:       cancel,
		logger:       logger,
	}

	if remover, ok := blobs.(ImageRemover); ok {
		s.posts.images = remover
	}

	unsubUser, err := src.SubscribeUser(base, userID, s.onUser)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ошибка подписки на пользователя: %w", err)
	}

	s.mu.Lock()
	found, userErr := s.user != nil, s.userErr
	s.mu.Unlock()
	if !found {
		unsubUser()
		cancel()
		if userErr != nil {
			return nil, fmt.Errorf("ошибка загрузки пользователя %s: %w", userID, userErr)
		}
		return nil, fmt.Errorf("%s: %w", userID, ErrUserNotFound)
	}

	unsubPosts, err := src.SubscribePosts(base, s.onPosts)
	if err != nil {
		unsubUser()
		cancel()
		return nil, fmt.Errorf("ошибка подписки на посты: %w", err)
	}

	s.unsubscribe = []func(){unsubUser, unsubPosts}
	metrics.OpenSessions.Inc()
	logger.Info("Session opened")

	return s, nil
}

// WithSession opens a session, runs fn and always releases the session.
func WithSession(ctx context.Context, userID string, src Source, writer PostWriter, blobs BlobStore, opts Options, fn func(*Session) error) error {
	s, err := OpenSession(ctx, userID, src, writer, blobs, opts)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	return fn(s)
}

func (s *Session) onUser(u *models.User, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.userErr = err
		s.logger.Warn("User subscription error", "error", err)
		return
	}
	s.user = u
}

func (s *Session) onPosts(b *models.PostBuckets, err error) {
	if err != nil {
		s.logger.Warn("Posts subscription error", "error", err)
		return
	}
	s.posts.Replace(b)
}

// User returns a copy of the latest user document.
func (s *Session) User() (*models.User, error) {
	s.Touch()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return nil, fmt.Errorf("%s: %w", s.UserID, ErrUserNotFound)
	}
	u := *s.user
	return &u, nil
}

// FeedItem is one visible feed entry with its resolved images.
type FeedItem struct {
	Post     *models.Post
	PostedAt string
	Images   PostImages
}

type Page struct {
	Items   []FeedItem
	Count   int
	Total   int
	HasMore bool
}

// Feed renders the visible prefix of the sorted feed and resolves images
// for exactly those posts.
func (s *Session) Feed(ctx context.Context) (*Page, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	sorted := s.posts.Sorted()

	s.mu.Lock()
	visible := s.window.Visible(sorted)
	count := s.window.Count()
	hasMore := s.window.HasMore(len(sorted))
	s.mu.Unlock()

	images := s.feedImages.ResolvePosts(ctx, visible)

	items := make([]FeedItem, len(visible))
	for i, post := range visible {
		items[i] = FeedItem{
			Post:     post,
			PostedAt: FormatFeedTime(post.Date, s.location),
			Images:   images[i],
		}
	}

	return &Page{Items: items, Count: count, Total: len(sorted), HasMore: hasMore}, nil
}

// More grows the feed window by one step.
func (s *Session) More() (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.Advance(), nil
}

func (s *Session) ToggleAvailability(date, postID string) (*Intent, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.posts.ToggleAvailability(s.UserID, date, postID)
}

func (s *Session) ToggleVolunteer(date, postID string) (*Intent, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.posts.ToggleVolunteer(s.UserID, date, postID)
}

func (s *Session) DeletePost(date, postID string) (*Intent, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.posts.Delete(s.UserID, date, postID)
}

func (s *Session) Retry(intentID string) (*Intent, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.posts.Retry(s.UserID, intentID)
}

func (s *Session) FailedIntents() []*Intent {
	return s.posts.Failed()
}

// Posts returns a copy of the displayable posts, newest first.
func (s *Session) Posts() []*models.Post {
	s.Touch()
	return s.posts.Sorted()
}

func (s *Session) SearchImages() *ImageCache {
	return s.searchImages
}

func (s *Session) Location() *time.Location {
	return s.location
}

func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Close waits for pending writes, bounded by ctx, then cancels them and
// releases both subscriptions. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		done := make(chan struct{})
		go func() {
			s.posts.Drain()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			s.logger.Warn("Session closed with pending writes", "pending", s.posts.PendingCount())
		}

		s.cancel()
		for _, unsubscribe := range s.unsubscribe {
			unsubscribe()
		}

		metrics.OpenSessions.Dec()
		s.logger.Info("Session closed")
	})
}

func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	s.lastUsed = time.Now()
	return nil
}

// Touch marks the session as used now.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}
