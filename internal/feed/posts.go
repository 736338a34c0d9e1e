package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"communityBoard/internal/metrics"
	"communityBoard/internal/models"
)

var (
	ErrPostNotFound   = errors.New("пост не найден")
	ErrForbidden      = errors.New("изменять пост может только автор")
	ErrIntentNotFound = errors.New("неудачная операция не найдена")
)

// PostWriter submits post mutations to the document store.
type PostWriter interface {
	SetPostField(ctx context.Context, date, postID, field string, value any) error
	RemovePost(ctx context.Context, date, postID string) error
}

// ImageRemover deletes the stored pictures of removed posts.
type ImageRemover interface {
	ListObjects(ctx context.Context, prefix string) ([]string, error)
	DeleteObject(ctx context.Context, name string) error
}

// Posts is the local copy of the posts document together with the
// optimistic mutations applied on top of it.
type Posts struct {
	mu      sync.Mutex
	buckets *models.PostBuckets
	pending []*Intent
	failed  []*Intent
	closing bool

	ctx    context.Context
	writer PostWriter
	images ImageRemover
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewPosts creates an empty applier. Remote writes run on ctx.
func NewPosts(ctx context.Context, writer PostWriter, logger *slog.Logger) *Posts {
	if logger == nil {
		logger = slog.Default()
	}
	return &Posts{
		buckets: models.NewPostBuckets(),
		ctx:     ctx,
		writer:  writer,
		logger:  logger,
	}
}

// Replace installs a fresh snapshot and re-applies the intents still pending.
func (p *Posts) Replace(b *models.PostBuckets) {
	if b == nil {
		b = models.NewPostBuckets()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.buckets = b
	for _, intent := range p.pending {
		switch intent.Kind {
		case IntentDelete:
			if post, pos, ok := p.buckets.Remove(intent.DateKey, intent.PostID); ok {
				intent.removed = post
				intent.position = pos
			}
		default:
			if post, ok := p.buckets.Get(intent.DateKey, intent.PostID); ok {
				setFlag(post, intent.Field, intent.Value)
			}
		}
	}
}

// Sorted returns a copy of the displayable posts, newest first.
func (p *Posts) Sorted() []*models.Post {
	p.mu.Lock()
	b := p.buckets.Clone()
	p.mu.Unlock()

	return SortPosts(Flatten(b))
}

// Buckets returns a copy of the current local structure.
func (p *Posts) Buckets() *models.PostBuckets {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buckets.Clone()
}

func (p *Posts) ToggleAvailability(userID, date, postID string) (*Intent, error) {
	return p.toggle(userID, date, postID, IntentToggleAvailability)
}

func (p *Posts) ToggleVolunteer(userID, date, postID string) (*Intent, error) {
	return p.toggle(userID, date, postID, IntentToggleVolunteer)
}

func (p *Posts) toggle(userID, date, postID string, kind IntentKind) (*Intent, error) {
	p.mu.Lock()
	if err := p.admit(); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	post, err := p.authorize(userID, date, postID)
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	value := !flag(post, kind.field())
	intent := p.applyFlag(post, kind, value)
	p.wg.Add(1)
	p.mu.Unlock()

	p.submit(intent)
	return intent, nil
}

func (p *Posts) applyFlag(post *models.Post, kind IntentKind, value bool) *Intent {
	intent := newIntent(kind, post.DateKey, post.ID, value)
	setFlag(post, intent.Field, value)
	p.pending = append(p.pending, intent)
	return intent
}

// Delete removes the post locally, dropping its bucket when it empties,
// and nulls it remotely.
func (p *Posts) Delete(userID, date, postID string) (*Intent, error) {
	p.mu.Lock()
	if err := p.admit(); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	if _, err := p.authorize(userID, date, postID); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	intent := p.applyDelete(date, postID)
	p.wg.Add(1)
	p.mu.Unlock()

	p.submit(intent)
	return intent, nil
}

func (p *Posts) applyDelete(date, postID string) *Intent {
	intent := newIntent(IntentDelete, date, postID, false)
	intent.removed, intent.position, _ = p.buckets.Remove(date, postID)
	p.pending = append(p.pending, intent)
	return intent
}

// Retry re-submits a failed intent with its original target value.
func (p *Posts) Retry(userID, intentID string) (*Intent, error) {
	p.mu.Lock()
	if err := p.admit(); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	idx := -1
	for i, intent := range p.failed {
		if intent.ID == intentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		p.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", intentID, ErrIntentNotFound)
	}

	failed := p.failed[idx]
	post, err := p.authorize(userID, failed.DateKey, failed.PostID)
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}

	var intent *Intent
	if failed.Kind == IntentDelete {
		intent = p.applyDelete(failed.DateKey, failed.PostID)
	} else {
		intent = p.applyFlag(post, failed.Kind, failed.Value)
	}
	p.failed = append(p.failed[:idx], p.failed[idx+1:]...)
	p.wg.Add(1)
	p.mu.Unlock()

	p.submit(intent)
	return intent, nil
}

// Failed lists reverted intents that can still be retried, oldest first.
func (p *Posts) Failed() []*Intent {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*Intent, len(p.failed))
	copy(out, p.failed)
	return out
}

func (p *Posts) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Wait blocks until every submitted write has settled.
func (p *Posts) Wait() {
	p.wg.Wait()
}

// Drain stops accepting mutations and waits for the submitted ones to settle.
// Mutations after Drain fail with ErrSessionClosed.
func (p *Posts) Drain() {
	p.mu.Lock()
	p.closing = true
	p.mu.Unlock()

	p.wg.Wait()
}

// admit must be called with p.mu held. Every admitted intent is counted in
// p.wg under the same lock.
func (p *Posts) admit() error {
	if p.closing {
		return ErrSessionClosed
	}
	return nil
}

// authorize must be called with p.mu held.
func (p *Posts) authorize(userID, date, postID string) (*models.Post, error) {
	post, ok := p.buckets.Get(date, postID)
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", date, postID, ErrPostNotFound)
	}
	if post.UserID != userID {
		return nil, fmt.Errorf("%s/%s: %w", date, postID, ErrForbidden)
	}
	return post, nil
}

// submit runs the remote write. The caller has already counted it in p.wg.
func (p *Posts) submit(intent *Intent) {
	metrics.MutationIntents.WithLabelValues(string(intent.Kind), IntentPending.String()).Inc()

	go func() {
		defer p.wg.Done()

		var err error
		if intent.Kind == IntentDelete {
			err = p.writer.RemovePost(p.ctx, intent.DateKey, intent.PostID)
			if err == nil {
				p.removeImages(intent)
			}
		} else {
			err = p.writer.SetPostField(p.ctx, intent.DateKey, intent.PostID, intent.Field, intent.Value)
		}
		p.settle(intent, err)
	}()
}

// removeImages deletes the objects under the removed post's picture prefix.
// Failures are logged and leave the delete confirmed.
func (p *Posts) removeImages(intent *Intent) {
	if p.images == nil {
		return
	}

	p.mu.Lock()
	var picRef string
	if intent.removed != nil {
		picRef = intent.removed.PostPicRef
	}
	p.mu.Unlock()

	if picRef == "" {
		return
	}

	ref := models.ImageRef{Namespace: models.PostImageNamespace, RefID: picRef}
	names, err := p.images.ListObjects(p.ctx, ref.Prefix())
	if err != nil {
		p.logger.Warn("Failed to list images of deleted post", "post_id", intent.PostID, "ref", ref.String(), "error", err)
		return
	}

	for _, name := range names {
		if err := p.images.DeleteObject(p.ctx, name); err != nil {
			p.logger.Warn("Failed to delete image of deleted post", "post_id", intent.PostID, "object", name, "error", err)
		}
	}
}

func (p *Posts) settle(intent *Intent, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, pending := range p.pending {
		if pending == intent {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			break
		}
	}

	if err == nil {
		intent.finish(IntentConfirmed, nil)
		metrics.MutationIntents.WithLabelValues(string(intent.Kind), IntentConfirmed.String()).Inc()
		return
	}

	p.revert(intent)
	p.failed = append(p.failed, intent)
	intent.finish(IntentReverted, err)
	metrics.MutationIntents.WithLabelValues(string(intent.Kind), IntentReverted.String()).Inc()

	p.logger.Warn("Post mutation failed, local change reverted",
		"intent_id", intent.ID,
		"kind", intent.Kind,
		"date", intent.DateKey,
		"post_id", intent.PostID,
		"error", err,
	)
}

// revert undoes the local effect of intent unless a later change superseded it.
func (p *Posts) revert(intent *Intent) {
	if intent.Kind == IntentDelete {
		if intent.removed == nil {
			return
		}
		if _, exists := p.buckets.Get(intent.DateKey, intent.PostID); !exists {
			p.buckets.InsertAt(intent.removed, intent.position)
		}
		return
	}

	post, ok := p.buckets.Get(intent.DateKey, intent.PostID)
	if ok && flag(post, intent.Field) == intent.Value {
		setFlag(post, intent.Field, !intent.Value)
	}
}

func flag(post *models.Post, field string) bool {
	if field == FieldVolunteer {
		return post.IsVolunteer
	}
	return post.IsAvailable
}

func setFlag(post *models.Post, field string, value bool) {
	if field == FieldVolunteer {
		post.IsVolunteer = value
		return
	}
	post.IsAvailable = value
}
