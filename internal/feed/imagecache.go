package feed

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"communityBoard/internal/metrics"
	"communityBoard/internal/models"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultImageCacheSize = 200
	maxParallelLookups    = 8
	lookupTimeout         = 30 * time.Second
)

// BlobStore is the part of the blob storage the image cache reads from.
type BlobStore interface {
	ListObjects(ctx context.Context, prefix string) ([]string, error)
	GetObjectURL(ctx context.Context, name string) (string, error)
}

// ImageCache resolves image references to retrievable URLs for one view.
// Results, including failures, are kept until evicted and never retried automatically.
type ImageCache struct {
	view   string
	blobs  BlobStore
	cache  *lru.Cache[models.ImageRef, models.ImageResult]
	group  singleflight.Group
	logger *slog.Logger
}

func NewImageCache(view string, blobs BlobStore, size int, logger *slog.Logger) *ImageCache {
	if size <= 0 {
		size = DefaultImageCacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	evictions := metrics.ImageCacheEvictions.WithLabelValues(view)
	cache, _ := lru.NewWithEvict(size, func(models.ImageRef, models.ImageResult) {
		evictions.Inc()
	})

	return &ImageCache{
		view:   view,
		blobs:  blobs,
		cache:  cache,
		logger: logger.With("view", view),
	}
}

// Resolve returns the cached result for ref or looks it up once.
// Concurrent calls for the same ref share a single lookup. A caller whose
// ctx ends stops waiting and gets ImageErrored; the shared lookup goes on.
func (c *ImageCache) Resolve(ctx context.Context, ref models.ImageRef) models.ImageResult {
	if ref.RefID == "" {
		return models.ImageResult{Status: models.ImageNotFound}
	}

	if result, ok := c.cache.Get(ref); ok {
		metrics.ImageCacheHits.WithLabelValues(c.view).Inc()
		return result
	}

	ch := c.group.DoChan(ref.String(), func() (any, error) {
		if result, ok := c.cache.Get(ref); ok {
			return result, nil
		}

		// shared by every waiter, so it must outlive whichever caller started it
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()

		result := c.lookup(lctx, ref)
		c.cache.Add(ref, result)
		return result, nil
	})

	select {
	case res := <-ch:
		return res.Val.(models.ImageResult)
	case <-ctx.Done():
		return models.ImageResult{Status: models.ImageErrored}
	}
}

// lookup lists the reference prefix and signs the lexicographically smallest object.
func (c *ImageCache) lookup(ctx context.Context, ref models.ImageRef) models.ImageResult {
	lookups := metrics.ImageLookups

	names, err := c.blobs.ListObjects(ctx, ref.Prefix())
	if err != nil {
		c.logger.Warn("Failed to list images", "ref", ref.String(), "error", err)
		lookups.WithLabelValues(c.view, models.ImageErrored.String()).Inc()
		return models.ImageResult{Status: models.ImageErrored}
	}

	if len(names) == 0 {
		lookups.WithLabelValues(c.view, models.ImageNotFound.String()).Inc()
		return models.ImageResult{Status: models.ImageNotFound}
	}

	url, err := c.blobs.GetObjectURL(ctx, slices.Min(names))
	if err != nil {
		c.logger.Warn("Failed to get image URL", "ref", ref.String(), "error", err)
		lookups.WithLabelValues(c.view, models.ImageErrored.String()).Inc()
		return models.ImageResult{Status: models.ImageErrored}
	}

	lookups.WithLabelValues(c.view, models.ImageResolved.String()).Inc()
	return models.ImageResult{URL: url, Status: models.ImageResolved}
}

// ResolveAll resolves distinct refs in parallel. Completion order is not defined.
func (c *ImageCache) ResolveAll(ctx context.Context, refs []models.ImageRef) map[models.ImageRef]models.ImageResult {
	results := make(map[models.ImageRef]models.ImageResult, len(refs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLookups)

	seen := make(map[models.ImageRef]struct{}, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}

		g.Go(func() error {
			result := c.Resolve(gctx, ref)
			mu.Lock()
			results[ref] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// PostImages holds the author and post images of one feed entry.
type PostImages struct {
	Profile models.ImageResult
	Post    models.ImageResult
}

func profileRef(post *models.Post) models.ImageRef {
	return models.ImageRef{Namespace: models.ProfileImageNamespace, RefID: post.UserProfileRef}
}

func postRef(post *models.Post) models.ImageRef {
	return models.ImageRef{Namespace: models.PostImageNamespace, RefID: post.PostPicRef}
}

// ResolvePosts resolves images for exactly the given posts.
// The result is index-aligned with posts.
func (c *ImageCache) ResolvePosts(ctx context.Context, posts []*models.Post) []PostImages {
	refs := make([]models.ImageRef, 0, 2*len(posts))
	for _, post := range posts {
		refs = append(refs, profileRef(post), postRef(post))
	}

	resolved := c.ResolveAll(ctx, refs)

	out := make([]PostImages, len(posts))
	for i, post := range posts {
		out[i] = PostImages{
			Profile: resultFor(resolved, profileRef(post)),
			Post:    resultFor(resolved, postRef(post)),
		}
	}
	return out
}

func resultFor(resolved map[models.ImageRef]models.ImageResult, ref models.ImageRef) models.ImageResult {
	if result, ok := resolved[ref]; ok {
		return result
	}
	return models.ImageResult{Status: models.ImageNotFound}
}

func (c *ImageCache) Peek(ref models.ImageRef) (models.ImageResult, bool) {
	return c.cache.Peek(ref)
}

func (c *ImageCache) Len() int {
	return c.cache.Len()
}
