package feed

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"communityBoard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBlobs serves object listings from memory and counts requests.
type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]string
	listErr map[string]error
	urlErr  error
	lists   map[string]int
	gate    chan struct{}
	started chan string
}

func newFakeBlobs(objects map[string][]string) *fakeBlobs {
	return &fakeBlobs{objects: objects, listErr: map[string]error{}, lists: map[string]int{}}
}

func (b *fakeBlobs) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	if b.started != nil {
		b.started <- prefix
	}
	if b.gate != nil {
		<-b.gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.lists[prefix]++
	if err := b.listErr[prefix]; err != nil {
		return nil, err
	}
	return b.objects[prefix], nil
}

func (b *fakeBlobs) GetObjectURL(ctx context.Context, name string) (string, error) {
	if b.urlErr != nil {
		return "", b.urlErr
	}
	return "https://blobs.test/" + name, nil
}

func (b *fakeBlobs) listCount(prefix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lists[prefix]
}

func (b *fakeBlobs) totalLists() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, n := range b.lists {
		total += n
	}
	return total
}

func TestImageCache_Resolve(t *testing.T) {
	ref := models.ImageRef{Namespace: models.PostImageNamespace, RefID: "p1"}
	ctx := context.Background()

	t.Run("Два разрешения дают один запрос", func(t *testing.T) {
		blobs := newFakeBlobs(map[string][]string{"posts/p1/": {"posts/p1/a.jpg"}})
		cache := NewImageCache(FeedView, blobs, 10, nil)

		first := cache.Resolve(ctx, ref)
		second := cache.Resolve(ctx, ref)

		assert.Equal(t, first, second)
		assert.Equal(t, "https://blobs.test/posts/p1/a.jpg", first.URL)
		assert.Equal(t, 1, blobs.listCount("posts/p1/"))
	})

	t.Run("Выбирается наименьшее имя объекта", func(t *testing.T) {
		blobs := newFakeBlobs(map[string][]string{
			"posts/p1/": {"posts/p1/zeta.png", "posts/p1/alpha.png", "posts/p1/mid.png"},
		})
		cache := NewImageCache(FeedView, blobs, 10, nil)

		result := cache.Resolve(ctx, ref)
		assert.Equal(t, models.ImageResolved, result.Status)
		assert.True(t, strings.HasSuffix(result.URL, "alpha.png"))
	})

	t.Run("Пустой список помечается как отсутствующий", func(t *testing.T) {
		blobs := newFakeBlobs(map[string][]string{})
		cache := NewImageCache(FeedView, blobs, 10, nil)

		result := cache.Resolve(ctx, ref)
		assert.Equal(t, models.ImageNotFound, result.Status)
		assert.True(t, result.Placeholder())
	})

	t.Run("Ошибка не повторяется автоматически", func(t *testing.T) {
		blobs := newFakeBlobs(map[string][]string{})
		blobs.listErr["posts/p1/"] = errors.New("network down")
		cache := NewImageCache(FeedView, blobs, 10, nil)

		assert.Equal(t, models.ImageErrored, cache.Resolve(ctx, ref).Status)
		assert.Equal(t, models.ImageErrored, cache.Resolve(ctx, ref).Status)
		assert.Equal(t, 1, blobs.listCount("posts/p1/"))
	})

	t.Run("Ошибка получения ссылки", func(t *testing.T) {
		blobs := newFakeBlobs(map[string][]string{"posts/p1/": {"posts/p1/a.jpg"}})
		blobs.urlErr = errors.New("presign failed")
		cache := NewImageCache(FeedView, blobs, 10, nil)

		assert.Equal(t, models.ImageErrored, cache.Resolve(ctx, ref).Status)
	})

	t.Run("Пустая ссылка не запрашивается", func(t *testing.T) {
		blobs := newFakeBlobs(map[string][]string{})
		cache := NewImageCache(FeedView, blobs, 10, nil)

		result := cache.Resolve(ctx, models.ImageRef{Namespace: models.PostImageNamespace})
		assert.Equal(t, models.ImageNotFound, result.Status)
		assert.Equal(t, 0, blobs.totalLists())
	})

	t.Run("Отмена вызывающего не портит кэш", func(t *testing.T) {
		blobs := newFakeBlobs(map[string][]string{"posts/p1/": {"posts/p1/a.jpg"}})
		cache := NewImageCache(FeedView, blobs, 10, nil)

		canceled, cancel := context.WithCancel(ctx)
		cancel()
		cache.Resolve(canceled, ref)

		result := cache.Resolve(ctx, ref)
		assert.Equal(t, models.ImageResolved, result.Status)
		assert.Equal(t, 1, blobs.listCount("posts/p1/"))
	})
}

func TestImageCache_CanceledLeaderDoesNotFailFollowers(t *testing.T) {
	ref := models.ImageRef{Namespace: models.PostImageNamespace, RefID: "p1"}
	blobs := newFakeBlobs(map[string][]string{"posts/p1/": {"posts/p1/a.jpg"}})
	blobs.gate = make(chan struct{})
	blobs.started = make(chan string, 1)
	cache := NewImageCache(FeedView, blobs, 10, nil)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderDone := make(chan models.ImageResult, 1)
	go func() {
		leaderDone <- cache.Resolve(leaderCtx, ref)
	}()

	require.Equal(t, "posts/p1/", <-blobs.started)

	followerDone := make(chan models.ImageResult, 1)
	go func() {
		followerDone <- cache.Resolve(context.Background(), ref)
	}()

	cancelLeader()
	assert.Equal(t, models.ImageErrored, (<-leaderDone).Status)

	close(blobs.gate)

	follower := <-followerDone
	assert.Equal(t, models.ImageResolved, follower.Status)
	assert.Equal(t, "https://blobs.test/posts/p1/a.jpg", follower.URL)
	assert.Equal(t, 1, blobs.listCount("posts/p1/"))

	cached, ok := cache.Peek(ref)
	require.True(t, ok)
	assert.Equal(t, models.ImageResolved, cached.Status)
}

func TestImageCache_ConcurrentResolveSharesDispatch(t *testing.T) {
	ref := models.ImageRef{Namespace: models.ProfileImageNamespace, RefID: "u1"}
	blobs := newFakeBlobs(map[string][]string{"images/u1/": {"images/u1/me.jpg"}})
	blobs.gate = make(chan struct{})
	cache := NewImageCache(FeedView, blobs, 10, nil)

	var wg sync.WaitGroup
	results := make([]models.ImageResult, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = cache.Resolve(context.Background(), ref)
		}()
	}

	close(blobs.gate)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, models.ImageResolved, r.Status)
	}
	assert.Equal(t, 1, blobs.listCount("images/u1/"))
	assert.Equal(t, 1, cache.Len())
}

func TestImageCache_Bounded(t *testing.T) {
	objects := map[string][]string{}
	refs := make([]models.ImageRef, 0, 6)
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		ref := models.ImageRef{Namespace: models.PostImageNamespace, RefID: id}
		refs = append(refs, ref)
		objects[ref.Prefix()] = []string{ref.Prefix() + "x.jpg"}
	}
	blobs := newFakeBlobs(objects)
	cache := NewImageCache(FeedView, blobs, 3, nil)

	for _, ref := range refs {
		cache.Resolve(context.Background(), ref)
		assert.LessOrEqual(t, cache.Len(), 3)
	}

	_, ok := cache.Peek(refs[0])
	assert.False(t, ok)
	_, ok = cache.Peek(refs[5])
	assert.True(t, ok)
}

func TestImageCache_ResolvePosts(t *testing.T) {
	blobs := newFakeBlobs(map[string][]string{
		"images/u1/": {"images/u1/face.jpg"},
		"posts/p1/":  {"posts/p1/soup.jpg"},
	})
	cache := NewImageCache(FeedView, blobs, 10, nil)

	posts := []*models.Post{
		{ID: "p1", UserID: "u1", UserProfileRef: "u1", PostPicRef: "p1"},
		{ID: "p2", UserID: "u1", UserProfileRef: "u1"},
	}

	images := cache.ResolvePosts(context.Background(), posts)
	require.Len(t, images, 2)

	assert.Equal(t, "https://blobs.test/images/u1/face.jpg", images[0].Profile.URL)
	assert.Equal(t, "https://blobs.test/posts/p1/soup.jpg", images[0].Post.URL)
	assert.Equal(t, images[0].Profile, images[1].Profile)
	assert.Equal(t, models.ImageNotFound, images[1].Post.Status)

	t.Run("Общая ссылка автора запрашивается один раз", func(t *testing.T) {
		assert.Equal(t, 1, blobs.listCount("images/u1/"))
		assert.Equal(t, 2, blobs.totalLists())
	})
}
