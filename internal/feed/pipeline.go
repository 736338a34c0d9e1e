package feed

import (
	"slices"

	"communityBoard/internal/models"
)

// Flatten lists every post of every bucket, buckets in document order.
// Each post already carries its DateKey and ID.
func Flatten(b *models.PostBuckets) []*models.Post {
	if b == nil {
		return nil
	}

	posts := make([]*models.Post, 0, b.Len())
	for _, date := range b.Dates() {
		for _, post := range b.Bucket(date) {
			posts = append(posts, post)
		}
	}
	return posts
}

// SortPosts drops posts without a usable timestamp and orders the rest
// newest first. Equal timestamps keep their flattened order.
func SortPosts(posts []*models.Post) []*models.Post {
	sorted := make([]*models.Post, 0, len(posts))
	for _, post := range posts {
		if post.Date.Valid() {
			sorted = append(sorted, post)
		}
	}

	slices.SortStableFunc(sorted, func(a, b *models.Post) int {
		switch {
		case a.Date.After(b.Date):
			return -1
		case b.Date.After(a.Date):
			return 1
		default:
			return 0
		}
	})
	return sorted
}

func FilterByAuthor(posts []*models.Post, userID string) []*models.Post {
	var out []*models.Post
	for _, post := range posts {
		if post.UserID == userID {
			out = append(out, post)
		}
	}
	return out
}
