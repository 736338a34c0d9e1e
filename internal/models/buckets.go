package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// PostBuckets is the posts document: date key -> post id -> post.
// Both levels keep insertion order.
type PostBuckets struct {
	dates   []string
	buckets map[string]*postBucket
}

type postBucket struct {
	ids   []string
	posts map[string]*Post
}

// Position locates a post inside PostBuckets.
type Position struct {
	Date int
	Post int
}

func NewPostBuckets() *PostBuckets {
	return &PostBuckets{buckets: make(map[string]*postBucket)}
}

func (b *PostBuckets) Dates() []string {
	out := make([]string, len(b.dates))
	copy(out, b.dates)
	return out
}

// Bucket returns the posts of one date in order.
func (b *PostBuckets) Bucket(date string) []*Post {
	bucket, ok := b.buckets[date]
	if !ok {
		return nil
	}
	out := make([]*Post, 0, len(bucket.ids))
	for _, id := range bucket.ids {
		out = append(out, bucket.posts[id])
	}
	return out
}

func (b *PostBuckets) BucketLen(date string) int {
	bucket, ok := b.buckets[date]
	if !ok {
		return 0
	}
	return len(bucket.ids)
}

func (b *PostBuckets) Get(date, postID string) (*Post, bool) {
	bucket, ok := b.buckets[date]
	if !ok {
		return nil, false
	}
	post, ok := bucket.posts[postID]
	return post, ok
}

// Put stores the post under post.DateKey/post.ID, replacing an existing one in place.
func (b *PostBuckets) Put(post *Post) {
	bucket, ok := b.buckets[post.DateKey]
	if !ok {
		bucket = &postBucket{posts: make(map[string]*Post)}
		b.buckets[post.DateKey] = bucket
		b.dates = append(b.dates, post.DateKey)
	}
	if _, exists := bucket.posts[post.ID]; !exists {
		bucket.ids = append(bucket.ids, post.ID)
	}
	bucket.posts[post.ID] = post
}

// InsertAt puts the post back at a position previously returned by Remove.
func (b *PostBuckets) InsertAt(post *Post, pos Position) {
	bucket, ok := b.buckets[post.DateKey]
	if !ok {
		bucket = &postBucket{posts: make(map[string]*Post)}
		b.buckets[post.DateKey] = bucket
		b.dates = insertString(b.dates, pos.Date, post.DateKey)
	}
	if _, exists := bucket.posts[post.ID]; !exists {
		bucket.ids = insertString(bucket.ids, pos.Post, post.ID)
	}
	bucket.posts[post.ID] = post
}

// Remove deletes the post and drops its bucket once empty.
func (b *PostBuckets) Remove(date, postID string) (*Post, Position, bool) {
	bucket, ok := b.buckets[date]
	if !ok {
		return nil, Position{}, false
	}
	post, ok := bucket.posts[postID]
	if !ok {
		return nil, Position{}, false
	}

	pos := Position{Date: indexOf(b.dates, date), Post: indexOf(bucket.ids, postID)}
	delete(bucket.posts, postID)
	bucket.ids = append(bucket.ids[:pos.Post], bucket.ids[pos.Post+1:]...)

	if len(bucket.ids) == 0 {
		delete(b.buckets, date)
		b.dates = append(b.dates[:pos.Date], b.dates[pos.Date+1:]...)
	}

	return post, pos, true
}

// Len is the total number of posts across all buckets.
func (b *PostBuckets) Len() int {
	n := 0
	for _, bucket := range b.buckets {
		n += len(bucket.ids)
	}
	return n
}

// Clone deep-copies the structure and its posts.
func (b *PostBuckets) Clone() *PostBuckets {
	c := NewPostBuckets()
	for _, date := range b.dates {
		for _, post := range b.Bucket(date) {
			c.Put(post.Clone())
		}
	}
	return c
}

func (b *PostBuckets) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, date := range b.dates {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(date)
		buf.Write(key)
		buf.WriteString(":{")
		for j, post := range b.Bucket(date) {
			if j > 0 {
				buf.WriteByte(',')
			}
			id, _ := json.Marshal(post.ID)
			buf.Write(id)
			buf.WriteByte(':')
			data, err := json.Marshal(post)
			if err != nil {
				return nil, err
			}
			buf.Write(data)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ParseBuckets decodes the raw posts document keeping the document key order.
// Null and malformed posts are skipped, a malformed date leaves Post.Date nil.
func ParseBuckets(data []byte) (*PostBuckets, error) {
	buckets := NewPostBuckets()

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return buckets, nil
	}

	if data[0] != '{' {
		return nil, fmt.Errorf("неверный формат документа постов: %w", errNotObject)
	}

	err := decodeObject(data, func(date string, raw json.RawMessage) error {
		return decodeObject(raw, func(postID string, rawPost json.RawMessage) error {
			post, ok := decodePost(rawPost)
			if !ok {
				return nil
			}
			post.ID = postID
			post.DateKey = date
			buckets.Put(post)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("неверный формат документа постов: %w", err)
	}

	return buckets, nil
}

var errNotObject = errors.New("ожидался объект")

// decodeObject walks the members of a JSON object in document order.
// Anything that is not an object is skipped.
func decodeObject(data []byte, fn func(key string, value json.RawMessage) error) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return errNotObject
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return err
		}

		if err := fn(key, value); err != nil {
			return err
		}
	}

	_, err := dec.Token()
	return err
}

type postDocument struct {
	UserID         string          `json:"userID"`
	Name           string          `json:"name"`
	Date           json.RawMessage `json:"date"`
	Caption        string          `json:"caption"`
	Category       string          `json:"category"`
	IsAvailable    bool            `json:"isAvailable"`
	IsVolunteer    bool            `json:"isVolunteer"`
	UserProfileRef string          `json:"userProfileRef"`
	PostPicRef     string          `json:"postPicRef"`
}

func decodePost(raw json.RawMessage) (*Post, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}

	var doc postDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false
	}

	return &Post{
		UserID:         doc.UserID,
		Name:           doc.Name,
		Date:           decodeTimestamp(doc.Date),
		Caption:        doc.Caption,
		Category:       doc.Category,
		IsAvailable:    doc.IsAvailable,
		IsVolunteer:    doc.IsVolunteer,
		UserProfileRef: doc.UserProfileRef,
		PostPicRef:     doc.PostPicRef,
	}, true
}

func decodeTimestamp(raw json.RawMessage) *Timestamp {
	if len(raw) == 0 {
		return nil
	}
	var ts Timestamp
	if err := json.Unmarshal(raw, &ts); err != nil {
		return nil
	}
	if !ts.Valid() {
		return nil
	}
	return &ts
}

func indexOf(values []string, v string) int {
	for i, s := range values {
		if s == v {
			return i
		}
	}
	return -1
}

func insertString(values []string, i int, v string) []string {
	if i < 0 || i > len(values) {
		i = len(values)
	}
	values = append(values, "")
	copy(values[i+1:], values[i:])
	values[i] = v
	return values
}
