package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Timestamp is a seconds-based instant as stored by the document backend.
type Timestamp struct {
	Seconds     int64 `json:"seconds" yaml:"seconds"`
	Nanoseconds int32 `json:"nanoseconds" yaml:"nanoseconds"`
}

// Valid reports whether the timestamp can be displayed and sorted.
func (t *Timestamp) Valid() bool {
	return t != nil && t.Seconds != 0
}

func (t *Timestamp) Time() time.Time {
	return time.Unix(t.Seconds, int64(t.Nanoseconds))
}

// After orders timestamps by seconds, then by the sub-second fraction.
func (t *Timestamp) After(other *Timestamp) bool {
	if t.Seconds != other.Seconds {
		return t.Seconds > other.Seconds
	}
	return t.Nanoseconds > other.Nanoseconds
}

type Post struct {
	ID             string     `json:"-"`
	DateKey        string     `json:"-"`
	UserID         string     `json:"userID"`
	Name           string     `json:"name"`
	Date           *Timestamp `json:"date,omitempty"`
	Caption        string     `json:"caption"`
	Category       string     `json:"category,omitempty"`
	IsAvailable    bool       `json:"isAvailable"`
	IsVolunteer    bool       `json:"isVolunteer"`
	UserProfileRef string     `json:"userProfileRef,omitempty"`
	PostPicRef     string     `json:"postPicRef,omitempty"`
}

// Clone returns a copy that shares nothing with p.
func (p *Post) Clone() *Post {
	c := *p
	if p.Date != nil {
		d := *p.Date
		c.Date = &d
	}
	return &c
}

type User struct {
	ID            string                     `json:"-"`
	UserID        string                     `json:"userID"`
	Name          string                     `json:"name" validate:"required"`
	ContactNumber string                     `json:"contactNumber,omitempty"`
	Email         string                     `json:"email,omitempty"`
	FacebookLink  string                     `json:"facebookLink,omitempty"`
	ImageURL      string                     `json:"imageUrl,omitempty"`
	JobSkillset   []string                   `json:"jobSkillset,omitempty"`
	Attendance    map[string]AttendanceEntry `json:"attendance,omitempty"`
}

type AttendanceEntry struct {
	CheckIn  Instant `json:"checkIn"`
	CheckOut Instant `json:"checkOut"`
}

// Instant accepts either an RFC 3339 string or epoch milliseconds.
// A null or empty value leaves it unset.
type Instant struct {
	time.Time
	Set bool
}

func (i *Instant) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*i = Instant{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*i = Instant{}
			return nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("неверный формат времени %q: %w", s, err)
		}
		*i = Instant{Time: t, Set: true}
		return nil
	}

	ms, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("неверный формат времени %s: %w", data, err)
	}
	*i = Instant{Time: time.UnixMilli(int64(ms)), Set: true}
	return nil
}

func (i Instant) MarshalJSON() ([]byte, error) {
	if !i.Set {
		return []byte("null"), nil
	}
	return json.Marshal(i.Time.Format(time.RFC3339Nano))
}

// Image namespaces in the blob store.
const (
	ProfileImageNamespace = "images"
	PostImageNamespace    = "posts"
)

type ImageRef struct {
	Namespace string
	RefID     string
}

// Prefix is the blob listing prefix for the reference.
func (r ImageRef) Prefix() string {
	return r.Namespace + "/" + r.RefID + "/"
}

func (r ImageRef) String() string {
	return r.Namespace + "/" + r.RefID
}

type ImageStatus int

const (
	ImageResolved ImageStatus = iota
	ImageNotFound
	ImageErrored
)

func (s ImageStatus) String() string {
	switch s {
	case ImageResolved:
		return "resolved"
	case ImageNotFound:
		return "not_found"
	default:
		return "errored"
	}
}

type ImageResult struct {
	URL    string
	Status ImageStatus
}

// Placeholder reports whether the view should show the generic glyph.
func (r ImageResult) Placeholder() bool {
	return r.Status != ImageResolved || r.URL == ""
}
