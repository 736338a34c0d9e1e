// Package seed loads YAML fixtures into the document store and the blob store.
package seed

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"communityBoard/internal/models"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Fixture struct {
	Users  []UserFixture  `yaml:"users" validate:"dive"`
	Posts  []PostFixture  `yaml:"posts" validate:"dive"`
	Images []ImageFixture `yaml:"images" validate:"dive"`
}

type UserFixture struct {
	ID            string                       `yaml:"id" validate:"required,excludesall=./"`
	Name          string                       `yaml:"name" validate:"required"`
	ContactNumber string                       `yaml:"contactNumber"`
	Email         string                       `yaml:"email" validate:"omitempty,email"`
	FacebookLink  string                       `yaml:"facebookLink" validate:"omitempty,url"`
	JobSkillset   []string                     `yaml:"jobSkillset"`
	Attendance    map[string]AttendanceFixture `yaml:"attendance"`
}

type AttendanceFixture struct {
	CheckIn  time.Time `yaml:"checkIn"`
	CheckOut time.Time `yaml:"checkOut"`
}

type PostFixture struct {
	ID             string    `yaml:"id" validate:"required,excludesall=./"`
	Date           string    `yaml:"date" validate:"required,datetime=2006-01-02"`
	UserID         string    `yaml:"userId" validate:"required"`
	Name           string    `yaml:"name"`
	Caption        string    `yaml:"caption"`
	Category       string    `yaml:"category"`
	PostedAt       time.Time `yaml:"postedAt"`
	IsAvailable    bool      `yaml:"isAvailable"`
	IsVolunteer    bool      `yaml:"isVolunteer"`
	UserProfileRef string    `yaml:"userProfileRef"`
	PostPicRef     string    `yaml:"postPicRef"`
}

type ImageFixture struct {
	Namespace string `yaml:"namespace" validate:"required,oneof=images posts"`
	RefID     string `yaml:"refId" validate:"required,excludesall=/"`
	File      string `yaml:"file" validate:"required"`
}

var ErrInvalidFixture = errors.New("неверный файл данных")

func ReadFixture(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла данных: %w", err)
	}
	defer f.Close()

	return LoadFixture(f)
}

// LoadFixture decodes and validates a fixture. Unknown keys are rejected.
func LoadFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fixture Fixture
	if err := dec.Decode(&fixture); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}

	if err := fixture.Validate(validator.New()); err != nil {
		return nil, err
	}

	return &fixture, nil
}

// Validate checks field constraints and that every post has a known author
// and a unique date/id pair.
func (f *Fixture) Validate(v *validator.Validate) error {
	if err := v.Struct(f); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}

	users := make(map[string]bool, len(f.Users))
	for _, u := range f.Users {
		if users[u.ID] {
			return fmt.Errorf("%w: пользователь %s указан дважды", ErrInvalidFixture, u.ID)
		}
		users[u.ID] = true
	}

	posts := make(map[string]bool, len(f.Posts))
	for _, p := range f.Posts {
		if !users[p.UserID] {
			return fmt.Errorf("%w: пост %s/%s ссылается на неизвестного пользователя %s", ErrInvalidFixture, p.Date, p.ID, p.UserID)
		}
		key := p.Date + "/" + p.ID
		if posts[key] {
			return fmt.Errorf("%w: пост %s указан дважды", ErrInvalidFixture, key)
		}
		posts[key] = true
	}

	return nil
}

func (u UserFixture) document() models.User {
	user := models.User{
		UserID:        u.ID,
		Name:          u.Name,
		ContactNumber: u.ContactNumber,
		Email:         u.Email,
		FacebookLink:  u.FacebookLink,
		JobSkillset:   u.JobSkillset,
	}

	if len(u.Attendance) > 0 {
		user.Attendance = make(map[string]models.AttendanceEntry, len(u.Attendance))
		for day, entry := range u.Attendance {
			user.Attendance[day] = models.AttendanceEntry{
				CheckIn:  instant(entry.CheckIn),
				CheckOut: instant(entry.CheckOut),
			}
		}
	}

	return user
}

func (p PostFixture) post() *models.Post {
	post := &models.Post{
		ID:             p.ID,
		DateKey:        p.Date,
		UserID:         p.UserID,
		Name:           p.Name,
		Caption:        p.Caption,
		Category:       p.Category,
		IsAvailable:    p.IsAvailable,
		IsVolunteer:    p.IsVolunteer,
		UserProfileRef: p.UserProfileRef,
		PostPicRef:     p.PostPicRef,
	}
	if !p.PostedAt.IsZero() {
		post.Date = &models.Timestamp{
			Seconds:     p.PostedAt.Unix(),
			Nanoseconds: int32(p.PostedAt.Nanosecond()),
		}
	}
	return post
}

func instant(t time.Time) models.Instant {
	if t.IsZero() {
		return models.Instant{}
	}
	return models.Instant{Time: t, Set: true}
}
