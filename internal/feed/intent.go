package feed

import (
	"context"
	"sync"
	"time"

	"communityBoard/internal/models"
	"github.com/google/uuid"
)

type IntentKind string

const (
	IntentToggleAvailability IntentKind = "toggle_availability"
	IntentToggleVolunteer    IntentKind = "toggle_volunteer"
	IntentDelete             IntentKind = "delete"
)

// Post document fields written by the toggles.
const (
	FieldAvailability = "isAvailable"
	FieldVolunteer    = "isVolunteer"
)

func (k IntentKind) field() string {
	switch k {
	case IntentToggleAvailability:
		return FieldAvailability
	case IntentToggleVolunteer:
		return FieldVolunteer
	default:
		return ""
	}
}

type IntentState int

const (
	IntentPending IntentState = iota
	IntentConfirmed
	IntentReverted
)

func (s IntentState) String() string {
	switch s {
	case IntentPending:
		return "pending"
	case IntentConfirmed:
		return "confirmed"
	default:
		return "reverted"
	}
}

// Intent is one optimistic mutation awaiting confirmation from the document store.
type Intent struct {
	ID        string
	Kind      IntentKind
	DateKey   string
	PostID    string
	Field     string
	Value     bool
	CreatedAt time.Time

	removed  *models.Post
	position models.Position

	mu    sync.Mutex
	state IntentState
	err   error
	done  chan struct{}
}

func newIntent(kind IntentKind, date, postID string, value bool) *Intent {
	return &Intent{
		ID:        uuid.NewString(),
		Kind:      kind,
		DateKey:   date,
		PostID:    postID,
		Field:     kind.field(),
		Value:     value,
		CreatedAt: time.Now(),
		done:      make(chan struct{}),
	}
}

// Done is closed once the remote write has settled.
func (i *Intent) Done() <-chan struct{} {
	return i.done
}

func (i *Intent) State() IntentState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Err is the remote failure of a reverted intent.
func (i *Intent) Err() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.err
}

// Wait blocks until the intent settles or ctx ends.
func (i *Intent) Wait(ctx context.Context) error {
	select {
	case <-i.done:
		return i.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (i *Intent) finish(state IntentState, err error) {
	i.mu.Lock()
	i.state = state
	i.err = err
	i.mu.Unlock()
	close(i.done)
}
