package feed

import "communityBoard/internal/models"

const (
	DefaultPageSize = 5
	DefaultPageStep = 5
)

// Window is the visible-count cursor over the sorted feed. It only grows.
type Window struct {
	count int
	step  int
}

func NewWindow(initial, step int) *Window {
	if initial <= 0 {
		initial = DefaultPageSize
	}
	if step <= 0 {
		step = DefaultPageStep
	}
	return &Window{count: initial, step: step}
}

func (w *Window) Count() int {
	return w.count
}

func (w *Window) Step() int {
	return w.step
}

func (w *Window) Advance() int {
	w.count += w.step
	return w.count
}

// Visible is the prefix of posts the cursor currently covers.
func (w *Window) Visible(seq []*models.Post) []*models.Post {
	if len(seq) <= w.count {
		return seq
	}
	return seq[:w.count]
}

func (w *Window) HasMore(total int) bool {
	return total > w.count
}
