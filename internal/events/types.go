package events

import (
	"errors"
	"time"
)

// ErrInvalidSlot indicates a slot whose end does not lie after its start.
var ErrInvalidSlot = errors.New("invalid slot: end must be after start")

// DisplayEvent is the locally normalized event representation consumed by
// the rendering collaborator. Values are never mutated in place; the
// store replaces or appends whole entries.
type DisplayEvent struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Slot is a user-selected start/end range on the grid, the trigger for
// event creation.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate reports ErrInvalidSlot when the slot's end is not after its
// start.
func (s Slot) Validate() error {
	if !s.End.After(s.Start) {
		return ErrInvalidSlot
	}
	return nil
}

// Duration returns the length of the slot.
func (s Slot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}
