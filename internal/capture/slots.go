package capture

import (
	"fmt"

	"github.com/a3tai/mcp-pdf-overlay/internal/document"
	pdferrors "github.com/a3tai/mcp-pdf-overlay/internal/pdf/errors"
)

// DefaultSectionLengths is the section layout offered before the operator
// edits it: a single five character section
var DefaultSectionLengths = []int{5}

// Slot is one requested section: a character range and its style
type Slot struct {
	CharacterStart int                   `json:"characterStart"`
	CharacterEnd   int                   `json:"characterEnd"`
	Style          document.SectionStyle `json:"style"`
}

// FixedSlot is the single-character slot used by boolean and underline fields
func FixedSlot(style document.SectionStyle) Slot {
	return Slot{CharacterStart: 0, CharacterEnd: 1, Style: style}
}

// SlotsFromLengths lays out contiguous slots of the given lengths starting at
// character 0. A zero length yields an empty slot that draws nothing.
func SlotsFromLengths(lengths []int, style document.SectionStyle) ([]Slot, error) {
	slots := make([]Slot, 0, len(lengths))
	start := 0
	for i, n := range lengths {
		if n < 0 {
			return nil, &pdferrors.OverlayError{
				Kind:    pdferrors.KindInvalidRange,
				Op:      "plan slots",
				Message: fmt.Sprintf("section %d has negative length %d", i, n),
			}
		}
		slots = append(slots, Slot{CharacterStart: start, CharacterEnd: start + n, Style: style})
		start += n
	}
	return slots, nil
}

// PlanSlots returns the slots a draw session for ft should consume. Boolean
// and underline fields ignore requested and get exactly one fixed slot.
func PlanSlots(ft *document.FieldType, requested []Slot, style document.SectionStyle) []Slot {
	if ft != nil && ft.Kind.SingleCharacter() {
		return []Slot{FixedSlot(style)}
	}
	return append([]Slot(nil), requested...)
}

// SlotQueue is a FIFO of pending slots
type SlotQueue struct {
	items []Slot
	head  int
}

// EnqueueAll appends slots in order
func (q *SlotQueue) EnqueueAll(slots ...Slot) {
	q.items = append(q.items, slots...)
}

// Dequeue removes and returns the front slot
func (q *SlotQueue) Dequeue() (Slot, bool) {
	if q.head >= len(q.items) {
		return Slot{}, false
	}
	s := q.items[q.head]
	q.items[q.head] = Slot{}
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return s, true
}

// Peek returns the front slot without removing it
func (q *SlotQueue) Peek() (Slot, bool) {
	if q.head >= len(q.items) {
		return Slot{}, false
	}
	return q.items[q.head], true
}

// Len returns the number of pending slots
func (q *SlotQueue) Len() int {
	return len(q.items) - q.head
}

// Clear drops every pending slot
func (q *SlotQueue) Clear() {
	q.items = nil
	q.head = 0
}

// Slots returns a copy of the pending slots, front first
func (q *SlotQueue) Slots() []Slot {
	return append([]Slot(nil), q.items[q.head:]...)
}
