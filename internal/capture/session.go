// Package capture tracks a freehand rectangle from pointer-down to accept
// and turns it into a PDF-space placement for the armed field type.
package capture

import (
	"errors"
	"fmt"
	"log"

	"github.com/a3tai/mcp-pdf-overlay/internal/document"
	"github.com/a3tai/mcp-pdf-overlay/internal/geometry"
)

// State is the phase of a drawing session
type State int

const (
	Idle State = iota
	ArmedForDraw
	Dragging
	Finalizing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ArmedForDraw:
		return "armed"
	case Dragging:
		return "dragging"
	case Finalizing:
		return "finalizing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// DefaultMinExtent is the smallest accepted gesture width or height, in pixels
const DefaultMinExtent = 1.0

var (
	// ErrInvalidTransition is returned for an event the current state ignores
	ErrInvalidTransition = errors.New("capture: invalid transition")
	// ErrNoSlots is returned when arming with nothing to draw
	ErrNoSlots = errors.New("capture: no section slots to draw")
	// ErrNoFieldType is returned when arming without a field type
	ErrNoFieldType = errors.New("capture: no field type selected")
)

// PageContext describes the page a rectangle was drawn on
type PageContext struct {
	PageNumber int           `json:"pageNumber"`
	Canvas     geometry.Size `json:"canvas"`
	Page       geometry.Size `json:"page"`
}

// Placement is an accepted rectangle ready for field assembly
type Placement struct {
	FieldType *document.FieldType  `json:"fieldType"`
	Box       document.BoundingBox `json:"boundingBox"`
	Slot      Slot                 `json:"slot"`
	Page      PageContext          `json:"page"`
	Rect      geometry.CanvasRect  `json:"rect"`
}

// Session is one operator's drawing state. It is not safe for concurrent use;
// events arrive one at a time from a single pointer.
type Session struct {
	state     State
	fieldType *document.FieldType
	queue     SlotQueue
	start     geometry.Point
	end       geometry.Point
	minExtent float64
	debug     bool
}

// Option configures a Session
type Option func(*Session)

// WithMinExtent sets the discard threshold for tiny gestures
func WithMinExtent(px float64) Option {
	return func(s *Session) {
		if px >= 0 {
			s.minExtent = px
		}
	}
}

// WithDebug logs discarded gestures
func WithDebug(debug bool) Option {
	return func(s *Session) { s.debug = debug }
}

// NewSession returns an idle session
func NewSession(opts ...Option) *Session {
	s := &Session{minExtent: DefaultMinExtent}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current phase
func (s *Session) State() State { return s.state }

// FieldType returns the armed field type, or nil when idle
func (s *Session) FieldType() *document.FieldType { return s.fieldType }

// Pending returns the number of slots still to be drawn
func (s *Session) Pending() int { return s.queue.Len() }

// PendingSlots returns a copy of the remaining slots, next first
func (s *Session) PendingSlots() []Slot { return s.queue.Slots() }

// Arm starts a session for ft with the given slots, replacing any armed but
// not yet dragging session
func (s *Session) Arm(ft *document.FieldType, slots []Slot) error {
	if s.state == Dragging || s.state == Finalizing {
		return fmt.Errorf("%w: arm while %s", ErrInvalidTransition, s.state)
	}
	if ft == nil {
		return ErrNoFieldType
	}
	if len(slots) == 0 {
		return ErrNoSlots
	}
	s.queue.Clear()
	s.queue.EnqueueAll(slots...)
	s.fieldType = ft
	s.state = ArmedForDraw
	return nil
}

// PointerDown records the drag start
func (s *Session) PointerDown(p geometry.Point) error {
	if s.state != ArmedForDraw {
		return fmt.Errorf("%w: pointer down while %s", ErrInvalidTransition, s.state)
	}
	s.start, s.end = p, p
	s.state = Dragging
	return nil
}

// PointerMove updates the drag end
func (s *Session) PointerMove(p geometry.Point) error {
	if s.state != Dragging {
		return fmt.Errorf("%w: pointer move while %s", ErrInvalidTransition, s.state)
	}
	s.end = p
	return nil
}

// PointerUp completes the gesture; the rectangle awaits accept or discard
func (s *Session) PointerUp() error {
	if s.state != Dragging {
		return fmt.Errorf("%w: pointer up while %s", ErrInvalidTransition, s.state)
	}
	s.state = Finalizing
	return nil
}

// LiveRect returns the signed in-flight rectangle while dragging or finalizing
func (s *Session) LiveRect() (geometry.CanvasRect, bool) {
	if s.state != Dragging && s.state != Finalizing {
		return geometry.CanvasRect{}, false
	}
	return geometry.LiveRect(s.start, s.end), true
}

// Accept converts the finished rectangle for page and consumes one slot.
// A gesture below the minimum extent is dropped without consuming a slot and
// reported as not accepted. A geometry error leaves the slot queued and the
// session armed.
func (s *Session) Accept(page PageContext) (Placement, bool, error) {
	if s.state != Finalizing {
		return Placement{}, false, fmt.Errorf("%w: accept while %s", ErrInvalidTransition, s.state)
	}

	rect := geometry.Normalize(s.start, s.end)
	if rect.TooSmall(s.minExtent) {
		if s.debug {
			log.Printf("capture: discarded %.1fx%.1f gesture below %.1fpx", rect.Width, rect.Height, s.minExtent)
		}
		s.state = ArmedForDraw
		return Placement{}, false, nil
	}

	box, err := geometry.ToPdfSpace(rect, page.Canvas, page.Page)
	if err != nil {
		s.state = ArmedForDraw
		return Placement{}, false, err
	}

	slot, _ := s.queue.Dequeue()
	placement := Placement{
		FieldType: s.fieldType,
		Box:       box,
		Slot:      slot,
		Page:      page,
		Rect:      rect,
	}

	if s.queue.Len() == 0 {
		s.reset()
	} else {
		s.state = ArmedForDraw
	}
	return placement, true, nil
}

// Discard drops the finished rectangle without consuming a slot
func (s *Session) Discard() error {
	if s.state != Finalizing {
		return fmt.Errorf("%w: discard while %s", ErrInvalidTransition, s.state)
	}
	s.state = ArmedForDraw
	return nil
}

// Cancel empties the queue and returns to Idle from any state
func (s *Session) Cancel() {
	s.reset()
}

func (s *Session) reset() {
	s.queue.Clear()
	s.fieldType = nil
	s.start, s.end = geometry.Point{}, geometry.Point{}
	s.state = Idle
}
