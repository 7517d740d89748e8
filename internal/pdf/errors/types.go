package errors

import (
	"fmt"
)

// OverlayError represents a failure in the overlay pipeline with enough context
// for the caller to decide whether to surface it or drop the offending section
type OverlayError struct {
	Kind    ErrorKind `json:"kind"`
	Op      string    `json:"op"`
	Message string    `json:"message"`
	Page    int       `json:"page_number,omitempty"`
	Field   int       `json:"field_type_id,omitempty"`
	Err     error     `json:"-"`
}

// ErrorKind represents the categories of overlay errors
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidGeometry
	KindUnknownFont
	KindPageOutOfRange
	KindInvalidRange
	KindOverlap
	KindInvalidDocument
)

// Sentinel errors usable with errors.Is. An *OverlayError matches the sentinel
// of its Kind.
var (
	ErrInvalidGeometry = &OverlayError{Kind: KindInvalidGeometry}
	ErrUnknownFont     = &OverlayError{Kind: KindUnknownFont}
	ErrPageOutOfRange  = &OverlayError{Kind: KindPageOutOfRange}
	ErrInvalidRange    = &OverlayError{Kind: KindInvalidRange}
	ErrOverlap         = &OverlayError{Kind: KindOverlap}
	ErrInvalidDocument = &OverlayError{Kind: KindInvalidDocument}
)

// Error implements the error interface
func (e *OverlayError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Page > 0 {
		msg = fmt.Sprintf("%s (page %d)", msg, e.Page)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind.String(), msg)
}

// Unwrap returns the underlying error
func (e *OverlayError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *OverlayError of the same kind
func (e *OverlayError) Is(target error) bool {
	t, ok := target.(*OverlayError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// String returns a string representation of the ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidGeometry:
		return "INVALID_GEOMETRY"
	case KindUnknownFont:
		return "UNKNOWN_FONT"
	case KindPageOutOfRange:
		return "PAGE_OUT_OF_RANGE"
	case KindInvalidRange:
		return "INVALID_RANGE"
	case KindOverlap:
		return "OVERLAP"
	case KindInvalidDocument:
		return "INVALID_DOCUMENT"
	default:
		return "UNKNOWN"
	}
}

// InvalidGeometry creates a geometry error for zero or negative dimensions
func InvalidGeometry(op, format string, args ...interface{}) *OverlayError {
	return &OverlayError{
		Kind:    KindInvalidGeometry,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// UnknownFont creates an error for a font family outside the supported set
func UnknownFont(op, family string) *OverlayError {
	return &OverlayError{
		Kind:    KindUnknownFont,
		Op:      op,
		Message: fmt.Sprintf("unsupported font family %q", family),
	}
}

// PageOutOfRange creates an error for a section referencing a missing page
func PageOutOfRange(op string, page, pageCount int) *OverlayError {
	return &OverlayError{
		Kind:    KindPageOutOfRange,
		Op:      op,
		Page:    page,
		Message: fmt.Sprintf("page %d outside document with %d pages", page, pageCount),
	}
}

// Wrap attaches an underlying error to a new OverlayError of the given kind
func Wrap(kind ErrorKind, op string, err error) *OverlayError {
	return &OverlayError{
		Kind: kind,
		Op:   op,
		Err:  err,
	}
}
