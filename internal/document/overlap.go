package document

import (
	"fmt"

	"github.com/golang/geo/r2"

	pdferrors "github.com/a3tai/mcp-pdf-overlay/internal/pdf/errors"
)

// OverlapPolicy decides whether a candidate section may join a field
type OverlapPolicy interface {
	Check(field FormField, candidate Section) error
}

// AllowOverlap accepts every section. It is the default policy.
type AllowOverlap struct{}

// Check always succeeds
func (AllowOverlap) Check(FormField, Section) error { return nil }

// RejectOverlap refuses a section whose character range intersects one of the
// field's existing ranges, or whose box intersects an existing box on the
// same page. Touching edges do not count.
type RejectOverlap struct {
	// IgnoreBoxes limits the check to character ranges
	IgnoreBoxes bool
}

// Check implements OverlapPolicy
func (p RejectOverlap) Check(field FormField, candidate Section) error {
	fieldID := 0
	if field.FieldType != nil {
		fieldID = field.FieldType.ID
	}
	for i, s := range field.Sections {
		if RangesOverlap(s.CharacterStart, s.CharacterEnd, candidate.CharacterStart, candidate.CharacterEnd) {
			return &pdferrors.OverlayError{
				Kind:  pdferrors.KindOverlap,
				Op:    "assemble",
				Field: fieldID,
				Message: fmt.Sprintf("range [%d,%d) overlaps section %d [%d,%d)",
					candidate.CharacterStart, candidate.CharacterEnd, i, s.CharacterStart, s.CharacterEnd),
			}
		}
		if p.IgnoreBoxes || s.PageNumber != candidate.PageNumber {
			continue
		}
		if BoxesOverlap(s.BoundingBox, candidate.BoundingBox) {
			return &pdferrors.OverlayError{
				Kind:    pdferrors.KindOverlap,
				Op:      "assemble",
				Page:    candidate.PageNumber,
				Field:   fieldID,
				Message: fmt.Sprintf("box overlaps section %d", i),
			}
		}
	}
	return nil
}

// RangesOverlap reports whether two half-open ranges share a character.
// Empty ranges never overlap.
func RangesOverlap(aStart, aEnd, bStart, bEnd int) bool {
	if aStart >= aEnd || bStart >= bEnd {
		return false
	}
	return aStart < bEnd && bStart < aEnd
}

// BoxesOverlap reports whether two boxes share interior area
func BoxesOverlap(a, b BoundingBox) bool {
	return boxRect(a).InteriorIntersects(boxRect(b))
}

func boxRect(b BoundingBox) r2.Rect {
	return r2.RectFromPoints(
		r2.Point{X: b.XPosition, Y: b.YPosition},
		r2.Point{X: b.XPosition + b.Width, Y: b.YPosition + b.Height},
	)
}

// CheckFields runs policy over every section of every field, in order, as if
// the fields were assembled one section at a time
func CheckFields(policy OverlapPolicy, fields FormFields) error {
	if policy == nil {
		return nil
	}
	for _, f := range fields {
		partial := FormField{DocumentTypeID: f.DocumentTypeID, FieldType: f.FieldType}
		for _, s := range f.Sections {
			if err := policy.Check(partial, s); err != nil {
				return err
			}
			partial.Sections = append(partial.Sections, s)
		}
	}
	return nil
}
