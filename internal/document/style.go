package document

import (
	"fmt"

	pdferrors "github.com/a3tai/mcp-pdf-overlay/internal/pdf/errors"
)

// Default style values applied to fresh section slots
const (
	DefaultFontSize         = 12.0
	DefaultFontFamily       = FontHelvetica
	DefaultCharacterSpacing = 0.0
)

// LineHeightMeasurer resolves the line height of a font at a size. The font
// metrics provider satisfies it.
type LineHeightMeasurer interface {
	LineHeight(family FontFamily, size float64) (float64, error)
}

// NewSectionStyle builds a style whose LineHeight is derived from family and size
func NewSectionStyle(m LineHeightMeasurer, family FontFamily, size, spacing float64) (SectionStyle, error) {
	style := SectionStyle{
		FontSize:         size,
		FontFamily:       family,
		CharacterSpacing: spacing,
	}
	if err := style.validateInputs(); err != nil {
		return SectionStyle{}, err
	}
	lh, err := m.LineHeight(family, size)
	if err != nil {
		return SectionStyle{}, err
	}
	style.LineHeight = lh
	return style, nil
}

// DefaultSectionStyle returns Helvetica 12 with no extra spacing
func DefaultSectionStyle(m LineHeightMeasurer) (SectionStyle, error) {
	return NewSectionStyle(m, DefaultFontFamily, DefaultFontSize, DefaultCharacterSpacing)
}

// StyleEdit carries optional changes to a style. Nil members keep the
// current value.
type StyleEdit struct {
	FontSize         *float64    `json:"fontSize,omitempty"`
	FontFamily       *FontFamily `json:"fontFamily,omitempty"`
	CharacterSpacing *float64    `json:"characterSpacing,omitempty"`
}

// IsZero reports whether the edit changes nothing
func (e StyleEdit) IsZero() bool {
	return e.FontSize == nil && e.FontFamily == nil && e.CharacterSpacing == nil
}

// Restyle applies edit to s. LineHeight is recomputed only when the family or
// size actually changes.
func (s SectionStyle) Restyle(m LineHeightMeasurer, edit StyleEdit) (SectionStyle, error) {
	family, size, spacing := s.FontFamily, s.FontSize, s.CharacterSpacing
	if edit.FontFamily != nil {
		family = *edit.FontFamily
	}
	if edit.FontSize != nil {
		size = *edit.FontSize
	}
	if edit.CharacterSpacing != nil {
		spacing = *edit.CharacterSpacing
	}

	if family == s.FontFamily && size == s.FontSize && s.LineHeight > 0 {
		out := s
		out.CharacterSpacing = spacing
		if err := out.validateInputs(); err != nil {
			return SectionStyle{}, err
		}
		return out, nil
	}
	return NewSectionStyle(m, family, size, spacing)
}

// Validate checks the style invariants, including a derived line height
func (s SectionStyle) Validate() error {
	if err := s.validateInputs(); err != nil {
		return err
	}
	if s.LineHeight <= 0 {
		return pdferrors.InvalidGeometry("style", "line height %.2f must be positive", s.LineHeight)
	}
	return nil
}

func (s SectionStyle) validateInputs() error {
	if !s.FontFamily.Supported() {
		return pdferrors.UnknownFont("style", string(s.FontFamily))
	}
	if s.FontSize <= 0 {
		return pdferrors.InvalidGeometry("style", "font size %.2f must be positive", s.FontSize)
	}
	if s.CharacterSpacing < 0 {
		return pdferrors.InvalidGeometry("style", "character spacing %.2f must not be negative", s.CharacterSpacing)
	}
	return nil
}

// Validate checks that the box has positive extent and non-negative padding
func (b BoundingBox) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return pdferrors.InvalidGeometry("bounding box", "size %.2fx%.2f must be positive", b.Width, b.Height)
	}
	if b.PaddingX < 0 || b.PaddingY < 0 {
		return pdferrors.InvalidGeometry("bounding box", "padding %.2f,%.2f must not be negative", b.PaddingX, b.PaddingY)
	}
	return nil
}

// Validate checks page, box and style. The character range is checked
// against ft when it is non-nil.
func (s Section) Validate(ft *FieldType) error {
	if s.PageNumber < 1 {
		return &pdferrors.OverlayError{
			Kind:    pdferrors.KindPageOutOfRange,
			Op:      "section",
			Page:    s.PageNumber,
			Message: "page numbers start at 1",
		}
	}
	if err := s.BoundingBox.Validate(); err != nil {
		return err
	}
	if err := s.Style.Validate(); err != nil {
		return err
	}
	if s.CharacterStart < 0 || s.CharacterEnd < s.CharacterStart {
		return &pdferrors.OverlayError{
			Kind:    pdferrors.KindInvalidRange,
			Op:      "section",
			Message: fmt.Sprintf("character range [%d,%d) is inverted", s.CharacterStart, s.CharacterEnd),
		}
	}
	if ft != nil && s.CharacterStart > ft.Length() {
		return &pdferrors.OverlayError{
			Kind:    pdferrors.KindInvalidRange,
			Op:      "section",
			Field:   ft.ID,
			Message: fmt.Sprintf("character start %d beyond placeholder length %d", s.CharacterStart, ft.Length()),
		}
	}
	return nil
}
