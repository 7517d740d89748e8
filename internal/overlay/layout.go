// Package overlay lays out field sections glyph by glyph and composites them
// onto PDF pages.
package overlay

import (
	"fmt"
	"sync"

	"github.com/a3tai/mcp-pdf-overlay/internal/document"
	"github.com/a3tai/mcp-pdf-overlay/internal/fontmetrics"
	pdferrors "github.com/a3tai/mcp-pdf-overlay/internal/pdf/errors"
)

// Measurer resolves font metrics for a family and size
type Measurer interface {
	Measure(family document.FontFamily, size float64) (*fontmetrics.Metrics, error)
}

// Glyph is one character at its baseline origin in PDF points
type Glyph struct {
	Rune rune    `json:"rune"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Run is the laid-out text of one section
type Run struct {
	FieldTypeID int                 `json:"field_type_id"`
	Section     int                 `json:"section"`
	Page        int                 `json:"page"`
	Font        document.FontFamily `json:"font"`
	Size        float64             `json:"size"`
	Text        string              `json:"text"`
	Glyphs      []Glyph             `json:"glyphs"`
	// EndX is the cursor after the last glyph and its spacing
	EndX float64 `json:"end_x"`
}

// LayoutOptions filters what Layout produces
type LayoutOptions struct {
	// TargetPage restricts layout to one page when positive
	TargetPage int
}

type sectionRef struct {
	field   int
	section int
}

// Layout computes the glyph positions of every section in fields. Sections are
// laid out concurrently; runs come back in field then section order. Sections
// whose clamped character range is empty produce no run.
func Layout(fields document.FormFields, m Measurer, opts LayoutOptions) ([]Run, error) {
	var refs []sectionRef
	for fi, f := range fields {
		if f.FieldType == nil {
			continue
		}
		for si, s := range f.Sections {
			if opts.TargetPage > 0 && s.PageNumber != opts.TargetPage {
				continue
			}
			refs = append(refs, sectionRef{field: fi, section: si})
		}
	}

	runs := make([]*Run, len(refs))
	errs := make([]error, len(refs))

	var wg sync.WaitGroup
	for i, ref := range refs {
		wg.Add(1)
		go func(i int, ref sectionRef) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("layout panicked: %v", r)
				}
			}()
			f := fields[ref.field]
			runs[i], errs[i] = LayoutSection(f.FieldType, f.Sections[ref.section], m)
			if runs[i] != nil {
				runs[i].Section = ref.section
			}
		}(i, ref)
	}
	wg.Wait()

	out := make([]Run, 0, len(refs))
	for i, ref := range refs {
		if errs[i] != nil {
			return nil, fmt.Errorf("field %d section %d: %w", fields[ref.field].FieldType.ID, ref.section, errs[i])
		}
		if runs[i] != nil {
			out = append(out, *runs[i])
		}
	}
	return out, nil
}

// LayoutSection places placeholder[characterStart:characterEnd] starting at
// the box's padded left edge, on a baseline at the box's top edge plus
// padding. It returns nil for an empty range.
func LayoutSection(ft *document.FieldType, s document.Section, m Measurer) (*Run, error) {
	if ft == nil {
		return nil, pdferrors.Wrap(pdferrors.KindInvalidDocument, "layout section", fmt.Errorf("section has no field type"))
	}

	text := ft.Slice(s.CharacterStart, s.CharacterEnd)
	if text == "" {
		return nil, nil
	}

	metrics, err := m.Measure(s.Style.FontFamily, s.Style.FontSize)
	if err != nil {
		return nil, err
	}

	box := s.BoundingBox
	run := &Run{
		FieldTypeID: ft.ID,
		Page:        s.PageNumber,
		Font:        s.Style.FontFamily,
		Size:        s.Style.FontSize,
		Text:        text,
		Glyphs:      make([]Glyph, 0, len(text)),
	}

	curX := box.XPosition + box.PaddingX
	y := box.YPosition + box.Height + box.PaddingY
	for _, r := range text {
		run.Glyphs = append(run.Glyphs, Glyph{Rune: r, X: curX, Y: y})
		curX += metrics.AdvanceWidth(r) + s.Style.CharacterSpacing
	}
	run.EndX = curX
	return run, nil
}
