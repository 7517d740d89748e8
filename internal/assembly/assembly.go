// Package assembly binds accepted placements into a document's form fields.
// Every operation returns a new collection and leaves its input untouched.
package assembly

import (
	"fmt"

	"github.com/a3tai/mcp-pdf-overlay/internal/capture"
	"github.com/a3tai/mcp-pdf-overlay/internal/document"
	pdferrors "github.com/a3tai/mcp-pdf-overlay/internal/pdf/errors"
)

// NewSection builds the section a slot becomes once drawn on page
func NewSection(box document.BoundingBox, slot capture.Slot, page capture.PageContext) document.Section {
	return document.Section{
		PageNumber:     page.PageNumber,
		BoundingBox:    box,
		CharacterStart: slot.CharacterStart,
		CharacterEnd:   slot.CharacterEnd,
		Style:          slot.Style,
		CanvasWidth:    page.Canvas.Width,
		CanvasHeight:   page.Canvas.Height,
	}
}

// Assemble appends a section for ft to the existing field of the same type,
// or adds a new field. A nil ft returns existing unchanged.
func Assemble(existing document.FormFields, documentTypeID int, ft *document.FieldType,
	box document.BoundingBox, slot capture.Slot, page capture.PageContext) document.FormFields {
	if ft == nil {
		return existing
	}

	section := NewSection(box, slot, page)
	out := existing.Clone()
	if i := out.Find(ft.ID); i >= 0 {
		out[i].Sections = append(out[i].Sections, section)
		return out
	}
	return append(out, document.FormField{
		DocumentTypeID: documentTypeID,
		FieldType:      ft,
		Sections:       []document.Section{section},
	})
}

// AssemblePlacement is Assemble driven by an accepted capture placement
func AssemblePlacement(existing document.FormFields, documentTypeID int, p capture.Placement) document.FormFields {
	return Assemble(existing, documentTypeID, p.FieldType, p.Box, p.Slot, p.Page)
}

// AssembleChecked is Assemble guarded by an overlap policy. On rejection the
// error is returned with existing unchanged.
func AssembleChecked(policy document.OverlapPolicy, existing document.FormFields, documentTypeID int,
	ft *document.FieldType, box document.BoundingBox, slot capture.Slot, page capture.PageContext) (document.FormFields, error) {
	if ft == nil {
		return existing, nil
	}
	if policy != nil {
		field := document.FormField{DocumentTypeID: documentTypeID, FieldType: ft}
		if i := existing.Find(ft.ID); i >= 0 {
			field = existing[i]
		}
		if err := policy.Check(field, NewSection(box, slot, page)); err != nil {
			return existing, err
		}
	}
	return Assemble(existing, documentTypeID, ft, box, slot, page), nil
}

// SectionEdit carries the style editor's changes to one section. Nil members
// keep the current value.
type SectionEdit struct {
	CharacterStart *int `json:"characterStart,omitempty"`
	CharacterEnd   *int `json:"characterEnd,omitempty"`
	document.StyleEdit
}

// UpdateSection applies edit to section index of the field bound to
// fieldTypeID. A font or size change recomputes the line height through m.
func UpdateSection(existing document.FormFields, fieldTypeID, index int, edit SectionEdit,
	m document.LineHeightMeasurer) (document.FormFields, error) {
	fi := existing.Find(fieldTypeID)
	if fi < 0 {
		return existing, &pdferrors.OverlayError{
			Kind:    pdferrors.KindInvalidDocument,
			Op:      "update section",
			Field:   fieldTypeID,
			Message: "no field for this field type",
		}
	}
	field := existing[fi]
	if index < 0 || index >= len(field.Sections) {
		return existing, &pdferrors.OverlayError{
			Kind:    pdferrors.KindInvalidDocument,
			Op:      "update section",
			Field:   fieldTypeID,
			Message: fmt.Sprintf("section %d out of %d", index, len(field.Sections)),
		}
	}

	section := field.Sections[index]
	if edit.CharacterStart != nil {
		section.CharacterStart = *edit.CharacterStart
	}
	if edit.CharacterEnd != nil {
		section.CharacterEnd = *edit.CharacterEnd
	}
	if section.CharacterStart < 0 || section.CharacterEnd < section.CharacterStart {
		return existing, &pdferrors.OverlayError{
			Kind:    pdferrors.KindInvalidRange,
			Op:      "update section",
			Field:   fieldTypeID,
			Message: fmt.Sprintf("character range [%d,%d) is inverted", section.CharacterStart, section.CharacterEnd),
		}
	}

	if !edit.StyleEdit.IsZero() {
		style, err := section.Style.Restyle(m, edit.StyleEdit)
		if err != nil {
			return existing, err
		}
		section.Style = style
	}

	out := existing.Clone()
	out[fi].Sections[index] = section
	return out, nil
}
