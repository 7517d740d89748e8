package document

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldKind is the data kind a field type captures
type FieldKind string

const (
	KindText      FieldKind = "text"
	KindNumber    FieldKind = "number"
	KindBoolean   FieldKind = "boolean"
	KindDate      FieldKind = "date"
	KindUnderline FieldKind = "underline"
)

// ParseFieldKind resolves a kind name. "bool" is accepted for boolean.
func ParseFieldKind(s string) (FieldKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return KindText, nil
	case "number":
		return KindNumber, nil
	case "boolean", "bool":
		return KindBoolean, nil
	case "date":
		return KindDate, nil
	case "underline":
		return KindUnderline, nil
	default:
		return "", fmt.Errorf("unknown field kind %q", s)
	}
}

// UnmarshalJSON accepts any spelling ParseFieldKind understands
func (k *FieldKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	kind, err := ParseFieldKind(s)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// UnmarshalYAML accepts any spelling ParseFieldKind understands
func (k *FieldKind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	kind, err := ParseFieldKind(s)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// SingleCharacter reports whether fields of this kind always occupy exactly one
// fixed {0,1} section, bypassing the operator's section list
func (k FieldKind) SingleCharacter() bool {
	return k == KindBoolean || k == KindUnderline
}

// FontFamily identifies one of the supported standard PDF fonts
type FontFamily string

const (
	FontHelvetica  FontFamily = "Helvetica"
	FontCourier    FontFamily = "Courier"
	FontTimesRoman FontFamily = "Times-Roman"
)

// FontFamilies lists the closed font set in display order
func FontFamilies() []FontFamily {
	return []FontFamily{FontCourier, FontHelvetica, FontTimesRoman}
}

// Supported reports whether f belongs to the font set
func (f FontFamily) Supported() bool {
	switch f {
	case FontHelvetica, FontCourier, FontTimesRoman:
		return true
	}
	return false
}

// FieldType is a catalog entry. Placeholder is the full source string that a
// field's sections slice from.
type FieldType struct {
	ID          int       `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Kind        FieldKind `json:"type" yaml:"type"`
	Placeholder string    `json:"placeholder" yaml:"placeholder"`
}

// Length returns the placeholder length in characters
func (ft FieldType) Length() int {
	return len([]rune(ft.Placeholder))
}

// Slice returns placeholder[start:end] counted in characters. Out of range
// bounds are clamped; an empty or inverted range yields "".
func (ft FieldType) Slice(start, end int) string {
	runes := []rune(ft.Placeholder)
	start, end = ClampRange(start, end, len(runes))
	return string(runes[start:end])
}

// ClampRange clamps a half-open range into [0, n]. An inverted range collapses
// to the empty range at start.
func ClampRange(start, end, n int) (int, int) {
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	if end > n {
		end = n
	}
	if end < start {
		end = start
	}
	return start, end
}

// DocumentType is a catalog document with the field types it needs
type DocumentType struct {
	ID         int         `json:"id" yaml:"id"`
	Name       string      `json:"name" yaml:"name"`
	FieldTypes []FieldType `json:"fieldTypes" yaml:"fieldTypes"`
}

// FieldType looks up a field type by ID
func (d *DocumentType) FieldType(id int) (*FieldType, bool) {
	if d == nil {
		return nil, false
	}
	for i := range d.FieldTypes {
		if d.FieldTypes[i].ID == id {
			return &d.FieldTypes[i], true
		}
	}
	return nil, false
}

// BoundingBox is an axis-aligned rectangle in PDF user space points. The
// position is the lower-left corner; padding is the interior text inset.
type BoundingBox struct {
	XPosition float64 `json:"xPosition"`
	YPosition float64 `json:"yPosition"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	PaddingX  float64 `json:"paddingX"`
	PaddingY  float64 `json:"paddingY"`
}

// Top returns the Y coordinate of the upper edge
func (b BoundingBox) Top() float64 {
	return b.YPosition + b.Height
}

// SectionStyle is the per-section text style. LineHeight is derived from the
// font family and size; build styles with NewSectionStyle or Restyle.
type SectionStyle struct {
	FontSize         float64    `json:"fontSize"`
	FontFamily       FontFamily `json:"fontFamily"`
	CharacterSpacing float64    `json:"characterSpacing"`
	LineHeight       float64    `json:"lineHeight"`
}

// Section is one positioned, styled slice of a field's placeholder
type Section struct {
	PageNumber     int          `json:"pageNumber"`
	BoundingBox    BoundingBox  `json:"boundingBox"`
	CharacterStart int          `json:"characterStart"`
	CharacterEnd   int          `json:"characterEnd"`
	Style          SectionStyle `json:"style"`
	CanvasWidth    float64      `json:"canvasWidth"`
	CanvasHeight   float64      `json:"canvasHeight"`
}

// FormField is a concrete placement of a field type on a document
type FormField struct {
	DocumentTypeID int        `json:"documentType"`
	FieldType      *FieldType `json:"fieldType"`
	Sections       []Section  `json:"sections"`
}

// Clone returns a copy whose Sections slice is independent of f's. The field
// type is shared, not copied.
func (f FormField) Clone() FormField {
	out := f
	out.Sections = append([]Section(nil), f.Sections...)
	return out
}

// FormFields is a document's field collection, unique by field type ID
type FormFields []FormField

// Find returns the index of the field bound to fieldTypeID, or -1
func (fs FormFields) Find(fieldTypeID int) int {
	for i := range fs {
		if fs[i].FieldType != nil && fs[i].FieldType.ID == fieldTypeID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the collection structure
func (fs FormFields) Clone() FormFields {
	if fs == nil {
		return nil
	}
	out := make(FormFields, len(fs))
	for i := range fs {
		out[i] = fs[i].Clone()
	}
	return out
}

// SectionCount returns the number of sections across all fields
func (fs FormFields) SectionCount() int {
	n := 0
	for i := range fs {
		n += len(fs[i].Sections)
	}
	return n
}

// Pages returns the distinct page numbers referenced by any section, ascending
func (fs FormFields) Pages() []int {
	seen := make(map[int]bool)
	var pages []int
	for _, f := range fs {
		for _, s := range f.Sections {
			if !seen[s.PageNumber] {
				seen[s.PageNumber] = true
				pages = append(pages, s.PageNumber)
			}
		}
	}
	sort.Ints(pages)
	return pages
}
