// Package editor drives one placement session: arm a field type, capture
// rectangles, assemble them into the document's fields and keep a fresh
// composite of the template.
package editor

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/a3tai/mcp-pdf-overlay/internal/assembly"
	"github.com/a3tai/mcp-pdf-overlay/internal/capture"
	"github.com/a3tai/mcp-pdf-overlay/internal/document"
	"github.com/a3tai/mcp-pdf-overlay/internal/geometry"
	"github.com/a3tai/mcp-pdf-overlay/internal/overlay"
	pdferrors "github.com/a3tai/mcp-pdf-overlay/internal/pdf/errors"
)

// Metrics measures glyph advances and line heights
type Metrics interface {
	overlay.Measurer
	document.LineHeightMeasurer
}

// Compositor draws fields onto a template
type Compositor interface {
	Compose(ctx context.Context, pdfBytes []byte, fields document.FormFields, opts ...overlay.RenderOption) (*overlay.Result, error)
}

// Template is the PDF being laid out and the scale-1 size of each page
type Template struct {
	Path  string
	Data  []byte
	Pages []geometry.Size
}

// Editor is safe for concurrent use; calls are serialized.
type Editor struct {
	mu sync.Mutex

	catalog  *document.Catalog
	docType  *document.DocumentType
	metrics  Metrics
	renderer Compositor
	policy   document.OverlapPolicy
	session  *capture.Session

	captureOpts []capture.Option

	fields   document.FormFields
	template *Template

	preview   *overlay.Result
	renderErr error
	debug     bool
}

// Option configures an Editor
type Option func(*Editor)

// WithOverlapPolicy checks every accepted rectangle against the field's
// existing sections
func WithOverlapPolicy(p document.OverlapPolicy) Option {
	return func(e *Editor) { e.policy = p }
}

// WithCaptureOptions configures the rectangle capture session
func WithCaptureOptions(opts ...capture.Option) Option {
	return func(e *Editor) { e.captureOpts = append(e.captureOpts, opts...) }
}

// WithDebug logs re-renders and rejected placements
func WithDebug(debug bool) Option {
	return func(e *Editor) { e.debug = debug }
}

// New creates an editor for the document type documentTypeID of catalog
func New(catalog *document.Catalog, documentTypeID int, metrics Metrics, renderer Compositor, opts ...Option) (*Editor, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog cannot be nil")
	}
	if metrics == nil || renderer == nil {
		return nil, fmt.Errorf("metrics and renderer are required")
	}
	docType, ok := catalog.Document(documentTypeID)
	if !ok {
		return nil, &pdferrors.OverlayError{
			Kind:    pdferrors.KindInvalidDocument,
			Op:      "editor",
			Message: fmt.Sprintf("document type %d is not in the catalog", documentTypeID),
		}
	}

	e := &Editor{
		catalog:  catalog,
		docType:  docType,
		metrics:  metrics,
		renderer: renderer,
		policy:   document.AllowOverlap{},
		fields:   document.FormFields{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.session = capture.NewSession(append([]capture.Option{capture.WithDebug(e.debug)}, e.captureOpts...)...)
	return e, nil
}

// Catalog returns the catalog the editor was created with
func (e *Editor) Catalog() *document.Catalog {
	return e.catalog
}

// DocumentType returns the document type being laid out
func (e *Editor) DocumentType() *document.DocumentType {
	return e.docType
}

// LoadTemplate switches to a new template and re-renders the current fields
// onto it
func (e *Editor) LoadTemplate(ctx context.Context, t Template) error {
	if len(t.Data) == 0 {
		return &pdferrors.OverlayError{Kind: pdferrors.KindInvalidDocument, Op: "load template", Message: "template is empty"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.template = &t
	e.preview, e.renderErr = nil, nil
	return e.rerender(ctx)
}

// Template returns the loaded template, or nil
func (e *Editor) Template() *Template {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.template
}

// Arm selects a field type and queues its slots. Lengths split the
// placeholder into consecutive sections; none means DefaultSectionLengths.
// Boolean and underline fields always get one single-character slot.
func (e *Editor) Arm(fieldTypeID int, lengths []int, style document.StyleEdit) (Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ft, ok := e.docType.FieldType(fieldTypeID)
	if !ok {
		return Status{}, &pdferrors.OverlayError{
			Kind:    pdferrors.KindInvalidDocument,
			Op:      "arm",
			Field:   fieldTypeID,
			Message: fmt.Sprintf("field type is not part of document type %d", e.docType.ID),
		}
	}

	base, err := document.DefaultSectionStyle(e.metrics)
	if err != nil {
		return Status{}, err
	}
	if !style.IsZero() {
		if base, err = base.Restyle(e.metrics, style); err != nil {
			return Status{}, err
		}
	}

	if len(lengths) == 0 {
		lengths = capture.DefaultSectionLengths
	}
	requested, err := capture.SlotsFromLengths(lengths, base)
	if err != nil {
		return Status{}, err
	}

	if err := e.session.Arm(ft, capture.PlanSlots(ft, requested, base)); err != nil {
		return Status{}, err
	}
	return e.status(), nil
}

// PointerDown starts a rectangle at p
func (e *Editor) PointerDown(p geometry.Point) (Status, error) {
	return e.pointer(func() error { return e.session.PointerDown(p) })
}

// PointerMove stretches the rectangle to p
func (e *Editor) PointerMove(p geometry.Point) (Status, error) {
	return e.pointer(func() error { return e.session.PointerMove(p) })
}

// PointerUp finishes the rectangle
func (e *Editor) PointerUp() (Status, error) {
	return e.pointer(e.session.PointerUp)
}

func (e *Editor) pointer(event func() error) (Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := event()
	return e.status(), err
}

// AcceptResult reports what an accept did
type AcceptResult struct {
	Accepted  bool               `json:"accepted"`
	Placement *capture.Placement `json:"placement,omitempty"`
	Status    Status             `json:"status"`
	// RenderError is set when the fields changed but the new composite failed;
	// the previous composite is kept
	RenderError string `json:"renderError,omitempty"`
}

// Accept converts the finished rectangle for page, assembles it into the
// fields and re-renders. A rectangle below the minimum extent is dropped and
// reported as not accepted.
func (e *Editor) Accept(ctx context.Context, page capture.PageContext) (*AcceptResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.template != nil {
		if page.PageNumber < 1 || page.PageNumber > len(e.template.Pages) {
			return nil, pdferrors.PageOutOfRange("accept", page.PageNumber, len(e.template.Pages))
		}
		if !page.Page.Valid() {
			page.Page = e.template.Pages[page.PageNumber-1]
		}
	}

	placement, ok, err := e.session.Accept(page)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &AcceptResult{Status: e.status()}, nil
	}

	fields, err := assembly.AssembleChecked(e.policy, e.fields, e.docType.ID,
		placement.FieldType, placement.Box, placement.Slot, placement.Page)
	if err != nil {
		e.requeue(placement)
		if e.debug {
			log.Printf("editor: rejected placement for field %d: %v", placement.FieldType.ID, err)
		}
		return nil, err
	}
	e.fields = fields

	result := &AcceptResult{Accepted: true, Placement: &placement}
	if err := e.rerender(ctx); err != nil {
		result.RenderError = err.Error()
	}
	result.Status = e.status()
	return result, nil
}

// requeue puts a rejected placement's slot back at the front of the queue
func (e *Editor) requeue(p capture.Placement) {
	slots := append([]capture.Slot{p.Slot}, e.session.PendingSlots()...)
	if err := e.session.Arm(p.FieldType, slots); err != nil && e.debug {
		log.Printf("editor: could not requeue slot: %v", err)
	}
}

// Discard drops the finished rectangle and keeps its slot queued
func (e *Editor) Discard() (Status, error) {
	return e.pointer(e.session.Discard)
}

// Cancel abandons the gesture and every queued slot
func (e *Editor) Cancel() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.Cancel()
	return e.status()
}

// UpdateSection edits the range or style of a stored section and re-renders.
// A render failure leaves the edit applied and is returned with the previous
// composite kept.
func (e *Editor) UpdateSection(ctx context.Context, fieldTypeID, index int, edit assembly.SectionEdit) (document.Section, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fields, err := assembly.UpdateSection(e.fields, fieldTypeID, index, edit, e.metrics)
	if err != nil {
		return document.Section{}, err
	}
	e.fields = fields
	section := fields[fields.Find(fieldTypeID)].Sections[index]
	return section, e.rerender(ctx)
}

// RemoveField drops the field bound to fieldTypeID
func (e *Editor) RemoveField(ctx context.Context, fieldTypeID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.fields.Find(fieldTypeID)
	if i < 0 {
		return &pdferrors.OverlayError{Kind: pdferrors.KindInvalidDocument, Op: "remove field", Field: fieldTypeID, Message: "no field for this field type"}
	}
	out := e.fields.Clone()
	e.fields = append(out[:i], out[i+1:]...)
	return e.rerender(ctx)
}

// Fields returns a copy of the assembled fields
func (e *Editor) Fields() document.FormFields {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fields.Clone()
}

// Definition returns the assembled fields ready for serialization
func (e *Editor) Definition() document.Definition {
	return document.NewDefinition(e.docType.ID, e.Fields())
}

// LoadDefinition replaces the fields with a saved definition of the same
// document type. Field types are rebound to the catalog's entries.
func (e *Editor) LoadDefinition(ctx context.Context, def document.Definition) error {
	if def.DocumentTypeID != e.docType.ID {
		return &pdferrors.OverlayError{
			Kind:    pdferrors.KindInvalidDocument,
			Op:      "load definition",
			Message: fmt.Sprintf("definition is for document type %d, editor has %d", def.DocumentTypeID, e.docType.ID),
		}
	}
	fields, err := e.docType.Bind(def.Fields)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.fields = fields
	return e.rerender(ctx)
}

// RenderError reports a composite that failed after the fields changed. The
// change itself is kept.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string { return e.Err.Error() }

func (e *RenderError) Unwrap() error { return e.Err }

// Preview returns the last successful composite and the error of the most
// recent render attempt, if it failed
func (e *Editor) Preview() (*overlay.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.preview, e.renderErr
}

// rerender composites the whole document. On failure the previous composite
// stays in place.
func (e *Editor) rerender(ctx context.Context) error {
	if e.template == nil {
		return nil
	}
	res, err := e.renderer.Compose(ctx, e.template.Data, e.fields)
	if err != nil {
		err = &RenderError{Err: err}
		e.renderErr = err
		if e.debug {
			log.Printf("editor: render failed, keeping previous composite: %v", err)
		}
		return err
	}
	e.preview, e.renderErr = res, nil
	if e.debug {
		log.Printf("editor: rendered %d runs onto %s", len(res.Runs), e.template.Path)
	}
	return nil
}

// Status is a snapshot of the capture session
type Status struct {
	State      string               `json:"state"`
	FieldType  *document.FieldType  `json:"fieldType,omitempty"`
	Pending    []capture.Slot       `json:"pending"`
	LiveRect   *geometry.CanvasRect `json:"liveRect,omitempty"`
	FieldCount int                  `json:"fieldCount"`
	Sections   int                  `json:"sectionCount"`
}

// Status returns the current capture state
func (e *Editor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status()
}

func (e *Editor) status() Status {
	st := Status{
		State:      e.session.State().String(),
		FieldType:  e.session.FieldType(),
		Pending:    e.session.PendingSlots(),
		FieldCount: len(e.fields),
		Sections:   e.fields.SectionCount(),
	}
	if r, ok := e.session.LiveRect(); ok {
		st.LiveRect = &r
	}
	return st
}

// Overlay is a stored section mapped onto the preview canvas
type Overlay struct {
	FieldTypeID int                 `json:"fieldTypeId"`
	Section     int                 `json:"section"`
	Text        string              `json:"text"`
	Rect        geometry.CanvasRect `json:"rect"`
}

// Overlays maps the sections stored for page onto a canvas of the given size
func (e *Editor) Overlays(pageNumber int, canvas geometry.Size) ([]Overlay, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.template == nil {
		return nil, &pdferrors.OverlayError{Kind: pdferrors.KindInvalidDocument, Op: "overlays", Message: "no template loaded"}
	}
	if pageNumber < 1 || pageNumber > len(e.template.Pages) {
		return nil, pdferrors.PageOutOfRange("overlays", pageNumber, len(e.template.Pages))
	}
	page := e.template.Pages[pageNumber-1]

	var out []Overlay
	for _, f := range e.fields {
		for si, s := range f.Sections {
			if s.PageNumber != pageNumber {
				continue
			}
			rect, err := geometry.ToCanvasSpace(s.BoundingBox, canvas, page)
			if err != nil {
				return nil, err
			}
			out = append(out, Overlay{
				FieldTypeID: f.FieldType.ID,
				Section:     si,
				Text:        f.FieldType.Slice(s.CharacterStart, s.CharacterEnd),
				Rect:        rect,
			})
		}
	}
	return out, nil
}
