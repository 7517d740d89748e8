package overlay

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/a3tai/mcp-pdf-overlay/internal/document"
	pdferrors "github.com/a3tai/mcp-pdf-overlay/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-overlay/internal/pdf/wrapper"
)

// Renderer composites form fields onto PDF templates. It holds no state
// between calls; concurrent renders of different snapshots are independent.
type Renderer struct {
	factory *wrapper.PDFLibraryFactory
	metrics Measurer
	debug   bool
}

// RendererOption configures a Renderer
type RendererOption func(*Renderer)

// WithDebugLogging logs the start and outcome of every render
func WithDebugLogging(debug bool) RendererOption {
	return func(r *Renderer) { r.debug = debug }
}

// NewRenderer creates a renderer that opens templates through factory and
// measures glyphs with metrics
func NewRenderer(factory *wrapper.PDFLibraryFactory, metrics Measurer, opts ...RendererOption) *Renderer {
	if factory == nil {
		factory = wrapper.NewPDFLibraryFactory()
	}
	r := &Renderer{factory: factory, metrics: metrics}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type renderOptions struct {
	targetPage int
}

// RenderOption adjusts a single render call
type RenderOption func(*renderOptions)

// WithTargetPage draws only the sections on page n
func WithTargetPage(n int) RenderOption {
	return func(o *renderOptions) { o.targetPage = n }
}

// Result is a finished composite
type Result struct {
	PDF       []byte                `json:"-"`
	PageCount int                   `json:"page_count"`
	Runs      []Run                 `json:"runs"`
	Fonts     []document.FontFamily `json:"fonts"`
}

// Render returns pdfBytes with every section of fields drawn on it
func (r *Renderer) Render(ctx context.Context, pdfBytes []byte, fields document.FormFields, opts ...RenderOption) ([]byte, error) {
	res, err := r.Compose(ctx, pdfBytes, fields, opts...)
	if err != nil {
		return nil, err
	}
	return res.PDF, nil
}

// Compose renders like Render and also reports the laid-out runs. On error
// no bytes are returned.
func (r *Renderer) Compose(ctx context.Context, pdfBytes []byte, fields document.FormFields, opts ...RenderOption) (*Result, error) {
	var o renderOptions
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	if r.debug {
		log.Printf("overlay: render %d fields (%d sections), target page %d", len(fields), fields.SectionCount(), o.targetPage)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	composer, err := r.factory.OpenComposer(pdfBytes)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.KindInvalidDocument, "render", err)
	}
	defer composer.Close()

	pageCount, err := composer.GetPageCount()
	if err != nil {
		return nil, err
	}

	if err := checkPages(fields, pageCount, o.targetPage); err != nil {
		return nil, err
	}

	runs, err := Layout(fields, r.metrics, LayoutOptions{TargetPage: o.targetPage})
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	handles := make(map[document.FontFamily]wrapper.FontHandle)
	var fonts []document.FontFamily
	for _, run := range runs {
		if _, ok := handles[run.Font]; ok {
			continue
		}
		h, err := composer.RegisterFont(run.Font)
		if err != nil {
			return nil, err
		}
		handles[run.Font] = h
		fonts = append(fonts, run.Font)
	}

	for _, run := range runs {
		glyphs := make([]wrapper.Glyph, len(run.Glyphs))
		for i, g := range run.Glyphs {
			glyphs[i] = wrapper.Glyph{Char: g.Rune, X: g.X, Y: g.Y}
		}
		if err := composer.DrawGlyphs(run.Page, handles[run.Font], run.Size, glyphs); err != nil {
			return nil, fmt.Errorf("draw field %d section %d: %w", run.FieldTypeID, run.Section, err)
		}
	}

	var buf bytes.Buffer
	if err := composer.Write(&buf); err != nil {
		return nil, err
	}

	if r.debug {
		log.Printf("overlay: rendered %d runs on %d pages in %v", len(runs), pageCount, time.Since(start))
	}

	return &Result{
		PDF:       buf.Bytes(),
		PageCount: pageCount,
		Runs:      runs,
		Fonts:     fonts,
	}, nil
}

// checkPages fails on the first section that references a page outside the
// document
func checkPages(fields document.FormFields, pageCount, targetPage int) error {
	if targetPage != 0 && (targetPage < 1 || targetPage > pageCount) {
		return pdferrors.PageOutOfRange("render", targetPage, pageCount)
	}
	for _, f := range fields {
		for _, s := range f.Sections {
			if targetPage > 0 && s.PageNumber != targetPage {
				continue
			}
			if s.PageNumber < 1 || s.PageNumber > pageCount {
				return pdferrors.PageOutOfRange("render", s.PageNumber, pageCount)
			}
		}
	}
	return nil
}
