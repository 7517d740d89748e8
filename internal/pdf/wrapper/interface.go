package wrapper

import (
	"fmt"
	"io"

	"github.com/a3tai/mcp-pdf-overlay/internal/document"
)

// PDFLibrary defines the unified interface for opening PDFs across libraries
type PDFLibrary interface {
	Open(reader io.Reader) (PDFDocument, error)
	OpenFile(path string) (PDFDocument, error)
	Validate() error
	Close() error

	GetLibraryType() LibraryType
	GetVersion() string
}

// PDFDocument is a parsed PDF with read operations
type PDFDocument interface {
	GetPageCount() (int, error)
	GetPage(pageNum int) (PDFPage, error)
	ExtractText(pageNum int) ([]TextElement, error)
	Close() error
}

// PDFComposer is a document that can also draw text and serialize itself.
// Draw calls may come from several goroutines; implementations serialize
// page writes.
type PDFComposer interface {
	PDFDocument

	// RegisterFont makes a standard font available for drawing. Repeated
	// calls for one family return the same handle.
	RegisterFont(family document.FontFamily) (FontHandle, error)
	// DrawGlyphs places single characters on a page in solid black
	DrawGlyphs(pageNum int, font FontHandle, size float64, glyphs []Glyph) error
	// Write serializes the document with everything drawn so far
	Write(w io.Writer) error
}

// PDFPage represents a single page in a PDF document
type PDFPage interface {
	GetNumber() int
	GetSize() (*PageSize, error)
	GetText() ([]TextElement, error)
}

// LibraryType represents the underlying PDF library being used
type LibraryType string

const (
	LibraryPDFCPU     LibraryType = "pdfcpu"
	LibraryLedongthuc LibraryType = "ledongthuc"
	LibraryAuto       LibraryType = "auto" // pick per operation
)

// PageSize represents the dimensions of a PDF page at scale 1
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Unit   string  `json:"unit"`
}

// FontHandle identifies a registered font within one composer
type FontHandle struct {
	Family document.FontFamily `json:"family"`
	// Resource is the page resource name the font is drawn with
	Resource string `json:"resource"`
}

// Glyph is one character positioned at its baseline origin in PDF space
type Glyph struct {
	Char rune    `json:"char"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// TextElement is one character read back from a page
type TextElement struct {
	Text     string  `json:"text"`
	Font     string  `json:"font"`
	FontSize float64 `json:"font_size"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
}

// WrapperError wraps a failure inside one library backend
type WrapperError struct {
	Library LibraryType `json:"library"`
	Op      string      `json:"operation"`
	Err     error       `json:"error"`
}

func (e *WrapperError) Error() string {
	return fmt.Sprintf("PDF %s library error in %s: %v", e.Library, e.Op, e.Err)
}

func (e *WrapperError) Unwrap() error {
	return e.Err
}

// Common error variables
var (
	ErrUnsupportedLibrary = &WrapperError{Op: "factory", Err: fmt.Errorf("unsupported library type")}
	ErrDocumentClosed     = &WrapperError{Op: "document", Err: fmt.Errorf("document is closed")}
	ErrInvalidPage        = &WrapperError{Op: "page", Err: fmt.Errorf("invalid page number")}
	ErrReadOnly           = &WrapperError{Op: "compose", Err: fmt.Errorf("library cannot compose documents")}
)
