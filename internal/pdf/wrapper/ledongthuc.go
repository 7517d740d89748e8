package wrapper

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ledongthuc/pdf"

	pdferrors "github.com/a3tai/mcp-pdf-overlay/internal/pdf/errors"
)

// LedongthucLibrary implements PDFLibrary using ledongthuc/pdf. It is read-only.
type LedongthucLibrary struct {
	config FactoryConfig
	closed bool
}

// NewLedongthucLibrary creates a new ledongthuc library wrapper
func NewLedongthucLibrary(config FactoryConfig) *LedongthucLibrary {
	return &LedongthucLibrary{config: config}
}

// Open reads the whole stream into memory and parses it
func (l *LedongthucLibrary) Open(reader io.Reader) (PDFDocument, error) {
	if l.closed {
		return nil, &WrapperError{Library: LibraryLedongthuc, Op: "open", Err: ErrDocumentClosed.Err}
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, &WrapperError{Library: LibraryLedongthuc, Op: "open", Err: fmt.Errorf("failed to read PDF: %w", err)}
	}
	return l.OpenBytes(data)
}

// OpenBytes parses an in-memory PDF
func (l *LedongthucLibrary) OpenBytes(data []byte) (*LedongthucDocument, error) {
	if l.closed {
		return nil, &WrapperError{Library: LibraryLedongthuc, Op: "open", Err: ErrDocumentClosed.Err}
	}

	reader, err := newReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &WrapperError{
			Library: LibraryLedongthuc,
			Op:      "open",
			Err:     fmt.Errorf("failed to open PDF: %w", err),
		}
	}
	return &LedongthucDocument{reader: reader, config: l.config}, nil
}

// OpenFile opens a PDF from a file path
func (l *LedongthucLibrary) OpenFile(path string) (PDFDocument, error) {
	if l.closed {
		return nil, &WrapperError{Library: LibraryLedongthuc, Op: "open_file", Err: ErrDocumentClosed.Err}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &WrapperError{
			Library: LibraryLedongthuc,
			Op:      "open_file",
			Err:     fmt.Errorf("failed to open file: %w", err),
		}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &WrapperError{Library: LibraryLedongthuc, Op: "open_file", Err: err}
	}

	reader, err := newReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, &WrapperError{
			Library: LibraryLedongthuc,
			Op:      "open_file",
			Err:     fmt.Errorf("failed to open PDF: %w", err),
		}
	}

	return &LedongthucDocument{
		reader:   reader,
		config:   l.config,
		filePath: path,
		file:     f,
	}, nil
}

// newReader guards against panics ledongthuc raises on malformed input
func newReader(r io.ReaderAt, size int64) (reader *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed PDF: %v", rec)
		}
	}()
	return pdf.NewReader(r, size)
}

// Validate validates the library is properly initialized
func (l *LedongthucLibrary) Validate() error {
	if l.closed {
		return &WrapperError{Library: LibraryLedongthuc, Op: "validate", Err: ErrDocumentClosed.Err}
	}
	return nil
}

// Close closes the library and releases resources
func (l *LedongthucLibrary) Close() error {
	l.closed = true
	return nil
}

// GetLibraryType returns the library type
func (l *LedongthucLibrary) GetLibraryType() LibraryType {
	return LibraryLedongthuc
}

// GetVersion returns the ledongthuc/pdf version
func (l *LedongthucLibrary) GetVersion() string {
	return "ledongthuc/pdf-v0.0.0-20250511090121"
}

// LedongthucDocument implements PDFDocument using ledongthuc/pdf
type LedongthucDocument struct {
	reader   *pdf.Reader
	config   FactoryConfig
	closed   bool
	filePath string
	file     *os.File
}

// GetPageCount returns the number of pages in the document
func (d *LedongthucDocument) GetPageCount() (int, error) {
	if d.closed {
		return 0, &WrapperError{Library: LibraryLedongthuc, Op: "get_page_count", Err: ErrDocumentClosed.Err}
	}
	return d.reader.NumPage(), nil
}

// GetPage returns a specific page
func (d *LedongthucDocument) GetPage(pageNum int) (PDFPage, error) {
	page, err := d.page("get_page", pageNum)
	if err != nil {
		return nil, err
	}
	return &LedongthucPage{page: page, pageNum: pageNum}, nil
}

// ExtractText returns every character drawn on a page
func (d *LedongthucDocument) ExtractText(pageNum int) ([]TextElement, error) {
	page, err := d.page("extract_text", pageNum)
	if err != nil {
		return nil, err
	}
	return pageText(page)
}

// Close closes the document
func (d *LedongthucDocument) Close() error {
	d.closed = true
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

func (d *LedongthucDocument) page(op string, pageNum int) (pdf.Page, error) {
	if d.closed {
		return pdf.Page{}, &WrapperError{Library: LibraryLedongthuc, Op: op, Err: ErrDocumentClosed.Err}
	}
	count := d.reader.NumPage()
	if pageNum < 1 || pageNum > count {
		return pdf.Page{}, &WrapperError{
			Library: LibraryLedongthuc,
			Op:      op,
			Err:     pdferrors.PageOutOfRange(op, pageNum, count),
		}
	}
	page := d.reader.Page(pageNum)
	if page.V.IsNull() {
		return pdf.Page{}, &WrapperError{
			Library: LibraryLedongthuc,
			Op:      op,
			Err:     fmt.Errorf("page %d not found in page tree", pageNum),
		}
	}
	return page, nil
}

// LedongthucPage implements PDFPage using ledongthuc/pdf
type LedongthucPage struct {
	page    pdf.Page
	pageNum int
}

// GetNumber returns the page number
func (p *LedongthucPage) GetNumber() int {
	return p.pageNum
}

// GetSize returns the inherited media box size
func (p *LedongthucPage) GetSize() (*PageSize, error) {
	box := inheritedKey(p.page.V, "MediaBox")
	if box.Kind() != pdf.Array || box.Len() != 4 {
		return nil, &WrapperError{
			Library: LibraryLedongthuc,
			Op:      "get_size",
			Err:     fmt.Errorf("page %d has no media box", p.pageNum),
		}
	}
	return &PageSize{
		Width:  box.Index(2).Float64() - box.Index(0).Float64(),
		Height: box.Index(3).Float64() - box.Index(1).Float64(),
		Unit:   "pt",
	}, nil
}

// inheritedKey looks key up on the page and then on its ancestors in the
// page tree
func inheritedKey(page pdf.Value, key string) pdf.Value {
	for v := page; v.Kind() != pdf.Null; v = v.Key("Parent") {
		if value := v.Key(key); value.Kind() != pdf.Null {
			return value
		}
	}
	return pdf.Value{}
}

// GetText returns text elements on this page
func (p *LedongthucPage) GetText() ([]TextElement, error) {
	return pageText(p.page)
}

func pageText(page pdf.Page) (elements []TextElement, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &WrapperError{
				Library: LibraryLedongthuc,
				Op:      "extract_text",
				Err:     fmt.Errorf("malformed content stream: %v", rec),
			}
		}
	}()

	content := page.Content()
	elements = make([]TextElement, 0, len(content.Text))
	for _, text := range content.Text {
		elements = append(elements, TextElement{
			Text:     text.S,
			Font:     text.Font,
			FontSize: text.FontSize,
			X:        text.X,
			Y:        text.Y,
			Width:    text.W,
		})
	}
	return elements, nil
}
