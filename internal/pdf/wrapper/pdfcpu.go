package wrapper

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/mcp-pdf-overlay/internal/document"
	"github.com/a3tai/mcp-pdf-overlay/internal/fontmetrics"
	pdferrors "github.com/a3tai/mcp-pdf-overlay/internal/pdf/errors"
)

// fontResourcePrefix namespaces the fonts we add to page resources
const fontResourcePrefix = "OvlF"

// PDFCPULibrary implements PDFLibrary using pdfcpu. Its documents are
// composers.
type PDFCPULibrary struct {
	config FactoryConfig
	closed bool
}

// NewPDFCPULibrary creates a new pdfcpu library wrapper
func NewPDFCPULibrary(config FactoryConfig) *PDFCPULibrary {
	return &PDFCPULibrary{config: config}
}

// Open parses a PDF. reader must also be an io.ReadSeeker.
func (p *PDFCPULibrary) Open(reader io.Reader) (PDFDocument, error) {
	return p.OpenComposer(reader)
}

// OpenFile parses the PDF stored at path
func (p *PDFCPULibrary) OpenFile(path string) (PDFDocument, error) {
	if p.closed {
		return nil, &WrapperError{Library: LibraryPDFCPU, Op: "open_file", Err: ErrDocumentClosed.Err}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, &WrapperError{
			Library: LibraryPDFCPU,
			Op:      "open_file",
			Err:     fmt.Errorf("failed to open file: %w", err),
		}
	}
	defer file.Close()

	return p.OpenComposer(file)
}

// OpenComposer parses a PDF for drawing
func (p *PDFCPULibrary) OpenComposer(reader io.Reader) (*PDFCPUDocument, error) {
	if p.closed {
		return nil, &WrapperError{Library: LibraryPDFCPU, Op: "open", Err: ErrDocumentClosed.Err}
	}

	readSeeker, ok := reader.(io.ReadSeeker)
	if !ok {
		return nil, &WrapperError{
			Library: LibraryPDFCPU,
			Op:      "open",
			Err:     fmt.Errorf("reader must implement io.ReadSeeker"),
		}
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false

	ctx, err := api.ReadValidateAndOptimize(readSeeker, conf)
	if err != nil {
		return nil, &WrapperError{
			Library: LibraryPDFCPU,
			Op:      "open",
			Err:     fmt.Errorf("failed to read PDF context: %w", err),
		}
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return nil, &WrapperError{
			Library: LibraryPDFCPU,
			Op:      "open",
			Err:     fmt.Errorf("failed to ensure page count: %w", err),
		}
	}

	return &PDFCPUDocument{
		ctx:     ctx,
		config:  p.config,
		fonts:   make(map[document.FontFamily]fontEntry),
		pending: make(map[int]*bytes.Buffer),
	}, nil
}

// Validate validates the library is properly initialized
func (p *PDFCPULibrary) Validate() error {
	if p.closed {
		return &WrapperError{Library: LibraryPDFCPU, Op: "validate", Err: ErrDocumentClosed.Err}
	}
	return nil
}

// Close closes the library and releases resources
func (p *PDFCPULibrary) Close() error {
	p.closed = true
	return nil
}

// GetLibraryType returns the library type
func (p *PDFCPULibrary) GetLibraryType() LibraryType {
	return LibraryPDFCPU
}

// GetVersion returns the pdfcpu version
func (p *PDFCPULibrary) GetVersion() string {
	return "pdfcpu-v0.11.0"
}

type fontEntry struct {
	handle FontHandle
	ref    types.IndirectRef
}

// PDFCPUDocument composes text onto a pdfcpu context. Drawing is buffered per
// page and attached to the page tree on Write.
type PDFCPUDocument struct {
	mu      sync.Mutex
	ctx     *model.Context
	config  FactoryConfig
	closed  bool
	fonts   map[document.FontFamily]fontEntry
	pending map[int]*bytes.Buffer
}

// GetPageCount returns the number of pages in the document
func (d *PDFCPUDocument) GetPageCount() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, &WrapperError{Library: LibraryPDFCPU, Op: "get_page_count", Err: ErrDocumentClosed.Err}
	}
	return d.ctx.PageCount, nil
}

// GetPage returns a specific page
func (d *PDFCPUDocument) GetPage(pageNum int) (PDFPage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkPage("get_page", pageNum); err != nil {
		return nil, err
	}
	return &PDFCPUPage{doc: d, pageNum: pageNum}, nil
}

// ExtractText serializes the current state and reads it back with the
// ledongthuc backend
func (d *PDFCPUDocument) ExtractText(pageNum int) ([]TextElement, error) {
	var buf bytes.Buffer
	if err := d.Write(&buf); err != nil {
		return nil, err
	}
	reader, err := NewLedongthucLibrary(d.config).OpenBytes(buf.Bytes())
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return reader.ExtractText(pageNum)
}

// Close releases the context
func (d *PDFCPUDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.ctx = nil
	d.pending = nil
	return nil
}

// RegisterFont adds a standard Type1 font object the first time a family is
// requested and returns the cached handle afterwards
func (d *PDFCPUDocument) RegisterFont(family document.FontFamily) (FontHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return FontHandle{}, &WrapperError{Library: LibraryPDFCPU, Op: "register_font", Err: ErrDocumentClosed.Err}
	}
	if !family.Supported() {
		return FontHandle{}, pdferrors.UnknownFont("register font", string(family))
	}
	if e, ok := d.fonts[family]; ok {
		return e.handle, nil
	}

	fontDict := types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name(string(family)),
		"Encoding": types.Name("WinAnsiEncoding"),
	}
	ref, err := d.ctx.IndRefForNewObject(fontDict)
	if err != nil {
		return FontHandle{}, &WrapperError{
			Library: LibraryPDFCPU,
			Op:      "register_font",
			Err:     fmt.Errorf("failed to add font %s: %w", family, err),
		}
	}

	handle := FontHandle{
		Family:   family,
		Resource: fmt.Sprintf("%s%d", fontResourcePrefix, len(d.fonts)+1),
	}
	d.fonts[family] = fontEntry{handle: handle, ref: *ref}
	return handle, nil
}

// RegisteredFonts returns the families registered so far
func (d *PDFCPUDocument) RegisteredFonts() []document.FontFamily {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]document.FontFamily, 0, len(d.fonts))
	for f := range d.fonts {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DrawGlyphs queues one text object placing each glyph at its own origin
func (d *PDFCPUDocument) DrawGlyphs(pageNum int, font FontHandle, size float64, glyphs []Glyph) error {
	if len(glyphs) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkPage("draw_glyphs", pageNum); err != nil {
		return err
	}
	if e, ok := d.fonts[font.Family]; !ok || e.handle != font {
		return &WrapperError{
			Library: LibraryPDFCPU,
			Op:      "draw_glyphs",
			Err:     fmt.Errorf("font %s is not registered", font.Family),
		}
	}

	buf, ok := d.pending[pageNum]
	if !ok {
		buf = &bytes.Buffer{}
		d.pending[pageNum] = buf
	}

	buf.WriteString("BT\n0 0 0 rg\n")
	fmt.Fprintf(buf, "/%s %s Tf\n", font.Resource, formatNumber(size))
	for _, g := range glyphs {
		fmt.Fprintf(buf, "1 0 0 1 %s %s Tm\n", formatNumber(g.X), formatNumber(g.Y))
		buf.WriteString(EscapeString([]byte{fontmetrics.EncodeRune(g.Char)}))
		buf.WriteString(" Tj\n")
	}
	buf.WriteString("ET\n")
	return nil
}

// Write attaches pending drawing to the page tree and serializes the document
func (d *PDFCPUDocument) Write(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return &WrapperError{Library: LibraryPDFCPU, Op: "write", Err: ErrDocumentClosed.Err}
	}

	pages := make([]int, 0, len(d.pending))
	for p := range d.pending {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	for _, p := range pages {
		if err := d.attach(p, d.pending[p].Bytes()); err != nil {
			return &WrapperError{Library: LibraryPDFCPU, Op: "write", Err: fmt.Errorf("page %d: %w", p, err)}
		}
		delete(d.pending, p)
	}

	if err := api.WriteContext(d.ctx, w); err != nil {
		return &WrapperError{Library: LibraryPDFCPU, Op: "write", Err: err}
	}
	return nil
}

// PageSize returns the media box dimensions of a page
func (d *PDFCPUDocument) PageSize(pageNum int) (*PageSize, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkPage("page_size", pageNum); err != nil {
		return nil, err
	}
	_, _, inh, err := d.ctx.PageDict(pageNum, false)
	if err != nil {
		return nil, &WrapperError{Library: LibraryPDFCPU, Op: "page_size", Err: err}
	}
	if inh == nil || inh.MediaBox == nil {
		return nil, &WrapperError{Library: LibraryPDFCPU, Op: "page_size", Err: fmt.Errorf("page %d has no media box", pageNum)}
	}
	mb := inh.MediaBox
	return &PageSize{
		Width:  mb.UR.X - mb.LL.X,
		Height: mb.UR.Y - mb.LL.Y,
		Unit:   "pt",
	}, nil
}

func (d *PDFCPUDocument) checkPage(op string, pageNum int) error {
	if d.closed {
		return &WrapperError{Library: LibraryPDFCPU, Op: op, Err: ErrDocumentClosed.Err}
	}
	if pageNum < 1 || pageNum > d.ctx.PageCount {
		return &WrapperError{
			Library: LibraryPDFCPU,
			Op:      op,
			Err:     pdferrors.PageOutOfRange(op, pageNum, d.ctx.PageCount),
		}
	}
	return nil
}

// attach wraps the page's existing content in q/Q and appends content after
// it, translated to the media box origin
func (d *PDFCPUDocument) attach(pageNum int, content []byte) error {
	pageDict, _, inh, err := d.ctx.PageDict(pageNum, true)
	if err != nil {
		return err
	}
	if pageDict == nil {
		return fmt.Errorf("missing page dictionary")
	}

	var body bytes.Buffer
	body.WriteString("Q\nq\n")
	if inh != nil && inh.MediaBox != nil && (inh.MediaBox.LL.X != 0 || inh.MediaBox.LL.Y != 0) {
		fmt.Fprintf(&body, "1 0 0 1 %s %s cm\n", formatNumber(inh.MediaBox.LL.X), formatNumber(inh.MediaBox.LL.Y))
	}
	body.Write(content)
	body.WriteString("Q\n")

	prefixRef, err := d.newContentStream([]byte("q\n"))
	if err != nil {
		return err
	}
	bodyRef, err := d.newContentStream(body.Bytes())
	if err != nil {
		return err
	}

	existing, err := d.contentRefs(pageDict)
	if err != nil {
		return err
	}
	contents := types.Array{*prefixRef}
	contents = append(contents, existing...)
	contents = append(contents, *bodyRef)
	pageDict["Contents"] = contents

	resources, err := d.resourcesWithFonts(pageDict, inh)
	if err != nil {
		return err
	}
	pageDict["Resources"] = resources
	return nil
}

func (d *PDFCPUDocument) newContentStream(buf []byte) (*types.IndirectRef, error) {
	sd, err := d.ctx.NewStreamDictForBuf(buf)
	if err != nil {
		return nil, err
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return d.ctx.IndRefForNewObject(*sd)
}

// contentRefs returns the page's current content streams as array entries
func (d *PDFCPUDocument) contentRefs(pageDict types.Dict) (types.Array, error) {
	obj, found := pageDict.Find("Contents")
	if !found || obj == nil {
		return nil, nil
	}

	switch o := obj.(type) {
	case types.Array:
		return append(types.Array(nil), o...), nil
	case types.IndirectRef:
		resolved, err := d.ctx.Dereference(o)
		if err != nil {
			return nil, err
		}
		if arr, ok := resolved.(types.Array); ok {
			return append(types.Array(nil), arr...), nil
		}
		return types.Array{o}, nil
	default:
		return nil, fmt.Errorf("unexpected Contents entry %T", obj)
	}
}

// resourcesWithFonts returns a copy of the page's effective resources with
// every registered font added to the Font subdictionary
func (d *PDFCPUDocument) resourcesWithFonts(pageDict types.Dict, inh *model.InheritedPageAttrs) (types.Dict, error) {
	res := types.Dict{}
	if inh != nil {
		for k, v := range inh.Resources {
			res[k] = v
		}
	}
	if obj, found := pageDict.Find("Resources"); found && obj != nil {
		own, err := d.ctx.DereferenceDict(obj)
		if err != nil {
			return nil, err
		}
		for k, v := range own {
			res[k] = v
		}
	}

	fonts := types.Dict{}
	if obj, found := res.Find("Font"); found && obj != nil {
		existing, err := d.ctx.DereferenceDict(obj)
		if err != nil {
			return nil, err
		}
		for k, v := range existing {
			fonts[k] = v
		}
	}
	for _, e := range d.fonts {
		fonts[e.handle.Resource] = e.ref
	}
	res["Font"] = fonts
	return res, nil
}

// PDFCPUPage implements PDFPage for a composer page
type PDFCPUPage struct {
	doc     *PDFCPUDocument
	pageNum int
}

// GetNumber returns the page number
func (p *PDFCPUPage) GetNumber() int {
	return p.pageNum
}

// GetSize returns the media box size of the page
func (p *PDFCPUPage) GetSize() (*PageSize, error) {
	return p.doc.PageSize(p.pageNum)
}

// GetText reads the page's text, including anything drawn so far
func (p *PDFCPUPage) GetText() ([]TextElement, error) {
	return p.doc.ExtractText(p.pageNum)
}

// formatNumber prints v with at most four decimals and no exponent
func formatNumber(v float64) string {
	r := math.Round(v*10000) / 10000
	if r == 0 {
		r = 0 // drop negative zero
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// EscapeString renders b as a PDF literal string
func EscapeString(b []byte) string {
	var sb bytes.Buffer
	sb.WriteByte('(')
	for _, c := range b {
		switch {
		case c == '(' || c == ')' || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c < 0x20 || c > 0x7e:
			fmt.Fprintf(&sb, "\\%03o", c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte(')')
	return sb.String()
}
