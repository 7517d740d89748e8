// Package fontmetrics measures the standard PDF fonts: per-character advance
// widths from the core font width tables and line height from the AFM
// ascender and descender.
package fontmetrics

import (
	"log"
	"sync"

	"codeberg.org/go-pdf/fpdf"

	"github.com/a3tai/mcp-pdf-overlay/internal/document"
	pdferrors "github.com/a3tai/mcp-pdf-overlay/internal/pdf/errors"
)

// fontFace is the static description of one standard font
type fontFace struct {
	coreName  string // fpdf core font family
	ascender  float64
	descender float64
}

// AFM vertical metrics in 1/1000 em
var faces = map[document.FontFamily]fontFace{
	document.FontHelvetica:  {coreName: "Helvetica", ascender: 718, descender: -207},
	document.FontCourier:    {coreName: "Courier", ascender: 629, descender: -157},
	document.FontTimesRoman: {coreName: "Times", ascender: 683, descender: -217},
}

// Metrics are the measurements of one font at one size, in points
type Metrics struct {
	Family     document.FontFamily `json:"family"`
	Size       float64             `json:"size"`
	Ascent     float64             `json:"ascent"`
	Descent    float64             `json:"descent"`
	LineHeight float64             `json:"line_height"`
	widths     [256]float64
}

// AdvanceWidth returns the horizontal advance of r. Characters outside
// WinAnsi measure as '?'.
func (m *Metrics) AdvanceWidth(r rune) float64 {
	return m.widths[EncodeRune(r)]
}

// StringWidth is the sum of the advance widths of s
func (m *Metrics) StringWidth(s string) float64 {
	w := 0.0
	for _, r := range s {
		w += m.AdvanceWidth(r)
	}
	return w
}

// Provider loads each standard font's width table at most once and memoizes
// scaled metrics per family and size. It is safe for concurrent use.
type Provider struct {
	mu     sync.Mutex
	pdf    *fpdf.Fpdf
	tables map[document.FontFamily]*[256]int
	loads  map[document.FontFamily]int
	cache  *Cache
	debug  bool
}

// Option configures a Provider
type Option func(*Provider)

// WithDebug logs cache evictions
func WithDebug(debug bool) Option {
	return func(p *Provider) { p.debug = debug }
}

// NewProvider creates a provider whose metrics cache holds cacheSize entries
func NewProvider(cacheSize int, opts ...Option) *Provider {
	p := &Provider{
		pdf:    fpdf.New("P", "pt", "Letter", ""),
		tables: make(map[document.FontFamily]*[256]int),
		loads:  make(map[document.FontFamily]int),
		cache:  NewCache(cacheSize),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.debug {
		p.cache.OnEvict(func(k Key) {
			log.Printf("fontmetrics: evicted %s", k)
		})
	}
	return p
}

// Measure returns the metrics of family at size
func (p *Provider) Measure(family document.FontFamily, size float64) (*Metrics, error) {
	face, ok := faces[family]
	if !ok {
		return nil, pdferrors.UnknownFont("measure", string(family))
	}
	if size <= 0 {
		return nil, pdferrors.InvalidGeometry("measure", "font size %.2f must be positive", size)
	}

	key := Key{Family: family, Size: size}
	if m, ok := p.cache.Get(key); ok {
		return m, nil
	}

	table, err := p.table(family, face)
	if err != nil {
		return nil, err
	}

	m := &Metrics{
		Family:  family,
		Size:    size,
		Ascent:  face.ascender * size / 1000,
		Descent: -face.descender * size / 1000,
	}
	m.LineHeight = m.Ascent + m.Descent
	for i, w := range table {
		m.widths[i] = float64(w) * size / 1000
	}
	p.cache.Put(key, m)
	return m, nil
}

// LineHeight returns ascent plus descent of family at size
func (p *Provider) LineHeight(family document.FontFamily, size float64) (float64, error) {
	m, err := p.Measure(family, size)
	if err != nil {
		return 0, err
	}
	return m.LineHeight, nil
}

// Loads reports how many times the width table of family has been loaded
func (p *Provider) Loads(family document.FontFamily) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loads[family]
}

// CacheStats returns statistics of the metrics cache
func (p *Provider) CacheStats() CacheStats {
	return p.cache.Stats()
}

// table returns the glyph-unit width of every WinAnsi code of family
func (p *Provider) table(family document.FontFamily, face fontFace) (*[256]int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.tables[family]; ok {
		return t, nil
	}

	p.pdf.SetFont(face.coreName, "", 1000)
	if p.pdf.Err() {
		err := p.pdf.Error()
		p.pdf.ClearError()
		return nil, pdferrors.Wrap(pdferrors.KindUnknownFont, "load font "+string(family), err)
	}

	t := new([256]int)
	for code := 1; code < 256; code++ {
		t[code] = p.pdf.GetStringSymbolWidth(string([]byte{byte(code)}))
	}
	p.tables[family] = t
	p.loads[family]++
	return t, nil
}
