package overlay

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-overlay/internal/document"
	"github.com/a3tai/mcp-pdf-overlay/internal/fontmetrics"
	pdferrors "github.com/a3tai/mcp-pdf-overlay/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-overlay/internal/pdf/pdftest"
	"github.com/a3tai/mcp-pdf-overlay/internal/pdf/wrapper"
)

var tedBear = &document.FieldType{ID: 1, Name: "name", Kind: document.KindText, Placeholder: "Ted Bear"}

func section(page, start, end int, family document.FontFamily, size, spacing float64) document.Section {
	return document.Section{
		PageNumber: page,
		BoundingBox: document.BoundingBox{
			XPosition: 100, YPosition: 500, Width: 80, Height: 20, PaddingX: 3, PaddingY: 3,
		},
		CharacterStart: start,
		CharacterEnd:   end,
		Style: document.SectionStyle{
			FontSize:         size,
			FontFamily:       family,
			CharacterSpacing: spacing,
			LineHeight:       size,
		},
	}
}

func field(ft *document.FieldType, sections ...document.Section) document.FormField {
	return document.FormField{DocumentTypeID: 1, FieldType: ft, Sections: sections}
}

func readBack(t *testing.T, pdf []byte, page int) []wrapper.TextElement {
	t.Helper()
	doc, err := wrapper.NewLedongthucLibrary(wrapper.DefaultFactoryConfig()).OpenBytes(pdf)
	require.NoError(t, err)
	defer doc.Close()
	elements, err := doc.ExtractText(page)
	require.NoError(t, err)
	return elements
}

func textOf(elements []wrapper.TextElement) string {
	s := ""
	for _, e := range elements {
		s += e.Text
	}
	return s
}

func TestLayoutSection_TedBear(t *testing.T) {
	metrics := fontmetrics.NewProvider(8)

	run, err := LayoutSection(tedBear, section(1, 0, 3, document.FontHelvetica, 12, 0), metrics)
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, "Ted", run.Text)
	want := []Glyph{
		{Rune: 'T', X: 103, Y: 523},
		{Rune: 'e', X: 103 + 7.332, Y: 523},
		{Rune: 'd', X: 103 + 7.332 + 6.672, Y: 523},
	}
	if diff := cmp.Diff(want, run.Glyphs, cmpFloat); diff != "" {
		t.Errorf("glyphs mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 103+7.332+6.672+6.672, run.EndX, 1e-9)
}

var cmpFloat = cmp.Comparer(func(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
})

func TestLayoutSection_CursorIsSumOfAdvances(t *testing.T) {
	metrics := fontmetrics.NewProvider(8)
	ft := &document.FieldType{ID: 9, Kind: document.KindText, Placeholder: "Quick brown fox, 123 €é?"}

	for _, family := range document.FontFamilies() {
		for _, spacing := range []float64{0, 1.5, -0.25} {
			s := section(1, 0, ft.Length(), family, 11, spacing)
			run, err := LayoutSection(ft, s, metrics)
			require.NoError(t, err)

			m, err := metrics.Measure(family, 11)
			require.NoError(t, err)

			x := s.BoundingBox.XPosition + s.BoundingBox.PaddingX
			for _, r := range ft.Placeholder {
				x += m.AdvanceWidth(r) + spacing
			}
			assert.InDelta(t, x, run.EndX, 1e-9, "%s spacing %v", family, spacing)
			assert.Len(t, run.Glyphs, ft.Length())
		}
	}
}

func TestLayoutSection_Ranges(t *testing.T) {
	metrics := fontmetrics.NewProvider(8)

	tests := []struct {
		name       string
		start, end int
		want       string
	}{
		{name: "middle", start: 4, end: 8, want: "Bear"},
		{name: "empty", start: 2, end: 2, want: ""},
		{name: "end_clamped", start: 4, end: 40, want: "Bear"},
		{name: "start_past_end", start: 12, end: 14, want: ""},
		{name: "inverted", start: 5, end: 1, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, err := LayoutSection(tedBear, section(1, tt.start, tt.end, document.FontCourier, 10, 0), metrics)
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, run)
				return
			}
			require.NotNil(t, run)
			assert.Equal(t, tt.want, run.Text)
		})
	}
}

func TestLayoutSection_Errors(t *testing.T) {
	metrics := fontmetrics.NewProvider(8)

	_, err := LayoutSection(tedBear, section(1, 0, 3, "Comic Sans", 12, 0), metrics)
	assert.True(t, errors.Is(err, pdferrors.ErrUnknownFont))

	_, err = LayoutSection(tedBear, section(1, 0, 3, document.FontHelvetica, 0, 0), metrics)
	assert.True(t, errors.Is(err, pdferrors.ErrInvalidGeometry))

	_, err = LayoutSection(nil, section(1, 0, 3, document.FontHelvetica, 12, 0), metrics)
	assert.True(t, errors.Is(err, pdferrors.ErrInvalidDocument))

	// empty ranges never measure
	run, err := LayoutSection(tedBear, section(1, 3, 3, "Comic Sans", 12, 0), metrics)
	assert.NoError(t, err)
	assert.Nil(t, run)
}

func TestLayout_OrderAndFilter(t *testing.T) {
	metrics := fontmetrics.NewProvider(8)
	tax := &document.FieldType{ID: 3, Kind: document.KindNumber, Placeholder: "123456789"}

	fields := document.FormFields{
		field(tedBear,
			section(1, 0, 3, document.FontHelvetica, 12, 0),
			section(2, 4, 8, document.FontTimesRoman, 12, 0),
			section(1, 3, 3, document.FontHelvetica, 12, 0),
		),
		field(nil, section(1, 0, 1, document.FontHelvetica, 12, 0)),
		field(tax,
			section(1, 0, 5, document.FontCourier, 10, 1),
			section(1, 5, 9, document.FontCourier, 10, 1),
		),
	}

	runs, err := Layout(fields, metrics, LayoutOptions{})
	require.NoError(t, err)
	got := make([]string, len(runs))
	for i, r := range runs {
		got[i] = r.Text
	}
	assert.Equal(t, []string{"Ted", "Bear", "12345", "6789"}, got)
	assert.Equal(t, 1, runs[1].Section)
	assert.Equal(t, 2, runs[1].Page)
	assert.Equal(t, 1, runs[3].Section)

	runs, err = Layout(fields, metrics, LayoutOptions{TargetPage: 2})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "Bear", runs[0].Text)

	again, err := Layout(fields, metrics, LayoutOptions{TargetPage: 2})
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(runs, again))

	fields[2].Sections[1].Style.FontFamily = "Wingdings"
	_, err = Layout(fields, metrics, LayoutOptions{})
	assert.True(t, errors.Is(err, pdferrors.ErrUnknownFont))
	assert.ErrorContains(t, err, "field 3 section 1")
}

func TestRenderer_Render(t *testing.T) {
	metrics := fontmetrics.NewProvider(8)
	renderer := NewRenderer(nil, metrics)
	template := pdftest.Blank(2)

	fields := document.FormFields{
		field(tedBear, section(1, 0, 3, document.FontHelvetica, 12, 0)),
	}

	out, err := renderer.Render(context.Background(), template, fields)
	require.NoError(t, err)

	elements := readBack(t, out, 1)
	assert.Equal(t, "Ted", textOf(elements))
	require.Len(t, elements, 3)
	assert.Equal(t, "Helvetica", elements[0].Font)
	assert.InDelta(t, 103, elements[0].X, 1e-4)
	assert.InDelta(t, 523, elements[0].Y, 1e-4)
	assert.InDelta(t, 110.332, elements[1].X, 1e-4)
	assert.InDelta(t, 117.004, elements[2].X, 1e-4)

	assert.Empty(t, readBack(t, out, 2))
}

func TestRenderer_SplitSectionsAcrossPages(t *testing.T) {
	metrics := fontmetrics.NewProvider(8)
	renderer := NewRenderer(nil, metrics)

	template, err := pdftest.Generated(2, "")
	require.NoError(t, err)

	fields := document.FormFields{
		field(tedBear,
			section(1, 0, 4, document.FontHelvetica, 12, 0),
			section(2, 4, 8, document.FontTimesRoman, 14, 2),
		),
	}

	res, err := renderer.Compose(context.Background(), template, fields)
	require.NoError(t, err)
	assert.Equal(t, 2, res.PageCount)
	assert.Equal(t, []document.FontFamily{document.FontHelvetica, document.FontTimesRoman}, res.Fonts)

	assert.Equal(t, "Ted ", textOf(readBack(t, res.PDF, 1)))
	second := readBack(t, res.PDF, 2)
	assert.Equal(t, "Bear", textOf(second))
	assert.Equal(t, "Times-Roman", second[0].Font)
}

func TestRenderer_TargetPage(t *testing.T) {
	renderer := NewRenderer(nil, fontmetrics.NewProvider(8))
	fields := document.FormFields{
		field(tedBear,
			section(1, 0, 3, document.FontHelvetica, 12, 0),
			section(2, 4, 8, document.FontHelvetica, 12, 0),
		),
	}

	out, err := renderer.Render(context.Background(), pdftest.Blank(2), fields, WithTargetPage(2))
	require.NoError(t, err)
	assert.Empty(t, readBack(t, out, 1))
	assert.Equal(t, "Bear", textOf(readBack(t, out, 2)))

	_, err = renderer.Render(context.Background(), pdftest.Blank(2), fields, WithTargetPage(3))
	assert.True(t, errors.Is(err, pdferrors.ErrPageOutOfRange))
}

func TestRenderer_Failures(t *testing.T) {
	renderer := NewRenderer(nil, fontmetrics.NewProvider(8))
	template := pdftest.Blank(1)

	tests := []struct {
		name   string
		fields document.FormFields
		want   error
	}{
		{
			name:   "page_out_of_range",
			fields: document.FormFields{field(tedBear, section(2, 0, 3, document.FontHelvetica, 12, 0))},
			want:   pdferrors.ErrPageOutOfRange,
		},
		{
			name:   "page_zero",
			fields: document.FormFields{field(tedBear, section(0, 0, 3, document.FontHelvetica, 12, 0))},
			want:   pdferrors.ErrPageOutOfRange,
		},
		{
			name:   "empty_range_still_checks_page",
			fields: document.FormFields{field(tedBear, section(4, 1, 1, document.FontHelvetica, 12, 0))},
			want:   pdferrors.ErrPageOutOfRange,
		},
		{
			name: "unknown_font",
			fields: document.FormFields{field(tedBear,
				section(1, 0, 3, document.FontHelvetica, 12, 0),
				section(1, 3, 8, "Papyrus", 12, 0),
			)},
			want: pdferrors.ErrUnknownFont,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := renderer.Render(context.Background(), template, tt.fields)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Nil(t, out)
		})
	}

	t.Run("invalid_template", func(t *testing.T) {
		out, err := renderer.Render(context.Background(), []byte("%PDF-1.4 broken"), nil)
		assert.True(t, errors.Is(err, pdferrors.ErrInvalidDocument))
		assert.Nil(t, out)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := renderer.Render(ctx, template, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRenderer_EmptyRangeDrawsNothing(t *testing.T) {
	renderer := NewRenderer(nil, fontmetrics.NewProvider(8))
	fields := document.FormFields{field(tedBear, section(1, 2, 2, document.FontHelvetica, 12, 0))}

	res, err := renderer.Compose(context.Background(), pdftest.Blank(1), fields)
	require.NoError(t, err)
	assert.Empty(t, res.Runs)
	assert.Empty(t, res.Fonts)
	assert.Empty(t, readBack(t, res.PDF, 1))
}

func TestRenderer_Idempotent(t *testing.T) {
	renderer := NewRenderer(nil, fontmetrics.NewProvider(8))
	template := pdftest.Build(pdftest.Page{Content: "BT /F1 9 Tf 1 0 0 1 40 40 Tm (Form) Tj ET"})
	fields := document.FormFields{
		field(tedBear, section(1, 0, 8, document.FontCourier, 10, 0.5)),
	}

	first, err := renderer.Render(context.Background(), template, fields)
	require.NoError(t, err)
	second, err := renderer.Render(context.Background(), template, fields)
	require.NoError(t, err)

	a, b := readBack(t, first, 1), readBack(t, second, 1)
	assert.Empty(t, cmp.Diff(a, b))
	assert.Equal(t, "FormTed Bear", textOf(a))

	// a second pass over the output keeps the earlier overlay and adds nothing
	again, err := renderer.Render(context.Background(), first, nil)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(a, readBack(t, again, 1)))
}
