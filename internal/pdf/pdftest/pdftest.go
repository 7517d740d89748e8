// Package pdftest builds small PDF templates for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"time"

	"codeberg.org/go-pdf/fpdf"
)

// Letter is the US Letter media box in points
var Letter = [4]float64{0, 0, 612, 792}

// Page describes one page of a hand-built template
type Page struct {
	MediaBox [4]float64
	// Content is an uncompressed content stream. It may use /F1 (Helvetica).
	Content string
}

// Build writes a classic-xref PDF with the given pages. Pages without a
// media box inherit Letter from the page tree.
func Build(pages ...Page) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	// 1 catalog, 2 pages, 3 font, then page and content pairs
	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [%s] >>", kids, len(pages), box(Letter)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, p := range pages {
		page := fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R", 5+2*i)
		if p.MediaBox != [4]float64{} {
			page += fmt.Sprintf(" /MediaBox [%s]", box(p.MediaBox))
		}
		obj(page + " >>")
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(p.Content), p.Content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// Blank returns n empty Letter pages
func Blank(n int) []byte {
	pages := make([]Page, n)
	return Build(pages...)
}

// Generated renders a Letter template with fpdf, writing label near the top
// of every page
func Generated(n int, label string) ([]byte, error) {
	doc := fpdf.New("P", "pt", "Letter", "")
	doc.SetCreationDate(time.Date(2022, 4, 1, 0, 0, 0, 0, time.UTC))
	doc.SetModificationDate(time.Date(2022, 4, 1, 0, 0, 0, 0, time.UTC))
	doc.SetFont("Helvetica", "", 10)
	for i := 0; i < n; i++ {
		doc.AddPage()
		if label != "" {
			doc.Text(36, 36, fmt.Sprintf("%s %d", label, i+1))
		}
	}

	var out bytes.Buffer
	if err := doc.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func box(b [4]float64) string {
	return fmt.Sprintf("%g %g %g %g", b[0], b[1], b[2], b[3])
}
