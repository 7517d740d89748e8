package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/a3tai/mcp-pdf-overlay/internal/document"
	"github.com/a3tai/mcp-pdf-overlay/internal/fontmetrics"
	"github.com/a3tai/mcp-pdf-overlay/internal/overlay"
	"github.com/a3tai/mcp-pdf-overlay/internal/pdf/wrapper"
)

// RenderReport describes one batch render
type RenderReport struct {
	Template   string                `json:"template"`
	Definition string                `json:"definition"`
	Output     string                `json:"output"`
	Size       int                   `json:"size"`
	PageCount  int                   `json:"page_count"`
	Sections   int                   `json:"sections"`
	Fonts      []document.FontFamily `json:"fonts"`
	Runs       []overlay.Run         `json:"runs,omitempty"`
}

type options struct {
	in          string
	fields      string
	catalog     string
	out         string
	page        int
	format      string
	verbose     bool
	maxFileSize int64
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("pdf_overlay_render", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVarP(&opts.in, "in", "i", "", "Template PDF")
	fs.StringVarP(&opts.fields, "fields", "f", "", "Definition JSON with the fields to draw")
	fs.StringVarP(&opts.out, "out", "o", "", "Where to write the filled PDF")
	fs.StringVar(&opts.catalog, "catalog", "", "Catalog file whose field types replace the ones stored in --fields")
	fs.IntVar(&opts.page, "page", 0, "Draw only the sections of this page")
	fs.StringVar(&opts.format, "format", "text", "Report format: text, json")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "List every drawn run")
	fs.Int64Var(&opts.maxFileSize, "maxfilesize", wrapper.DefaultMaxFileSize, "Maximum template size in bytes")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "pdf_overlay_render - draw a saved field definition onto a template")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "USAGE:")
		fmt.Fprintln(stderr, "  pdf_overlay_render --in template.pdf --fields fields.json --out filled.pdf")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "OPTIONS:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n\n", err)
		fs.Usage()
		return 2
	}
	if opts.in == "" || opts.fields == "" || opts.out == "" {
		fmt.Fprintf(stderr, "Error: --in, --fields and --out are required\n\n")
		fs.Usage()
		return 2
	}
	if opts.format != "text" && opts.format != "json" {
		fmt.Fprintf(stderr, "Error: unknown format %q\n", opts.format)
		return 2
	}

	report, err := render(context.Background(), opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := writeReport(stdout, report, opts); err != nil {
		fmt.Fprintf(stderr, "Error writing report: %v\n", err)
		return 1
	}
	return 0
}

func render(ctx context.Context, opts options) (*RenderReport, error) {
	in, err := filepath.Abs(opts.in)
	if err != nil {
		return nil, err
	}
	out, err := filepath.Abs(opts.out)
	if err != nil {
		return nil, err
	}
	if in == out {
		return nil, fmt.Errorf("output path must differ from template path")
	}

	def, err := document.LoadDefinitionFile(opts.fields)
	if err != nil {
		return nil, err
	}
	if opts.catalog != "" {
		catalog, err := document.LoadCatalogFile(opts.catalog)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		if def, err = catalog.Bind(def); err != nil {
			return nil, err
		}
	}

	cfg := wrapper.DefaultFactoryConfig()
	cfg.MaxFileSize = opts.maxFileSize
	factory := wrapper.NewPDFLibraryFactoryWithConfig(cfg)

	template, err := factory.ReadTemplate(in)
	if err != nil {
		return nil, err
	}

	var renderOpts []overlay.RenderOption
	if opts.page > 0 {
		renderOpts = append(renderOpts, overlay.WithTargetPage(opts.page))
	}
	renderer := overlay.NewRenderer(factory, fontmetrics.NewProvider(16))
	res, err := renderer.Compose(ctx, template, def.Fields, renderOpts...)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(out, res.PDF, 0o644); err != nil {
		return nil, err
	}

	return &RenderReport{
		Template:   in,
		Definition: opts.fields,
		Output:     out,
		Size:       len(res.PDF),
		PageCount:  res.PageCount,
		Sections:   def.Fields.SectionCount(),
		Fonts:      res.Fonts,
		Runs:       res.Runs,
	}, nil
}

func writeReport(w io.Writer, r *RenderReport, opts options) error {
	if !opts.verbose {
		r.Runs = nil
	}
	if opts.format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Fprintf(w, "Template: %s\n", r.Template)
	fmt.Fprintf(w, "Output: %s (%d bytes, %d pages)\n", r.Output, r.Size, r.PageCount)
	fmt.Fprintf(w, "Sections: %d\n", r.Sections)
	fmt.Fprintf(w, "Fonts: %v\n", r.Fonts)
	for _, run := range r.Runs {
		fmt.Fprintf(w, "  page %d field %d section %d: %q %s %.1fpt\n",
			run.Page, run.FieldTypeID, run.Section, run.Text, run.Font, run.Size)
	}
	return nil
}
