package pdf

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/a3tai/mcp-pdf-overlay/internal/document"
	"github.com/a3tai/mcp-pdf-overlay/internal/overlay"
	"github.com/a3tai/mcp-pdf-overlay/internal/pdf/security"
	"github.com/a3tai/mcp-pdf-overlay/internal/pdf/wrapper"
)

// Service handles template and output files for the overlay engine
type Service struct {
	maxFileSize   int64
	factory       *wrapper.PDFLibraryFactory
	renderer      *overlay.Renderer
	validator     *Validator
	pathValidator *security.PathValidator
	serverInfo    *ServerInfo
	catalog       *document.Catalog
	debug         bool
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithDebug enables debug logging in the service and its renderer
func WithDebug(debug bool) ServiceOption {
	return func(s *Service) { s.debug = debug }
}

// WithCatalog binds every rendered definition to the catalog's field types
func WithCatalog(c *document.Catalog) ServiceOption {
	return func(s *Service) { s.catalog = c }
}

// NewService creates a service confined to configuredDirectory that measures
// text with metrics
func NewService(maxFileSize int64, configuredDirectory string, metrics overlay.Measurer, opts ...ServiceOption) (*Service, error) {
	if metrics == nil {
		return nil, fmt.Errorf("metrics provider cannot be nil")
	}
	pathValidator, err := security.NewPathValidator(configuredDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	s := &Service{
		maxFileSize:   maxFileSize,
		pathValidator: pathValidator,
	}
	for _, opt := range opts {
		opt(s)
	}

	cfg := wrapper.DefaultFactoryConfig()
	cfg.MaxFileSize = maxFileSize
	cfg.DebugMode = s.debug
	s.factory = wrapper.NewPDFLibraryFactoryWithConfig(cfg)
	s.renderer = overlay.NewRenderer(s.factory, metrics, overlay.WithDebugLogging(s.debug))
	s.validator = NewValidator(maxFileSize, s.factory)
	s.serverInfo = NewServerInfo(s)
	return s, nil
}

// ValidateTemplate checks that a file can be used as a template
func (s *Service) ValidateTemplate(req ValidateTemplateRequest) (*ValidateTemplateResult, error) {
	path, err := s.pathValidator.Resolve(req.Path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	req.Path = path
	return s.validator.ValidateFile(req)
}

// LoadTemplate resolves and reads a template
func (s *Service) LoadTemplate(path string) (string, []byte, error) {
	resolved, err := s.pathValidator.Resolve(path)
	if err != nil {
		return "", nil, fmt.Errorf("security validation failed: %w", err)
	}
	data, err := s.factory.ReadTemplate(resolved)
	if err != nil {
		return "", nil, err
	}
	return resolved, data, nil
}

// PageSizes returns the size of every page of a template at scale 1
func (s *Service) PageSizes(req PageSizesRequest) (*PageSizesResult, error) {
	path, data, err := s.LoadTemplate(req.Path)
	if err != nil {
		return nil, err
	}
	pages, err := s.PageSizesOf(data)
	if err != nil {
		return nil, err
	}
	return &PageSizesResult{Path: path, Pages: pages}, nil
}

// PageSizesOf returns the page sizes of an in-memory PDF
func (s *Service) PageSizesOf(data []byte) ([]PageInfo, error) {
	doc, err := s.factory.OpenReader(data, wrapper.OperationValidation)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	count, err := doc.GetPageCount()
	if err != nil {
		return nil, err
	}

	pages := make([]PageInfo, 0, count)
	for n := 1; n <= count; n++ {
		page, err := doc.GetPage(n)
		if err != nil {
			return nil, err
		}
		size, err := page.GetSize()
		if err != nil {
			return nil, err
		}
		pages = append(pages, PageInfo{Number: n, Width: size.Width, Height: size.Height})
	}
	return pages, nil
}

// Render composites fields onto an in-memory template
func (s *Service) Render(ctx context.Context, template []byte, fields document.FormFields, opts ...overlay.RenderOption) (*overlay.Result, error) {
	return s.renderer.Compose(ctx, template, fields, opts...)
}

// Renderer returns the compositor the service renders with
func (s *Service) Renderer() *overlay.Renderer {
	return s.renderer
}

// RenderFile composites a definition onto a template and writes the result.
// The output file is replaced only once rendering has fully succeeded.
func (s *Service) RenderFile(ctx context.Context, req RenderFileRequest) (*RenderFileResult, error) {
	templatePath, template, err := s.LoadTemplate(req.TemplatePath)
	if err != nil {
		return nil, err
	}

	outputPath, err := s.pathValidator.ResolveOutput(req.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	if outputPath == templatePath {
		return nil, fmt.Errorf("output path must differ from template path")
	}

	def, err := s.definition(req)
	if err != nil {
		return nil, err
	}

	var opts []overlay.RenderOption
	if req.TargetPage > 0 {
		opts = append(opts, overlay.WithTargetPage(req.TargetPage))
	}

	res, err := s.renderer.Compose(ctx, template, def.Fields, opts...)
	if err != nil {
		return nil, err
	}

	if err := writeFileAtomic(outputPath, res.PDF); err != nil {
		return nil, err
	}

	if s.debug {
		log.Printf("pdf: wrote %s (%d bytes, %d runs)", outputPath, len(res.PDF), len(res.Runs))
	}
	s.serverInfo.cache.Invalidate(filepath.Dir(outputPath))

	return &RenderFileResult{
		TemplatePath: templatePath,
		OutputPath:   outputPath,
		Size:         int64(len(res.PDF)),
		PageCount:    res.PageCount,
		Sections:     def.Fields.SectionCount(),
		Runs:         res.Runs,
		Fonts:        res.Fonts,
	}, nil
}

func (s *Service) definition(req RenderFileRequest) (document.Definition, error) {
	var def document.Definition
	switch {
	case req.Definition != nil:
		if err := req.Definition.Validate(); err != nil {
			return document.Definition{}, err
		}
		def = *req.Definition
	case req.DefinitionPath != "":
		loaded, err := s.LoadDefinition(req.DefinitionPath)
		if err != nil {
			return document.Definition{}, err
		}
		def = loaded
	default:
		return document.Definition{}, fmt.Errorf("either a definition or a definition path is required")
	}

	if s.catalog == nil {
		return def, nil
	}
	return s.catalog.Bind(def)
}

// LoadDefinition resolves and parses a saved definition
func (s *Service) LoadDefinition(path string) (document.Definition, error) {
	resolved, err := s.pathValidator.Resolve(path)
	if err != nil {
		return document.Definition{}, fmt.Errorf("security validation failed: %w", err)
	}
	return document.LoadDefinitionFile(resolved)
}

// SaveDefinition writes def as JSON to path and returns the resolved path
func (s *Service) SaveDefinition(path string, def document.Definition) (string, error) {
	resolved, err := s.pathValidator.ResolveOutput(path)
	if err != nil {
		return "", fmt.Errorf("security validation failed: %w", err)
	}
	data, err := def.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to encode definition: %w", err)
	}
	if err := writeFileAtomic(resolved, data); err != nil {
		return "", err
	}
	return resolved, nil
}

// ReadText reads back the characters drawn on a PDF
func (s *Service) ReadText(req ReadTextRequest) (*ReadTextResult, error) {
	path, data, err := s.LoadTemplate(req.Path)
	if err != nil {
		return nil, err
	}

	doc, err := s.factory.OpenReader(data, wrapper.OperationTextExtraction)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	count, err := doc.GetPageCount()
	if err != nil {
		return nil, err
	}

	first, last := 1, count
	if req.Page != 0 {
		first, last = req.Page, req.Page
	}

	result := &ReadTextResult{Path: path}
	for n := first; n <= last; n++ {
		elements, err := doc.ExtractText(n)
		if err != nil {
			return nil, err
		}
		var sb strings.Builder
		for _, e := range elements {
			sb.WriteString(e.Text)
		}
		result.Pages = append(result.Pages, PageText{Number: n, Text: sb.String(), Elements: elements})
	}
	return result, nil
}

// ServerInfo returns comprehensive server information and usage guidance
func (s *Service) ServerInfo(ctx context.Context, serverName, version, defaultDirectory string) (*ServerInfoResult, error) {
	return s.serverInfo.GetServerInfo(ctx, serverName, version, defaultDirectory)
}

// ResolvePath resolves path against the configured directory
func (s *Service) ResolvePath(path string) (string, error) {
	return s.pathValidator.Resolve(path)
}

// ResolveOutputPath resolves a file about to be written
func (s *Service) ResolveOutputPath(path string) (string, error) {
	return s.pathValidator.ResolveOutput(path)
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.maxFileSize
}

// IsValidPDF performs a quick validation check on a file
func (s *Service) IsValidPDF(filePath string) bool {
	path, err := s.pathValidator.Resolve(filePath)
	if err != nil {
		return false
	}
	return s.validator.IsValidPDF(path)
}

// ValidateConfiguration validates the service configuration
func (s *Service) ValidateConfiguration() error {
	if s.maxFileSize <= 0 {
		return fmt.Errorf("maxFileSize must be greater than 0")
	}

	if s.maxFileSize > 1024*1024*1024 { // 1GB limit
		return fmt.Errorf("maxFileSize cannot exceed 1GB")
	}

	return nil
}

// writeFileAtomic writes data to a temporary file next to path and renames it
// into place
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".overlay-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set output permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}
