package pdf

import (
	"github.com/a3tai/mcp-pdf-overlay/internal/document"
	"github.com/a3tai/mcp-pdf-overlay/internal/overlay"
	"github.com/a3tai/mcp-pdf-overlay/internal/pdf/wrapper"
)

// FileInfo represents basic information about a template file
type FileInfo struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// ValidateTemplateRequest represents a request to check that a file can be
// used as a template
type ValidateTemplateRequest struct {
	Path string `json:"path"`
}

// ValidateTemplateResult represents the result of template validation
type ValidateTemplateResult struct {
	Path      string `json:"path"`
	Valid     bool   `json:"valid"`
	PageCount int    `json:"page_count,omitempty"`
	Message   string `json:"message,omitempty"`
}

// PageSizesRequest asks for the scale-1 size of every page of a template
type PageSizesRequest struct {
	Path string `json:"path"`
}

// PageInfo is the size of one page in points
type PageInfo struct {
	Number int     `json:"number"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PageSizesResult lists the page sizes of a template
type PageSizesResult struct {
	Path  string     `json:"path"`
	Pages []PageInfo `json:"pages"`
}

// RenderFileRequest composites a definition onto a template and writes the
// result. Definition takes precedence over DefinitionPath.
type RenderFileRequest struct {
	TemplatePath   string               `json:"template_path"`
	DefinitionPath string               `json:"definition_path,omitempty"`
	Definition     *document.Definition `json:"definition,omitempty"`
	OutputPath     string               `json:"output_path"`
	TargetPage     int                  `json:"target_page,omitempty"`
}

// RenderFileResult describes a written composite
type RenderFileResult struct {
	TemplatePath string                `json:"template_path"`
	OutputPath   string                `json:"output_path"`
	Size         int64                 `json:"size"`
	PageCount    int                   `json:"page_count"`
	Sections     int                   `json:"sections"`
	Runs         []overlay.Run         `json:"runs"`
	Fonts        []document.FontFamily `json:"fonts"`
}

// ReadTextRequest reads the characters drawn on a PDF. Page 0 reads every page.
type ReadTextRequest struct {
	Path string `json:"path"`
	Page int    `json:"page,omitempty"`
}

// PageText is the text found on one page
type PageText struct {
	Number   int                   `json:"number"`
	Text     string                `json:"text"`
	Elements []wrapper.TextElement `json:"elements"`
}

// ReadTextResult is the text read back from a PDF
type ReadTextResult struct {
	Path  string     `json:"path"`
	Pages []PageText `json:"pages"`
}

// ServerInfoRequest represents a request for server information
type ServerInfoRequest struct{}

// ServerInfoResult represents server information and usage guidance
type ServerInfoResult struct {
	ServerName        string                `json:"server_name"`
	Version           string                `json:"version"`
	DefaultDirectory  string                `json:"default_directory"`
	MaxFileSize       int64                 `json:"max_file_size"`
	AvailableTools    []ToolInfo            `json:"available_tools"`
	DirectoryContents []FileInfo            `json:"directory_contents"`
	UsageGuidance     string                `json:"usage_guidance"`
	SupportedFonts    []document.FontFamily `json:"supported_fonts"`
	Libraries         []LibraryInfo         `json:"libraries"`
}

// ToolInfo represents information about an available tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}

// LibraryInfo describes a PDF backend in use
type LibraryInfo struct {
	Type         wrapper.LibraryType         `json:"type"`
	Version      string                      `json:"version"`
	Capabilities wrapper.LibraryCapabilities `json:"capabilities"`
}
