package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/a3tai/mcp-pdf-overlay/internal/config"
	"github.com/a3tai/mcp-pdf-overlay/internal/descriptions"
	"github.com/a3tai/mcp-pdf-overlay/internal/editor"
	"github.com/a3tai/mcp-pdf-overlay/internal/pdf"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	editor     *editor.Editor
	mcpServer  *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service, ed *editor.Editor) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}
	if ed == nil {
		return nil, fmt.Errorf("editor cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		editor:     ed,
		mcpServer:  mcpServer,
	}

	s.registerTools()

	return s, nil
}

func describe(name string) mcp.ToolOption {
	return mcp.WithDescription(descriptions.GetToolDescription(name))
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("overlay_catalog", describe("overlay_catalog")), s.handleCatalog)

	s.mcpServer.AddTool(mcp.NewTool(
		"overlay_page_sizes",
		describe("overlay_page_sizes"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the template PDF"),
		),
		mcp.WithBoolean("load",
			mcp.Description("Also make this the template previewed by the session (default true)"),
		),
	), s.handlePageSizes)

	s.mcpServer.AddTool(mcp.NewTool(
		"overlay_arm",
		describe("overlay_arm"),
		mcp.WithNumber("field_type_id",
			mcp.Required(),
			mcp.Description("Field type to place"),
		),
		mcp.WithArray("lengths",
			mcp.Description("Slot lengths in characters, e.g. [2, 2, 4]; defaults to one slot of 5"),
		),
		mcp.WithString("font_family",
			mcp.Description("Font for the slots"),
			mcp.Enum(fontNames()...),
		),
		mcp.WithNumber("font_size", mcp.Description("Font size in points")),
		mcp.WithNumber("character_spacing", mcp.Description("Extra space between characters in points")),
	), s.handleArm)

	s.mcpServer.AddTool(mcp.NewTool(
		"overlay_pointer",
		describe("overlay_pointer"),
		mcp.WithString("event",
			mcp.Required(),
			mcp.Description("Pointer event"),
			mcp.Enum("down", "move", "up"),
		),
		mcp.WithNumber("x", mcp.Description("Canvas X in pixels (down and move)")),
		mcp.WithNumber("y", mcp.Description("Canvas Y in pixels (down and move)")),
	), s.handlePointer)

	s.mcpServer.AddTool(mcp.NewTool(
		"overlay_accept",
		describe("overlay_accept"),
		mcp.WithNumber("page", mcp.Required(), mcp.Description("1-based page the rectangle was drawn on")),
		mcp.WithNumber("canvas_width", mcp.Required(), mcp.Description("Canvas width in pixels")),
		mcp.WithNumber("canvas_height", mcp.Required(), mcp.Description("Canvas height in pixels")),
		mcp.WithNumber("page_width", mcp.Description("Page width in points; taken from the loaded template when omitted")),
		mcp.WithNumber("page_height", mcp.Description("Page height in points; taken from the loaded template when omitted")),
	), s.handleAccept)

	s.mcpServer.AddTool(mcp.NewTool("overlay_discard", describe("overlay_discard")), s.handleDiscard)
	s.mcpServer.AddTool(mcp.NewTool("overlay_cancel", describe("overlay_cancel")), s.handleCancel)

	s.mcpServer.AddTool(mcp.NewTool(
		"overlay_update_section",
		describe("overlay_update_section"),
		mcp.WithNumber("field_type_id", mcp.Required(), mcp.Description("Field type whose section changes")),
		mcp.WithNumber("section", mcp.Required(), mcp.Description("0-based section index")),
		mcp.WithNumber("character_start", mcp.Description("First placeholder character")),
		mcp.WithNumber("character_end", mcp.Description("Placeholder character after the last one")),
		mcp.WithString("font_family",
			mcp.Description("New font"),
			mcp.Enum(fontNames()...),
		),
		mcp.WithNumber("font_size", mcp.Description("New font size in points")),
		mcp.WithNumber("character_spacing", mcp.Description("New character spacing in points")),
	), s.handleUpdateSection)

	s.mcpServer.AddTool(mcp.NewTool(
		"overlay_fields",
		describe("overlay_fields"),
		mcp.WithString("load_path", mcp.Description("Replace the session fields with a saved definition")),
		mcp.WithString("save_path", mcp.Description("Write the definition as JSON to this path")),
		mcp.WithNumber("remove_field_type_id", mcp.Description("Remove the field bound to this field type")),
	), s.handleFields)

	s.mcpServer.AddTool(mcp.NewTool(
		"overlay_render",
		describe("overlay_render"),
		mcp.WithString("output_path", mcp.Required(), mcp.Description("Where to write the filled PDF")),
		mcp.WithString("template_path", mcp.Description("Template PDF; defaults to the session template")),
		mcp.WithString("definition_path", mcp.Description("Saved definition; defaults to the session fields")),
		mcp.WithNumber("page", mcp.Description("Render onto this page only")),
	), s.handleRender)

	s.mcpServer.AddTool(mcp.NewTool(
		"overlay_read_text",
		describe("overlay_read_text"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the PDF")),
		mcp.WithNumber("page", mcp.Description("Page to read; all pages when omitted")),
	), s.handleReadText)

	s.mcpServer.AddTool(mcp.NewTool("overlay_server_info", describe("overlay_server_info")), s.handleServerInfo)
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting PDF overlay MCP server in stdio mode")
		log.Printf("PDF directory: %s", s.config.PDFDirectory)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves streamable HTTP on the configured address until ctx
// is canceled
func (s *Server) runServerMode(ctx context.Context) error {
	httpServer := server.NewStreamableHTTPServer(s.mcpServer)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting PDF overlay MCP server on %s", s.config.Address())
		errCh <- httpServer.Start(s.config.Address())
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
		if err := httpServer.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("failed to shut down http server: %w", err)
		}
		return nil
	}
}
