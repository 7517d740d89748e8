package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/a3tai/mcp-pdf-overlay/internal/assembly"
	"github.com/a3tai/mcp-pdf-overlay/internal/capture"
	"github.com/a3tai/mcp-pdf-overlay/internal/document"
	"github.com/a3tai/mcp-pdf-overlay/internal/editor"
	"github.com/a3tai/mcp-pdf-overlay/internal/geometry"
	"github.com/a3tai/mcp-pdf-overlay/internal/pdf"
	"github.com/mark3labs/mcp-go/mcp"
)

// CatalogResult lists the catalog and the document type being laid out
type CatalogResult struct {
	DocumentTypeID int                      `json:"documentTypeId"`
	Documents      []*document.DocumentType `json:"documents"`
}

// PageSizesResult is the page list plus whether the session took the template
type PageSizesResult struct {
	pdf.PageSizesResult
	Loaded      bool   `json:"loaded"`
	RenderError string `json:"renderError,omitempty"`
}

// SectionResult is an edited section
type SectionResult struct {
	Section     document.Section `json:"section"`
	RenderError string           `json:"renderError,omitempty"`
}

// FieldsResult is the session definition and where it was written, if anywhere
type FieldsResult struct {
	Definition  document.Definition `json:"definition"`
	SavedTo     string              `json:"savedTo,omitempty"`
	RenderError string              `json:"renderError,omitempty"`
}

func (s *Server) handleCatalog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(CatalogResult{
		DocumentTypeID: s.editor.DocumentType().ID,
		Documents:      s.editor.Catalog().Documents(),
	})
}

func (s *Server) handlePageSizes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	load := true
	if v, ok := request.GetArguments()["load"].(bool); ok {
		load = v
	}

	resolved, data, err := s.pdfService.LoadTemplate(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pages, err := s.pdfService.PageSizesOf(data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := PageSizesResult{PageSizesResult: pdf.PageSizesResult{Path: resolved, Pages: pages}}
	if load {
		sizes := make([]geometry.Size, len(pages))
		for i, p := range pages {
			sizes[i] = geometry.Size{Width: p.Width, Height: p.Height}
		}
		err := s.editor.LoadTemplate(ctx, editor.Template{Path: resolved, Data: data, Pages: sizes})
		if result.RenderError, err = splitRenderError(err); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result.Loaded = true
	}
	return jsonResult(result)
}

func (s *Server) handleArm(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	fieldTypeID, err := requireInt(args, "field_type_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lengths, err := intsArg(args, "lengths")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	style, err := styleArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	status, err := s.editor.Arm(fieldTypeID, lengths, style)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(status)
}

func (s *Server) handlePointer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	event, err := request.RequireString("event")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var status editor.Status
	switch event {
	case "up":
		status, err = s.editor.PointerUp()
	case "down", "move":
		p, perr := pointArg(request.GetArguments())
		if perr != nil {
			return mcp.NewToolResultError(perr.Error()), nil
		}
		if event == "down" {
			status, err = s.editor.PointerDown(p)
		} else {
			status, err = s.editor.PointerMove(p)
		}
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown pointer event %q", event)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(status)
}

func (s *Server) handleAccept(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	page, err := requireInt(args, "page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cw, err := requireNumber(args, "canvas_width")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ch, err := requireNumber(args, "canvas_height")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pw, _, err := numberArg(args, "page_width")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ph, _, err := numberArg(args, "page_height")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.editor.Accept(ctx, capture.PageContext{
		PageNumber: page,
		Canvas:     geometry.Size{Width: cw, Height: ch},
		Page:       geometry.Size{Width: pw, Height: ph},
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleDiscard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.editor.Discard()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(status)
}

func (s *Server) handleCancel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.editor.Cancel())
}

func (s *Server) handleUpdateSection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	fieldTypeID, err := requireInt(args, "field_type_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	index, err := requireInt(args, "section")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var edit assembly.SectionEdit
	if edit.CharacterStart, err = optionalInt(args, "character_start"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if edit.CharacterEnd, err = optionalInt(args, "character_end"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if edit.StyleEdit, err = styleArgs(args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	section, err := s.editor.UpdateSection(ctx, fieldTypeID, index, edit)
	renderErr, err := splitRenderError(err)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(SectionResult{Section: section, RenderError: renderErr})
}

func (s *Server) handleFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	var result FieldsResult

	remove, err := optionalInt(args, "remove_field_type_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if remove != nil {
		if result.RenderError, err = splitRenderError(s.editor.RemoveField(ctx, *remove)); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	if loadPath := request.GetString("load_path", ""); loadPath != "" {
		def, err := s.pdfService.LoadDefinition(loadPath)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if result.RenderError, err = splitRenderError(s.editor.LoadDefinition(ctx, def)); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	result.Definition = s.editor.Definition()
	if savePath := request.GetString("save_path", ""); savePath != "" {
		saved, err := s.pdfService.SaveDefinition(savePath, result.Definition)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result.SavedTo = saved
	}
	return jsonResult(result)
}

func (s *Server) handleRender(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	output, err := request.RequireString("output_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := optionalInt(request.GetArguments(), "page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.RenderFileRequest{
		TemplatePath:   request.GetString("template_path", ""),
		DefinitionPath: request.GetString("definition_path", ""),
		OutputPath:     output,
	}
	if page != nil {
		req.TargetPage = *page
	}
	if req.TemplatePath == "" {
		t := s.editor.Template()
		if t == nil {
			return mcp.NewToolResultError("no template_path given and no session template loaded"), nil
		}
		req.TemplatePath = t.Path
	}
	if req.DefinitionPath == "" {
		def := s.editor.Definition()
		req.Definition = &def
	}

	result, err := s.pdfService.RenderFile(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleReadText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := optionalInt(request.GetArguments(), "page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.ReadTextRequest{Path: path}
	if page != nil {
		req.Page = *page
	}
	result, err := s.pdfService.ReadText(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.pdfService.ServerInfo(ctx, s.config.ServerName, s.config.Version, s.config.PDFDirectory)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatServerInfoResult(result)), nil
}

func (s *Server) formatServerInfoResult(result *pdf.ServerInfoResult) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("📁 Default Directory: %s\n", result.DefaultDirectory)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", result.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("🗂️  Document Type: %d\n\n", s.editor.DocumentType().ID)

	if len(result.DirectoryContents) > 0 {
		text += fmt.Sprintf("📂 Templates (%d PDF files found):\n", len(result.DirectoryContents))
		for i, file := range result.DirectoryContents {
			if i >= 10 {
				text += fmt.Sprintf("   ... and %d more files\n", len(result.DirectoryContents)-10)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		text += "\n"
	} else {
		text += "📂 Templates: No PDF files found in default directory\n\n"
	}

	text += "🛠️  Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Description: %s\n", tool.Description)
		text += fmt.Sprintf("  Usage: %s\n", tool.Usage)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	if len(result.SupportedFonts) > 0 {
		text += "\n🔤 Supported Fonts:\n"
		for _, f := range result.SupportedFonts {
			text += fmt.Sprintf("  • %s\n", f)
		}
	}

	if len(result.Libraries) > 0 {
		text += "\n📚 PDF Libraries:\n"
		for _, lib := range result.Libraries {
			text += fmt.Sprintf("  • %s %s\n", lib.Type, lib.Version)
		}
	}

	text += "\n" + result.UsageGuidance

	return text
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// splitRenderError separates a failed re-render, which leaves the edit in
// place, from an error that rejected the edit
func splitRenderError(err error) (string, error) {
	var renderErr *editor.RenderError
	if errors.As(err, &renderErr) {
		return renderErr.Error(), nil
	}
	return "", err
}

func fontNames() []string {
	families := document.FontFamilies()
	names := make([]string, len(families))
	for i, f := range families {
		names[i] = string(f)
	}
	return names
}

// numberArg reads an optional numeric argument. JSON numbers arrive as
// float64.
func numberArg(args map[string]interface{}, key string) (float64, bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, true, nil
	case int:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false, fmt.Errorf("argument %q must be a number", key)
		}
		return f, true, nil
	default:
		return 0, false, fmt.Errorf("argument %q must be a number, got %T", key, raw)
	}
}

func requireNumber(args map[string]interface{}, key string) (float64, error) {
	v, ok, err := numberArg(args, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("required argument %q not found", key)
	}
	return v, nil
}

func toInt(key string, f float64) (int, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("argument %q must be a whole number", key)
	}
	return int(f), nil
}

func requireInt(args map[string]interface{}, key string) (int, error) {
	f, err := requireNumber(args, key)
	if err != nil {
		return 0, err
	}
	return toInt(key, f)
}

func optionalInt(args map[string]interface{}, key string) (*int, error) {
	f, ok, err := numberArg(args, key)
	if err != nil || !ok {
		return nil, err
	}
	n, err := toInt(key, f)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func optionalFloat(args map[string]interface{}, key string) (*float64, error) {
	f, ok, err := numberArg(args, key)
	if err != nil || !ok {
		return nil, err
	}
	return &f, nil
}

func intsArg(args map[string]interface{}, key string) ([]int, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("argument %q must be an array of numbers", key)
	}
	out := make([]int, 0, len(items))
	for i, item := range items {
		n, err := requireInt(map[string]interface{}{key: item}, key)
		if err != nil {
			return nil, fmt.Errorf("argument %q item %d: %w", key, i, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func pointArg(args map[string]interface{}) (geometry.Point, error) {
	x, err := requireNumber(args, "x")
	if err != nil {
		return geometry.Point{}, err
	}
	y, err := requireNumber(args, "y")
	if err != nil {
		return geometry.Point{}, err
	}
	return geometry.Point{X: x, Y: y}, nil
}

func styleArgs(args map[string]interface{}) (document.StyleEdit, error) {
	var edit document.StyleEdit
	var err error
	if edit.FontSize, err = optionalFloat(args, "font_size"); err != nil {
		return edit, err
	}
	if edit.CharacterSpacing, err = optionalFloat(args, "character_spacing"); err != nil {
		return edit, err
	}
	if name, ok := args["font_family"].(string); ok && name != "" {
		family := document.FontFamily(name)
		edit.FontFamily = &family
	}
	return edit, nil
}
