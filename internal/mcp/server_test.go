package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-overlay/internal/config"
	"github.com/a3tai/mcp-pdf-overlay/internal/document"
	"github.com/a3tai/mcp-pdf-overlay/internal/editor"
	"github.com/a3tai/mcp-pdf-overlay/internal/fontmetrics"
	"github.com/a3tai/mcp-pdf-overlay/internal/pdf"
	"github.com/a3tai/mcp-pdf-overlay/internal/pdf/pdftest"
)

func testConfig(dir string) *config.Config {
	return &config.Config{
		Mode:         "stdio",
		Host:         "127.0.0.1",
		Port:         8080,
		PDFDirectory: dir,
		Version:      "1.0.0",
		ServerName:   "test-server",
		LogLevel:     "info",
		MaxFileSize:  10 * 1024 * 1024,
		DocumentType: document.MockDocumentID,
	}
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := testConfig(dir)

	catalog := document.MockCatalog()
	metrics := fontmetrics.NewProvider(16)
	pdfService, err := pdf.NewService(cfg.MaxFileSize, dir, metrics, pdf.WithCatalog(catalog))
	require.NoError(t, err)
	ed, err := editor.New(catalog, cfg.DocumentType, metrics, pdfService.Renderer())
	require.NoError(t, err)

	s, err := NewServer(cfg, pdfService, ed)
	require.NoError(t, err)
	return s, dir
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func call(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// decode fails the test on a tool error and unmarshals the JSON body into v
func decode(t *testing.T, result *mcp.CallToolResult, v interface{}) {
	t.Helper()
	require.NotNil(t, result)
	text := extractTextFromResult(result)
	require.False(t, result.IsError, "tool error: %s", text)
	require.NoError(t, json.Unmarshal([]byte(text), v), text)
}

func requireToolError(t *testing.T, result *mcp.CallToolResult, err error) string {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, result)
	require.True(t, result.IsError, "expected a tool error")
	return extractTextFromResult(result)
}

func TestNewServer(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	metrics := fontmetrics.NewProvider(4)
	pdfService, err := pdf.NewService(cfg.MaxFileSize, dir, metrics)
	require.NoError(t, err)
	ed, err := editor.New(document.MockCatalog(), document.MockDocumentID, metrics, pdfService.Renderer())
	require.NoError(t, err)

	tests := []struct {
		name       string
		cfg        *config.Config
		service    *pdf.Service
		editor     *editor.Editor
		wantErrMsg string
	}{
		{name: "valid stdio mode config", cfg: cfg, service: pdfService, editor: ed},
		{name: "valid server mode config", cfg: func() *config.Config {
			c := testConfig(dir)
			c.Mode = "server"
			return c
		}(), service: pdfService, editor: ed},
		{name: "nil config", service: pdfService, editor: ed, wantErrMsg: "config cannot be nil"},
		{name: "nil service", cfg: cfg, editor: ed, wantErrMsg: "pdfService cannot be nil"},
		{name: "nil editor", cfg: cfg, service: pdfService, wantErrMsg: "editor cannot be nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewServer(tt.cfg, tt.service, tt.editor)
			if tt.wantErrMsg != "" {
				assert.EqualError(t, err, tt.wantErrMsg)
				assert.Nil(t, server)
				return
			}
			require.NoError(t, err)
			assert.Same(t, tt.cfg, server.config)
			assert.Same(t, tt.service, server.pdfService)
			assert.Same(t, tt.editor, server.editor)
			assert.NotNil(t, server.mcpServer)
		})
	}
}

func TestServer_HandleCatalog(t *testing.T) {
	s, _ := newTestServer(t)

	result, err := s.handleCatalog(context.Background(), call(nil))
	require.NoError(t, err)

	var got struct {
		DocumentTypeID int `json:"documentTypeId"`
		Documents      []struct {
			ID         int `json:"id"`
			FieldTypes []struct {
				ID          int    `json:"id"`
				Placeholder string `json:"placeholder"`
			} `json:"fieldTypes"`
		} `json:"documents"`
	}
	decode(t, result, &got)
	assert.Equal(t, document.MockDocumentID, got.DocumentTypeID)
	require.Len(t, got.Documents, 1)
	require.Len(t, got.Documents[0].FieldTypes, 4)
	assert.Equal(t, "Ted Bear", got.Documents[0].FieldTypes[0].Placeholder)
}

func TestServer_HandlePageSizes(t *testing.T) {
	s, dir := newTestServer(t)
	writeFile(t, dir, "mixed.pdf", pdftest.Build(
		pdftest.Page{},
		pdftest.Page{MediaBox: [4]float64{0, 0, 842, 595}},
	))

	t.Run("loads the template by default", func(t *testing.T) {
		result, err := s.handlePageSizes(context.Background(), call(map[string]interface{}{"path": "mixed.pdf"}))
		require.NoError(t, err)

		var got PageSizesResult
		decode(t, result, &got)
		assert.True(t, got.Loaded)
		assert.Empty(t, got.RenderError)
		assert.Equal(t, []pdf.PageInfo{
			{Number: 1, Width: 612, Height: 792},
			{Number: 2, Width: 842, Height: 595},
		}, got.Pages)

		tmpl := s.editor.Template()
		require.NotNil(t, tmpl)
		assert.Equal(t, filepath.Join(dir, "mixed.pdf"), tmpl.Path)
		assert.Len(t, tmpl.Pages, 2)
	})

	t.Run("load false leaves the session alone", func(t *testing.T) {
		writeFile(t, dir, "other.pdf", pdftest.Blank(3))
		result, err := s.handlePageSizes(context.Background(), call(map[string]interface{}{"path": "other.pdf", "load": false}))
		require.NoError(t, err)

		var got PageSizesResult
		decode(t, result, &got)
		assert.False(t, got.Loaded)
		assert.Len(t, got.Pages, 3)
		assert.Equal(t, filepath.Join(dir, "mixed.pdf"), s.editor.Template().Path)
	})

	t.Run("errors", func(t *testing.T) {
		writeFile(t, dir, "fake.pdf", []byte("not a pdf"))
		for _, args := range []map[string]interface{}{
			{},
			{"path": "missing.pdf"},
			{"path": "fake.pdf"},
			{"path": "../escape.pdf"},
		} {
			result, err := s.handlePageSizes(context.Background(), call(args))
			requireToolError(t, result, err)
		}
	})
}

func TestServer_HandleArmAndPointer(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	result, err := s.handleArm(ctx, call(map[string]interface{}{
		"field_type_id": float64(4),
		"lengths":       []interface{}{float64(2), float64(2), float64(4)},
		"font_family":   "Courier",
		"font_size":     float64(14),
	}))
	require.NoError(t, err)

	var status editor.Status
	decode(t, result, &status)
	assert.Equal(t, "armed", status.State)
	require.NotNil(t, status.FieldType)
	assert.Equal(t, 4, status.FieldType.ID)
	require.Len(t, status.Pending, 3)
	assert.Equal(t, document.FontCourier, status.Pending[0].Style.FontFamily)
	assert.Equal(t, 14.0, status.Pending[0].Style.FontSize)

	result, err = s.handlePointer(ctx, call(map[string]interface{}{"event": "down", "x": float64(10), "y": float64(20)}))
	require.NoError(t, err)
	decode(t, result, &status)
	assert.Equal(t, "dragging", status.State)

	result, err = s.handlePointer(ctx, call(map[string]interface{}{"event": "move", "x": float64(60), "y": float64(45)}))
	require.NoError(t, err)
	decode(t, result, &status)
	require.NotNil(t, status.LiveRect)
	assert.Equal(t, 50.0, status.LiveRect.Width)
	assert.Equal(t, 25.0, status.LiveRect.Height)

	result, err = s.handlePointer(ctx, call(map[string]interface{}{"event": "up"}))
	require.NoError(t, err)
	decode(t, result, &status)
	assert.Equal(t, "finalizing", status.State)

	result, err = s.handleDiscard(ctx, call(nil))
	require.NoError(t, err)
	decode(t, result, &status)
	assert.Equal(t, "armed", status.State)
	assert.Len(t, status.Pending, 3)

	result, err = s.handleCancel(ctx, call(nil))
	require.NoError(t, err)
	decode(t, result, &status)
	assert.Equal(t, "idle", status.State)
	assert.Empty(t, status.Pending)
}

func TestServer_HandleArgumentErrors(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    map[string]interface{}
		want    string
	}{
		{name: "arm without field type", handler: s.handleArm, args: map[string]interface{}{}, want: `"field_type_id"`},
		{name: "arm fractional field type", handler: s.handleArm, args: map[string]interface{}{"field_type_id": 1.5}, want: "whole number"},
		{name: "arm unknown field type", handler: s.handleArm, args: map[string]interface{}{"field_type_id": float64(99)}, want: "field type"},
		{name: "arm lengths not an array", handler: s.handleArm, args: map[string]interface{}{"field_type_id": float64(1), "lengths": "2,2"}, want: "array"},
		{name: "arm negative length", handler: s.handleArm, args: map[string]interface{}{"field_type_id": float64(1), "lengths": []interface{}{float64(-1)}}, want: "negative length"},
		{name: "arm unknown font", handler: s.handleArm, args: map[string]interface{}{"field_type_id": float64(1), "font_family": "Comic Sans"}, want: "Comic Sans"},
		{name: "pointer down without coordinates", handler: s.handlePointer, args: map[string]interface{}{"event": "down"}, want: `"x"`},
		{name: "pointer unknown event", handler: s.handlePointer, args: map[string]interface{}{"event": "click"}, want: "unknown pointer event"},
		{name: "pointer up while idle", handler: s.handlePointer, args: map[string]interface{}{"event": "up"}, want: ""},
		{name: "accept without canvas", handler: s.handleAccept, args: map[string]interface{}{"page": float64(1)}, want: `"canvas_width"`},
		{name: "accept while idle", handler: s.handleAccept, args: map[string]interface{}{"page": float64(1), "canvas_width": float64(612), "canvas_height": float64(792)}, want: ""},
		{name: "update missing section", handler: s.handleUpdateSection, args: map[string]interface{}{"field_type_id": float64(1), "section": float64(0)}, want: ""},
		{name: "remove unplaced field", handler: s.handleFields, args: map[string]interface{}{"remove_field_type_id": float64(1)}, want: "no field"},
		{name: "render without template", handler: s.handleRender, args: map[string]interface{}{"output_path": "out.pdf"}, want: "no session template"},
		{name: "read text missing path", handler: s.handleReadText, args: map[string]interface{}{}, want: `"path"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.handler(ctx, call(tt.args))
			text := requireToolError(t, result, err)
			assert.Contains(t, text, tt.want)
		})
	}
}

func TestServer_HandleServerInfo(t *testing.T) {
	s, dir := newTestServer(t)
	writeFile(t, dir, "w9.pdf", pdftest.Blank(1))

	result, err := s.handleServerInfo(context.Background(), call(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := extractTextFromResult(result)
	for _, want := range []string{
		"test-server v1.0.0",
		"Default Directory: " + dir,
		"Document Type: 1",
		"1. w9.pdf",
		"overlay_arm",
		"overlay_render",
		"Helvetica",
	} {
		assert.Contains(t, text, want)
	}
}

func TestArgumentHelpers(t *testing.T) {
	args := map[string]interface{}{
		"f":     2.5,
		"i":     float64(3),
		"int":   7,
		"num":   json.Number("4"),
		"str":   "x",
		"nil":   nil,
		"list":  []interface{}{float64(1), float64(2)},
		"bad":   []interface{}{"a"},
		"font":  "Times-Roman",
		"space": float64(1),
	}

	v, ok, err := numberArg(args, "f")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2.5, v)

	_, ok, err = numberArg(args, "nil")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, _, err = numberArg(args, "str")
	assert.Error(t, err)

	n, err := requireInt(args, "int")
	assert.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = requireInt(args, "num")
	assert.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = requireInt(args, "f")
	assert.Error(t, err)

	p, err := optionalInt(args, "missing")
	assert.NoError(t, err)
	assert.Nil(t, p)

	list, err := intsArg(args, "list")
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2}, list)

	_, err = intsArg(args, "bad")
	assert.Error(t, err)

	edit, err := styleArgs(map[string]interface{}{"font_family": "Times-Roman", "character_spacing": float64(1)})
	require.NoError(t, err)
	require.NotNil(t, edit.FontFamily)
	assert.Equal(t, document.FontTimesRoman, *edit.FontFamily)
	require.NotNil(t, edit.CharacterSpacing)
	assert.Equal(t, 1.0, *edit.CharacterSpacing)
	assert.Nil(t, edit.FontSize)

	assert.Len(t, fontNames(), len(document.FontFamilies()))
}

func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}

	return ""
}
