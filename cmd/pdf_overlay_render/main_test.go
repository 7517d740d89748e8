package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-overlay/internal/document"
	"github.com/a3tai/mcp-pdf-overlay/internal/pdf/pdftest"
)

func writeInputs(t *testing.T, page int) (dir, template, fields string) {
	t.Helper()
	dir = t.TempDir()
	template = filepath.Join(dir, "template.pdf")
	require.NoError(t, os.WriteFile(template, pdftest.Blank(2), 0o644))

	def := document.NewDefinition(1, document.FormFields{{
		DocumentTypeID: 1,
		FieldType:      &document.FieldType{ID: 1, Name: "name", Kind: document.KindText, Placeholder: "Ted Bear"},
		Sections: []document.Section{{
			PageNumber:     page,
			BoundingBox:    document.BoundingBox{XPosition: 100, YPosition: 500, Width: 80, Height: 20, PaddingX: 3, PaddingY: 3},
			CharacterStart: 0,
			CharacterEnd:   3,
			Style:          document.SectionStyle{FontSize: 12, FontFamily: document.FontHelvetica, LineHeight: 12},
		}},
	}})
	data, err := def.Marshal()
	require.NoError(t, err)
	fields = filepath.Join(dir, "fields.json")
	require.NoError(t, os.WriteFile(fields, data, 0o644))
	return dir, template, fields
}

func TestRun_JSONReport(t *testing.T) {
	dir, template, fields := writeInputs(t, 2)
	out := filepath.Join(dir, "out", "filled.pdf")

	var stdout, stderr bytes.Buffer
	code := run([]string{"--in", template, "--fields", fields, "--out", out, "--format", "json", "-v"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var report RenderReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	assert.Equal(t, out, report.Output)
	assert.Equal(t, 2, report.PageCount)
	assert.Equal(t, 1, report.Sections)
	require.Len(t, report.Runs, 1)
	assert.Equal(t, "Ted", report.Runs[0].Text)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, int64(report.Size), info.Size())
}

func TestRun_TextReport(t *testing.T) {
	dir, template, fields := writeInputs(t, 1)
	out := filepath.Join(dir, "filled.pdf")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-i", template, "-f", fields, "-o", out, "--page", "1"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "Sections: 1")
	assert.Contains(t, stdout.String(), "Output: "+out)
	assert.NotContains(t, stdout.String(), `"Ted"`)
}

func TestRun_CatalogReplacesStoredFieldTypes(t *testing.T) {
	dir, template, fields := writeInputs(t, 1)
	catalog := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte("documents:\n"+
		"  - id: 1\n"+
		"    name: Intake\n"+
		"    fieldTypes:\n"+
		"      - {id: 1, name: name, type: text, placeholder: Jane Doe}\n"), 0o644))

	var stdout, stderr bytes.Buffer
	code := run([]string{"-i", template, "-f", fields, "-o", filepath.Join(dir, "filled.pdf"),
		"--catalog", catalog, "--format", "json", "-v"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var report RenderReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	require.Len(t, report.Runs, 1)
	assert.Equal(t, "Jan", report.Runs[0].Text)

	other := filepath.Join(dir, "other.yaml")
	require.NoError(t, os.WriteFile(other, []byte("documents:\n"+
		"  - id: 1\n"+
		"    name: Intake\n"+
		"    fieldTypes:\n"+
		"      - {id: 2, name: city, type: text, placeholder: Oslo}\n"), 0o644))
	stdout.Reset()
	stderr.Reset()
	code = run([]string{"-i", template, "-f", fields, "-o", filepath.Join(dir, "rejected.pdf"), "--catalog", other}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "field type 1 is not part of document type 1")
	_, err := os.Stat(filepath.Join(dir, "rejected.pdf"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_Failures(t *testing.T) {
	dir, template, fields := writeInputs(t, 3)

	tests := []struct {
		name    string
		args    []string
		code    int
		wantErr string
	}{
		{name: "missing flags", args: []string{"--in", template}, code: 2},
		{name: "unknown flag", args: []string{"--nope"}, code: 2, wantErr: "unknown flag: --nope"},
		{name: "bad format", args: []string{"--in", template, "--fields", fields, "--out", "x.pdf", "--format", "xml"}, code: 2},
		{name: "output is template", args: []string{"--in", template, "--fields", fields, "--out", template}, code: 1},
		{name: "page beyond template", args: []string{"--in", template, "--fields", fields, "--out", filepath.Join(dir, "out.pdf")}, code: 1},
		{name: "missing definition", args: []string{"--in", template, "--fields", filepath.Join(dir, "none.json"), "--out", filepath.Join(dir, "out.pdf")}, code: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, tt.code, run(tt.args, &stdout, &stderr))
			assert.NotEmpty(t, stderr.String())
			if tt.wantErr != "" {
				assert.Contains(t, stderr.String(), tt.wantErr)
				assert.Contains(t, stderr.String(), "USAGE:")
			}
		})
	}

	_, err := os.Stat(filepath.Join(dir, "out.pdf"))
	assert.True(t, os.IsNotExist(err), "failed renders must not write output")
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{"--help"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "USAGE:")
}
