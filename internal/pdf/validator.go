package pdf

import (
	"fmt"
	"os"
	"strings"

	"github.com/a3tai/mcp-pdf-overlay/internal/pdf/wrapper"
)

// Validator checks that files can be opened as templates
type Validator struct {
	maxFileSize int64
	factory     *wrapper.PDFLibraryFactory
}

// NewValidator creates a new template validator with the specified constraints
func NewValidator(maxFileSize int64, factory *wrapper.PDFLibraryFactory) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
		factory:     factory,
	}
}

// ValidateFile reports whether path is a readable template. A file that fails
// validation is not an error; the reason is carried in the result.
func (v *Validator) ValidateFile(req ValidateTemplateRequest) (*ValidateTemplateResult, error) {
	result := &ValidateTemplateResult{
		Path:  req.Path,
		Valid: false,
	}

	pages, err := v.validateTemplate(req.Path)
	if err != nil {
		result.Message = err.Error()
		return result, nil //nolint:nilerr // validation failure is reported in the result
	}

	result.Valid = true
	result.PageCount = pages
	return result, nil
}

// IsValidPDF performs a quick check to see if a file is a valid template
func (v *Validator) IsValidPDF(filePath string) bool {
	_, err := v.validateTemplate(filePath)
	return err == nil
}

// ValidateFileInfo performs basic validation on file info without opening the PDF
func (v *Validator) ValidateFileInfo(filePath string, fileInfo os.FileInfo) error {
	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	if !strings.HasSuffix(strings.ToLower(filePath), ".pdf") {
		return fmt.Errorf("file is not a PDF: %s", filePath)
	}

	if fileInfo.Size() == 0 {
		return fmt.Errorf("file is empty: %s", filePath)
	}

	if fileInfo.Size() > v.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), v.maxFileSize)
	}

	return nil
}

// validateTemplate opens the file with both backends: the reader must parse
// it and the composer must accept it for drawing
func (v *Validator) validateTemplate(filePath string) (int, error) {
	if filePath == "" {
		return 0, fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return 0, fmt.Errorf("file does not exist: %s", filePath)
	}
	if err != nil {
		return 0, fmt.Errorf("cannot access file: %w", err)
	}

	if err := v.ValidateFileInfo(filePath, fileInfo); err != nil {
		return 0, err
	}

	data, err := v.factory.ReadTemplate(filePath)
	if err != nil {
		return 0, err
	}

	doc, err := v.factory.OpenReader(data, wrapper.OperationValidation)
	if err != nil {
		return 0, fmt.Errorf("invalid PDF file: %w", err)
	}
	defer doc.Close()

	pages, err := doc.GetPageCount()
	if err != nil {
		return 0, fmt.Errorf("invalid PDF file: %w", err)
	}
	if pages == 0 {
		return 0, fmt.Errorf("PDF has no pages: %s", filePath)
	}

	composer, err := v.factory.OpenComposer(data)
	if err != nil {
		return 0, fmt.Errorf("PDF cannot be drawn on: %w", err)
	}
	composer.Close()

	return pages, nil
}
