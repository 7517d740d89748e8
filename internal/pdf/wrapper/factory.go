package wrapper

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// PDFLibraryFactory creates PDF library instances with unified interface
type PDFLibraryFactory struct {
	defaultLibrary LibraryType
	config         FactoryConfig
}

// FactoryConfig contains configuration options for the factory
type FactoryConfig struct {
	// PreferredLibrary is the default library to use when LibraryAuto is specified
	PreferredLibrary LibraryType `json:"preferred_library"`

	// EnableAutoSelection routes each operation to the backend that supports it
	EnableAutoSelection bool `json:"enable_auto_selection"`

	// MaxFileSize limits the size of templates that may be opened (in bytes)
	MaxFileSize int64 `json:"max_file_size"`

	// DebugMode enables debug logging for library operations
	DebugMode bool `json:"debug_mode"`
}

// DefaultMaxFileSize caps template size at 100MB
const DefaultMaxFileSize int64 = 100 * 1024 * 1024

// DefaultFactoryConfig returns the configuration used by NewPDFLibraryFactory
func DefaultFactoryConfig() FactoryConfig {
	return FactoryConfig{
		PreferredLibrary:    LibraryPDFCPU,
		EnableAutoSelection: true,
		MaxFileSize:         DefaultMaxFileSize,
	}
}

// NewPDFLibraryFactory creates a new factory with default configuration
func NewPDFLibraryFactory() *PDFLibraryFactory {
	return NewPDFLibraryFactoryWithConfig(DefaultFactoryConfig())
}

// NewPDFLibraryFactoryWithConfig creates a factory with custom configuration
func NewPDFLibraryFactoryWithConfig(config FactoryConfig) *PDFLibraryFactory {
	if config.PreferredLibrary == "" || config.PreferredLibrary == LibraryAuto {
		config.PreferredLibrary = LibraryPDFCPU
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = DefaultMaxFileSize
	}
	return &PDFLibraryFactory{
		defaultLibrary: config.PreferredLibrary,
		config:         config,
	}
}

// Create instantiates a PDF library of the specified type
func (f *PDFLibraryFactory) Create(libType LibraryType) (PDFLibrary, error) {
	switch libType {
	case LibraryPDFCPU:
		return NewPDFCPULibrary(f.config), nil
	case LibraryLedongthuc:
		return NewLedongthucLibrary(f.config), nil
	case LibraryAuto:
		return f.Create(f.config.PreferredLibrary)
	default:
		return nil, &WrapperError{
			Library: libType,
			Op:      "create",
			Err:     fmt.Errorf("unknown library type: %s", libType),
		}
	}
}

// OperationType represents different types of PDF operations
type OperationType string

const (
	OperationCompose        OperationType = "compose"
	OperationTextExtraction OperationType = "text_extraction"
	OperationValidation     OperationType = "validation"
	OperationGeneral        OperationType = "general"
)

// CreateForOperation creates the best library for a specific operation type
func (f *PDFLibraryFactory) CreateForOperation(operation OperationType) (PDFLibrary, error) {
	if !f.config.EnableAutoSelection {
		return f.Create(f.defaultLibrary)
	}
	return f.Create(f.selectLibraryForOperation(operation))
}

func (f *PDFLibraryFactory) selectLibraryForOperation(operation OperationType) LibraryType {
	switch operation {
	case OperationCompose:
		// only pdfcpu can write
		return LibraryPDFCPU
	case OperationTextExtraction, OperationValidation:
		return LibraryLedongthuc
	default:
		return f.config.PreferredLibrary
	}
}

// OpenComposer parses template bytes into a document that can be drawn on
func (f *PDFLibraryFactory) OpenComposer(data []byte) (PDFComposer, error) {
	if err := f.checkSize(int64(len(data))); err != nil {
		return nil, err
	}
	return NewPDFCPULibrary(f.config).OpenComposer(bytes.NewReader(data))
}

// OpenReader parses PDF bytes with the backend chosen for operation
func (f *PDFLibraryFactory) OpenReader(data []byte, operation OperationType) (PDFDocument, error) {
	if err := f.checkSize(int64(len(data))); err != nil {
		return nil, err
	}
	lib, err := f.CreateForOperation(operation)
	if err != nil {
		return nil, err
	}
	return lib.Open(bytes.NewReader(data))
}

// ReadTemplate loads a template from disk after checking its size and extension
func (f *PDFLibraryFactory) ReadTemplate(filePath string) ([]byte, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, &WrapperError{
			Library: LibraryAuto,
			Op:      "read_template",
			Err:     fmt.Errorf("cannot access file: %w", err),
		}
	}
	if info.IsDir() {
		return nil, &WrapperError{
			Library: LibraryAuto,
			Op:      "read_template",
			Err:     fmt.Errorf("%s is a directory", filePath),
		}
	}
	if ext := strings.ToLower(filepath.Ext(filePath)); ext != ".pdf" {
		return nil, &WrapperError{
			Library: LibraryAuto,
			Op:      "read_template",
			Err:     fmt.Errorf("file does not have .pdf extension: %s", ext),
		}
	}
	if err := f.checkSize(info.Size()); err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, &WrapperError{Library: LibraryAuto, Op: "read_template", Err: err}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, &WrapperError{Library: LibraryAuto, Op: "read_template", Err: err}
	}
	return data, nil
}

func (f *PDFLibraryFactory) checkSize(size int64) error {
	if size > f.config.MaxFileSize {
		return &WrapperError{
			Library: LibraryAuto,
			Op:      "check_size",
			Err:     fmt.Errorf("file size %d exceeds maximum %d", size, f.config.MaxFileSize),
		}
	}
	return nil
}

// SetDefaultLibrary changes the default library type
func (f *PDFLibraryFactory) SetDefaultLibrary(libType LibraryType) {
	f.defaultLibrary = libType
	f.config.PreferredLibrary = libType
}

// GetDefaultLibrary returns the current default library type
func (f *PDFLibraryFactory) GetDefaultLibrary() LibraryType {
	return f.defaultLibrary
}

// GetConfig returns the current factory configuration
func (f *PDFLibraryFactory) GetConfig() FactoryConfig {
	return f.config
}

// GetSupportedLibraries returns a list of all supported library types
func (f *PDFLibraryFactory) GetSupportedLibraries() []LibraryType {
	return []LibraryType{
		LibraryPDFCPU,
		LibraryLedongthuc,
		LibraryAuto,
	}
}

// ValidateLibraryType checks if a library type is supported
func (f *PDFLibraryFactory) ValidateLibraryType(libType LibraryType) error {
	for _, supported := range f.GetSupportedLibraries() {
		if libType == supported {
			return nil
		}
	}
	return &WrapperError{
		Library: libType,
		Op:      "validate",
		Err:     fmt.Errorf("unsupported library type: %s", libType),
	}
}

// LibraryCapabilities describes what each library can do
type LibraryCapabilities struct {
	TextExtraction bool   `json:"text_extraction"`
	Compose        bool   `json:"compose"`
	Validation     bool   `json:"validation"`
	Performance    string `json:"performance"` // "fast", "medium", "high"
}

// GetLibraryCapabilities returns the capabilities of each library
func (f *PDFLibraryFactory) GetLibraryCapabilities() map[LibraryType]LibraryCapabilities {
	return map[LibraryType]LibraryCapabilities{
		LibraryPDFCPU: {
			TextExtraction: true,
			Compose:        true,
			Validation:     true,
			Performance:    "high",
		},
		LibraryLedongthuc: {
			TextExtraction: true,
			Compose:        false,
			Validation:     true,
			Performance:    "fast",
		},
	}
}
