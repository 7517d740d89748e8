package document

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	pdferrors "github.com/a3tai/mcp-pdf-overlay/internal/pdf/errors"
)

// Definition is the assembled document handed to persistence and the batch
// renderer
type Definition struct {
	DocumentTypeID int        `json:"documentType"`
	Fields         FormFields `json:"fields"`
}

// NewDefinition wraps fields for serialization
func NewDefinition(documentTypeID int, fields FormFields) Definition {
	if fields == nil {
		fields = FormFields{}
	}
	return Definition{DocumentTypeID: documentTypeID, Fields: fields}
}

// Marshal encodes the definition as indented JSON
func (d Definition) Marshal() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Validate checks every field and section. Field types must be present and
// unique across the definition.
func (d Definition) Validate() error {
	seen := make(map[int]bool, len(d.Fields))
	for i, f := range d.Fields {
		if f.FieldType == nil {
			return invalidDocument("field %d has no field type", i)
		}
		if seen[f.FieldType.ID] {
			return invalidDocument("field type %d appears twice", f.FieldType.ID)
		}
		seen[f.FieldType.ID] = true
		for j, s := range f.Sections {
			if err := s.Validate(f.FieldType); err != nil {
				return fmt.Errorf("field %d section %d: %w", f.FieldType.ID, j, err)
			}
		}
	}
	return nil
}

// ParseDefinition decodes and validates a JSON definition
func ParseDefinition(data []byte) (Definition, error) {
	var d Definition
	if err := json.Unmarshal(data, &d); err != nil {
		return Definition{}, pdferrors.Wrap(pdferrors.KindInvalidDocument, "parse definition", err)
	}
	if err := d.Validate(); err != nil {
		return Definition{}, err
	}
	return d, nil
}

// ReadDefinition parses a definition from r
func ReadDefinition(r io.Reader) (Definition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Definition{}, fmt.Errorf("failed to read definition: %w", err)
	}
	return ParseDefinition(data)
}

// LoadDefinitionFile parses the definition stored at path
func LoadDefinitionFile(path string) (Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return Definition{}, fmt.Errorf("failed to open definition: %w", err)
	}
	defer f.Close()
	return ReadDefinition(f)
}

// Bind returns a copy of fields whose field types point at this document
// type's entries. Placeholders and kinds always come from the catalog, and
// sections are checked against the catalog placeholder.
func (d *DocumentType) Bind(fields FormFields) (FormFields, error) {
	out := fields.Clone()
	for i := range out {
		if out[i].FieldType == nil {
			return nil, invalidDocument("field %d has no field type", i)
		}
		id := out[i].FieldType.ID
		ft, ok := d.FieldType(id)
		if !ok {
			return nil, &pdferrors.OverlayError{
				Kind:    pdferrors.KindInvalidDocument,
				Op:      "bind",
				Field:   id,
				Message: fmt.Sprintf("field type %d is not part of document type %d", id, d.ID),
			}
		}
		out[i].FieldType = ft
	}
	if err := NewDefinition(d.ID, out).Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Bind resolves def against the catalog entry for its document type
func (c *Catalog) Bind(def Definition) (Definition, error) {
	doc, ok := c.Document(def.DocumentTypeID)
	if !ok {
		return Definition{}, invalidDocument("document type %d is not in the catalog", def.DocumentTypeID)
	}
	fields, err := doc.Bind(def.Fields)
	if err != nil {
		return Definition{}, err
	}
	return NewDefinition(doc.ID, fields), nil
}

func invalidDocument(format string, args ...interface{}) error {
	return &pdferrors.OverlayError{
		Kind:    pdferrors.KindInvalidDocument,
		Op:      "definition",
		Message: fmt.Sprintf(format, args...),
	}
}
