package document

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog holds the document types available to the editor
type Catalog struct {
	documents map[int]*DocumentType
}

type catalogFile struct {
	Documents []DocumentType `json:"documents" yaml:"documents"`
}

// NewCatalog builds a catalog, rejecting duplicate IDs and malformed field types
func NewCatalog(docs ...DocumentType) (*Catalog, error) {
	c := &Catalog{documents: make(map[int]*DocumentType, len(docs))}
	for i := range docs {
		if err := c.add(docs[i], "catalog"); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// LoadCatalog walks fsys and parses every JSON or YAML catalog file. A file
// holds either a single document type or a {"documents": [...]} list.
func LoadCatalog(fsys fs.FS) (*Catalog, error) {
	c := &Catalog{documents: make(map[int]*DocumentType)}
	if fsys == nil {
		return c, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isCatalogFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("catalog: read %s: %w", path, err)
		}

		docs, err := parseCatalog(data, path)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if err := c.add(doc, path); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return c, nil
}

// LoadCatalogFile parses a single catalog file from disk
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	docs, err := parseCatalog(data, path)
	if err != nil {
		return nil, err
	}
	return NewCatalog(docs...)
}

// Document returns the document type with the given ID
func (c *Catalog) Document(id int) (*DocumentType, bool) {
	if c == nil {
		return nil, false
	}
	doc, ok := c.documents[id]
	return doc, ok
}

// Documents returns all document types ordered by ID
func (c *Catalog) Documents() []*DocumentType {
	if c == nil {
		return nil
	}
	out := make([]*DocumentType, 0, len(c.documents))
	for _, doc := range c.documents {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of document types
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.documents)
}

func (c *Catalog) add(doc DocumentType, source string) error {
	if _, exists := c.documents[doc.ID]; exists {
		return fmt.Errorf("catalog: duplicate document type %d (file %s)", doc.ID, source)
	}
	if strings.TrimSpace(doc.Name) == "" {
		return fmt.Errorf("catalog: document type %d (file %s) has no name", doc.ID, source)
	}
	seen := make(map[int]bool, len(doc.FieldTypes))
	for _, ft := range doc.FieldTypes {
		if seen[ft.ID] {
			return fmt.Errorf("catalog: document type %d (file %s) repeats field type %d", doc.ID, source, ft.ID)
		}
		seen[ft.ID] = true
		if ft.Kind == "" {
			return fmt.Errorf("catalog: field type %d (file %s) has no type", ft.ID, source)
		}
		if ft.Placeholder == "" {
			return fmt.Errorf("catalog: field type %d (file %s) has an empty placeholder", ft.ID, source)
		}
	}
	d := doc
	d.FieldTypes = append([]FieldType(nil), doc.FieldTypes...)
	c.documents[doc.ID] = &d
	return nil
}

func parseCatalog(data []byte, source string) ([]DocumentType, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("catalog: file %s is empty", source)
	}

	var list catalogFile
	if err := json.Unmarshal(data, &list); err == nil && len(list.Documents) > 0 {
		return list.Documents, nil
	}
	var single DocumentType
	if err := json.Unmarshal(data, &single); err == nil && single.Name != "" {
		return []DocumentType{single}, nil
	}

	list = catalogFile{}
	if err := yaml.Unmarshal(data, &list); err == nil && len(list.Documents) > 0 {
		return list.Documents, nil
	}
	single = DocumentType{}
	if err := yaml.Unmarshal(data, &single); err == nil && single.Name != "" {
		return []DocumentType{single}, nil
	}

	return nil, fmt.Errorf("catalog: parse %s: invalid JSON or YAML", source)
}

func isCatalogFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// MockDocumentID is the ID of the built-in sample document type
const MockDocumentID = 1

// MockCatalog returns the built-in sample catalog used when none is configured
func MockCatalog() *Catalog {
	c, _ := NewCatalog(DocumentType{
		ID:   MockDocumentID,
		Name: "Mock document 1",
		FieldTypes: []FieldType{
			{ID: 1, Name: "name", Kind: KindText, Placeholder: "Ted Bear"},
			{
				ID:   2,
				Name: "description",
				Kind: KindText,
				Placeholder: "Lorem ipsum dolor sit amet, consectetur adipisicing elit. Necessitatibus ad officia " +
					"expedita molestiae voluptatem quos, esse asperiores modi consectetur ipsum architecto maxime " +
					"tempore mollitia iusto tenetur quae, dolorem quod culpa.",
			},
			{ID: 3, Name: "tax_number", Kind: KindNumber, Placeholder: "123456789"},
			{ID: 4, Name: "date", Kind: KindDate, Placeholder: "20220401"},
		},
	})
	return c
}
