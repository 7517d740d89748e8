package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/a3tai/mcp-pdf-overlay/internal/descriptions"
	"github.com/a3tai/mcp-pdf-overlay/internal/document"
	"github.com/a3tai/mcp-pdf-overlay/internal/pdf/wrapper"
)

// DirectoryCache keeps template listings for a limited time
type DirectoryCache struct {
	entries map[string]*CacheEntry
	ttl     time.Duration
	mu      sync.RWMutex
}

// CacheEntry is one cached listing
type CacheEntry struct {
	files      []FileInfo
	lastUpdate time.Time
	scanning   bool
}

// NewDirectoryCache creates a new directory cache with specified TTL
func NewDirectoryCache(ttl time.Duration) *DirectoryCache {
	return &DirectoryCache{
		entries: make(map[string]*CacheEntry),
		ttl:     ttl,
	}
}

// Get returns the listing for path if it has not expired
func (c *DirectoryCache) Get(path string) *CacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[path]
	if !exists || time.Since(entry.lastUpdate) > c.ttl {
		return nil
	}
	return entry
}

// Set stores a listing
func (c *DirectoryCache) Set(path string, files []FileInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[path] = &CacheEntry{
		files:      files,
		lastUpdate: time.Now(),
	}
}

// TryStartScan marks path as being scanned. It returns false when another
// scan of path is already running.
func (c *DirectoryCache) TryStartScan(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[path]
	if !exists {
		c.entries[path] = &CacheEntry{scanning: true}
		return true
	}
	if entry.scanning {
		return false
	}
	entry.scanning = true
	return true
}

// FinishScan clears the scanning mark of path
func (c *DirectoryCache) FinishScan(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.entries[path]; exists {
		entry.scanning = false
	}
}

// Invalidate drops the listing of path so the next lookup rescans
func (c *DirectoryCache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

// Clear removes expired entries from cache
func (c *DirectoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for path, entry := range c.entries {
		if !entry.scanning && now.Sub(entry.lastUpdate) > c.ttl {
			delete(c.entries, path)
		}
	}
}

// Stats returns the number of entries and how many are still fresh
func (c *DirectoryCache) Stats() (total, valid int) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, entry := range c.entries {
		total++
		if time.Since(entry.lastUpdate) <= c.ttl {
			valid++
		}
	}
	return total, valid
}

// TemplateScanner walks a directory tree for PDF templates within depth,
// count and time limits
type TemplateScanner struct {
	maxDepth   int
	fileLimit  int
	timeLimit  time.Duration
	skipHidden bool
}

// ScanResult represents the result of a directory scan
type ScanResult struct {
	Files        []FileInfo
	FromCache    bool
	ScanTime     time.Duration
	FilesScanned int
	Truncated    bool
}

// NewTemplateScanner creates a scanner. Zero limits are unlimited.
func NewTemplateScanner(maxDepth, fileLimit int, timeLimit time.Duration) *TemplateScanner {
	return &TemplateScanner{
		maxDepth:   maxDepth,
		fileLimit:  fileLimit,
		timeLimit:  timeLimit,
		skipHidden: true,
	}
}

type scanState struct {
	start   time.Time
	visited map[string]bool
	result  *ScanResult
}

// ScanDirectory lists the templates under root
func (s *TemplateScanner) ScanDirectory(ctx context.Context, root string) (*ScanResult, error) {
	st := &scanState{
		start:   time.Now(),
		visited: make(map[string]bool),
		result:  &ScanResult{Files: []FileInfo{}},
	}
	err := s.scan(ctx, root, 0, st)
	st.result.ScanTime = time.Since(st.start)
	return st.result, err
}

func (s *TemplateScanner) scan(ctx context.Context, dir string, depth int, st *scanState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.maxDepth > 0 && depth >= s.maxDepth {
		return nil
	}
	if s.limitReached(st) {
		st.result.Truncated = true
		return nil
	}

	real, err := filepath.EvalSymlinks(dir)
	if err != nil || st.visited[real] {
		return nil
	}
	st.visited[real] = true

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		st.result.FilesScanned++

		name := entry.Name()
		if s.skipHidden && strings.HasPrefix(name, ".") {
			continue
		}
		if entry.Type()&os.ModeSymlink != 0 {
			continue
		}

		path := filepath.Join(dir, name)
		if entry.IsDir() {
			if err := s.scan(ctx, path, depth+1, st); err != nil {
				return err
			}
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		st.result.Files = append(st.result.Files, FileInfo{
			Name:         name,
			Path:         path,
			Size:         info.Size(),
			ModifiedTime: info.ModTime().Format("2006-01-02 15:04:05"),
		})
		if s.limitReached(st) {
			st.result.Truncated = true
			return nil
		}
	}
	return nil
}

func (s *TemplateScanner) limitReached(st *scanState) bool {
	if s.fileLimit > 0 && len(st.result.Files) >= s.fileLimit {
		return true
	}
	return s.timeLimit > 0 && time.Since(st.start) > s.timeLimit
}

// ServerInfo builds the server description with a cached template listing
type ServerInfo struct {
	cache   *DirectoryCache
	scanner *TemplateScanner
	service *Service
}

// NewServerInfo creates a server info handler
func NewServerInfo(service *Service) *ServerInfo {
	return &ServerInfo{
		cache:   NewDirectoryCache(5 * time.Minute),
		scanner: NewTemplateScanner(5, 100, 3*time.Second),
		service: service,
	}
}

// Templates lists the templates under dir, from cache when fresh
func (p *ServerInfo) Templates(ctx context.Context, dir string) (*ScanResult, error) {
	if cached := p.cache.Get(dir); cached != nil && !cached.scanning {
		return &ScanResult{Files: cached.files, FromCache: true}, nil
	}
	if !p.cache.TryStartScan(dir) {
		return &ScanResult{Files: []FileInfo{}}, nil
	}
	defer p.cache.FinishScan(dir)

	scanCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := p.scanner.ScanDirectory(scanCtx, dir)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		result = &ScanResult{Files: []FileInfo{}}
	}
	p.cache.Set(dir, result.Files)
	return result, nil
}

// GetServerInfo describes the server, its tools and the templates available
func (p *ServerInfo) GetServerInfo(ctx context.Context, serverName, version, defaultDirectory string) (*ServerInfoResult, error) {
	dir := defaultDirectory
	if err := p.service.pathValidator.ValidateDirectory(dir); err != nil {
		dir = p.service.pathValidator.GetConfiguredDirectory()
	}

	scan, err := p.Templates(ctx, dir)
	if err != nil {
		return nil, err
	}

	factory := p.service.factory
	caps := factory.GetLibraryCapabilities()
	var libs []LibraryInfo
	for _, t := range []wrapper.LibraryType{wrapper.LibraryPDFCPU, wrapper.LibraryLedongthuc} {
		lib, err := factory.Create(t)
		if err != nil {
			continue
		}
		libs = append(libs, LibraryInfo{Type: t, Version: lib.GetVersion(), Capabilities: caps[t]})
		lib.Close()
	}

	return &ServerInfoResult{
		ServerName:        serverName,
		Version:           version,
		DefaultDirectory:  dir,
		MaxFileSize:       p.service.maxFileSize,
		AvailableTools:    p.getAvailableTools(),
		DirectoryContents: scan.Files,
		UsageGuidance:     p.getUsageGuidance(),
		SupportedFonts:    document.FontFamilies(),
		Libraries:         libs,
	}, nil
}

func (p *ServerInfo) getAvailableTools() []ToolInfo {
	tools := []ToolInfo{
		{
			Name:       "overlay_catalog",
			Usage:      "List document types and their field types before arming a field.",
			Parameters: "No parameters required",
		},
		{
			Name:       "overlay_page_sizes",
			Usage:      "Get every page's size in points so a canvas can be scaled to it.",
			Parameters: "path (required): template PDF path",
		},
		{
			Name:  "overlay_arm",
			Usage: "Choose a field type and queue the character-range slots the next rectangles will fill.",
			Parameters: "field_type_id (required), lengths (optional): comma separated slot lengths, " +
				"font_family, font_size, character_spacing (optional)",
		},
		{
			Name:       "overlay_pointer",
			Usage:      "Send a pointer down, move or up event in canvas pixels.",
			Parameters: "event (required): down|move|up, x, y (required for down and move)",
		},
		{
			Name:       "overlay_accept",
			Usage:      "Store the drawn rectangle as a section of the armed field and re-render.",
			Parameters: "page (required), canvas_width, canvas_height (required)",
		},
		{
			Name:       "overlay_discard",
			Usage:      "Throw away the drawn rectangle without using a slot.",
			Parameters: "No parameters required",
		},
		{
			Name:       "overlay_cancel",
			Usage:      "Abandon the current gesture and clear the slot queue.",
			Parameters: "No parameters required",
		},
		{
			Name:       "overlay_update_section",
			Usage:      "Change a stored section's character range or style.",
			Parameters: "field_type_id, index (required), character_start, character_end, font_family, font_size, character_spacing (optional)",
		},
		{
			Name:       "overlay_fields",
			Usage:      "Show the current document definition as JSON.",
			Parameters: "No parameters required",
		},
		{
			Name:       "overlay_render",
			Usage:      "Composite a definition onto a template and write the result.",
			Parameters: "template (required), output (required), definition (optional, defaults to the session), page (optional)",
		},
		{
			Name:       "overlay_read_text",
			Usage:      "Read back the characters and positions drawn on a PDF.",
			Parameters: "path (required), page (optional)",
		},
		{
			Name:       "overlay_server_info",
			Usage:      "Get server information, tools and available templates.",
			Parameters: "No parameters required",
		},
	}
	for i := range tools {
		tools[i].Description = descriptions.GetToolDescription(tools[i].Name)
	}
	return tools
}

func (p *ServerInfo) getUsageGuidance() string {
	maxFileSizeMB := p.service.maxFileSize / (1024 * 1024)

	return fmt.Sprintf(`PDF Overlay MCP Server Usage Guide:

1. DISCOVER:
   - Use 'overlay_server_info' to list templates in the working directory
   - Use 'overlay_catalog' to see document types and field types

2. PREPARE A TEMPLATE:
   - Use 'overlay_page_sizes' to learn each page's size in points
   - Scale your canvas to the page; the canvas size is sent with every accept

3. PLACE FIELDS:
   - 'overlay_arm' a field type, optionally with slot lengths and a style
   - Draw with 'overlay_pointer' down, move and up events
   - 'overlay_accept' stores the rectangle in PDF points, 'overlay_discard' drops it
   - Boolean and underline fields always take a single one-character slot

4. ADJUST AND RENDER:
   - 'overlay_update_section' edits ranges and styles
   - 'overlay_render' writes the composited PDF
   - 'overlay_read_text' checks where every character landed

IMPORTANT NOTES:
- Paths are relative to the working directory and cannot leave it
- Templates up to %dMB are accepted
- Fonts: Helvetica, Courier, Times-Roman; characters outside WinAnsi print as '?'
- Text is drawn on a baseline at the top edge of the box plus padding`, maxFileSizeMB)
}

// ClearCache clears expired cache entries
func (p *ServerInfo) ClearCache() {
	p.cache.Clear()
}

// GetCacheStats returns cache statistics
func (p *ServerInfo) GetCacheStats() map[string]interface{} {
	total, valid := p.cache.Stats()
	return map[string]interface{}{
		"total_entries":     total,
		"valid_entries":     valid,
		"cache_ttl_minutes": p.cache.ttl.Minutes(),
	}
}
