package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort         = 8080
	DefaultHost         = "127.0.0.1"
	DefaultLogLevel     = "info"
	DefaultMaxFileSize  = 100 * 1024 * 1024 // 100MB
	DefaultDocumentType = 1
	DefaultMetricsCache = 64
	DefaultMinExtent    = 1.0

	// Directory permissions
	DefaultDirPerm = 0o750

	// EnvPrefix prefixes every environment variable
	EnvPrefix = "MCP_PDF_OVERLAY"
)

// Config holds all configuration for the PDF overlay MCP server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Directory holding templates, definitions and rendered output
	PDFDirectory string

	// Editor configuration
	CatalogPath   string // JSON or YAML catalog; empty uses the built-in mock catalog
	DocumentType  int
	MetricsCache  int     // font metrics LRU capacity
	MinExtent     float64 // smallest accepted rectangle side, in canvas pixels
	RejectOverlap bool

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:         ModeStdio, // Default to stdio mode for MCP compatibility
		Host:         DefaultHost,
		Port:         DefaultPort,
		PDFDirectory: currentDir,
		DocumentType: DefaultDocumentType,
		MetricsCache: DefaultMetricsCache,
		MinExtent:    DefaultMinExtent,
		Version:      "1.0.0",
		ServerName:   "mcp-pdf-overlay",
		LogLevel:     DefaultLogLevel,
		MaxFileSize:  DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	if cfg.PDFDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.PDFDirectory); err == nil {
			cfg.PDFDirectory = expandedPath
		}
	}
	if cfg.CatalogPath != "" {
		if expandedPath, err := filepath.Abs(cfg.CatalogPath); err == nil {
			cfg.CatalogPath = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.PDFDirectory)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("catalog", cfg.CatalogPath)
	viper.SetDefault("documenttype", cfg.DocumentType)
	viper.SetDefault("metricscache", cfg.MetricsCache)
	viper.SetDefault("minextent", cfg.MinExtent)
	viper.SetDefault("rejectoverlap", cfg.RejectOverlap)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.PDFDirectory, "Directory containing templates, definitions and output")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	pflag.String("catalog", cfg.CatalogPath, "Document catalog file (JSON or YAML); built-in sample when empty")
	pflag.Int("documenttype", cfg.DocumentType, "Document type ID the editor lays out")
	pflag.Int("metricscache", cfg.MetricsCache, "Number of font/size metrics kept in memory")
	pflag.Float64("minextent", cfg.MinExtent, "Smallest rectangle side accepted, in canvas pixels")
	pflag.Bool("rejectoverlap", cfg.RejectOverlap, "Reject sections that overlap another section of the same field")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, key := range []string{
		"mode", "host", "port", "dir", "loglevel", "maxfilesize",
		"catalog", "documenttype", "metricscache", "minextent", "rejectoverlap",
	} {
		_ = viper.BindPFlag(key, pflag.Lookup(key))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP PDF Overlay - A Model Context Protocol server for placing text fields on PDF templates\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                         "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/forms                    "+
			"# stdio mode with custom directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --catalog=catalog.yaml --documenttype=3 "+
			"# lay out a document type from a catalog\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --host=0.0.0.0 --port=8081 # server on all interfaces\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  %s_MODE          Server mode\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_HOST          Server host\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_PORT          Server port\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_DIR           Working directory\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_LOGLEVEL      Log level\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_MAXFILESIZE   Maximum file size\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_CATALOG       Document catalog file\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_DOCUMENTTYPE  Document type ID\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_METRICSCACHE  Font metrics cache size\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_MINEXTENT     Minimum rectangle size\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_REJECTOVERLAP Reject overlapping sections\n", EnvPrefix)
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.PDFDirectory = viper.GetString("dir")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.CatalogPath = viper.GetString("catalog")
	cfg.DocumentType = viper.GetInt("documenttype")
	cfg.MetricsCache = viper.GetInt("metricscache")
	cfg.MinExtent = viper.GetFloat64("minextent")
	cfg.RejectOverlap = viper.GetBool("rejectoverlap")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	// Validate PDF directory
	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}

	// Check if PDF directory exists, create if it doesn't
	if _, err := os.Stat(c.PDFDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.PDFDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create PDF directory %s: %w", c.PDFDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access PDF directory %s: %w", c.PDFDirectory, err)
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.CatalogPath != "" {
		info, err := os.Stat(c.CatalogPath)
		if err != nil {
			return fmt.Errorf("cannot access catalog %s: %w", c.CatalogPath, err)
		}
		if info.IsDir() {
			return fmt.Errorf("catalog must be a file: %s", c.CatalogPath)
		}
	}

	if c.DocumentType < 1 {
		return errors.New("document type must be a positive ID")
	}
	if c.MetricsCache < 1 {
		return errors.New("metrics cache size must be positive")
	}
	if c.MinExtent < 0 {
		return errors.New("minimum extent cannot be negative")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, Catalog: %q, DocumentType: %d, "+
		"MetricsCache: %d, MinExtent: %g, RejectOverlap: %t, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.CatalogPath, c.DocumentType,
		c.MetricsCache, c.MinExtent, c.RejectOverlap, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
