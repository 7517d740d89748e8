package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mode != "stdio" {
		t.Errorf("Expected default mode to be 'stdio', got '%s'", cfg.Mode)
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("Expected default host to be '127.0.0.1', got '%s'", cfg.Host)
	}
	if cfg.Port != 8080 {
		t.Errorf("Expected default port to be 8080, got %d", cfg.Port)
	}
	if cfg.ServerName != "mcp-pdf-overlay" {
		t.Errorf("Expected default server name to be 'mcp-pdf-overlay', got '%s'", cfg.ServerName)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level to be 'info', got '%s'", cfg.LogLevel)
	}
	if cfg.MaxFileSize != 100*1024*1024 {
		t.Errorf("Expected default max file size to be 100MB, got %d", cfg.MaxFileSize)
	}
	if cfg.DocumentType != 1 {
		t.Errorf("Expected default document type 1, got %d", cfg.DocumentType)
	}
	if cfg.MinExtent != 1 {
		t.Errorf("Expected default min extent 1, got %g", cfg.MinExtent)
	}
	if cfg.RejectOverlap {
		t.Error("Expected overlap to be allowed by default")
	}

	currentDir, _ := os.Getwd()
	if cfg.PDFDirectory != currentDir {
		t.Errorf("Expected default PDF directory to be '%s', got '%s'", currentDir, cfg.PDFDirectory)
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.PDFDirectory = t.TempDir()
	return cfg
}

func TestConfigValidate(t *testing.T) {
	catalogDir := t.TempDir()
	catalog := filepath.Join(catalogDir, "catalog.json")
	if err := os.WriteFile(catalog, []byte(`{"documents": []}`), 0o644); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "valid config - stdio mode", modify: func(*Config) {}},
		{name: "valid config - server mode", modify: func(c *Config) { c.Mode = ModeServer; c.Port = 9000 }},
		{name: "valid catalog", modify: func(c *Config) { c.CatalogPath = catalog }},
		{name: "zero min extent", modify: func(c *Config) { c.MinExtent = 0 }},
		{name: "stdio ignores port", modify: func(c *Config) { c.Port = 0 }},
		{name: "invalid mode", modify: func(c *Config) { c.Mode = "grpc" }, wantErr: "mode must be"},
		{name: "server port zero", modify: func(c *Config) { c.Mode = ModeServer; c.Port = 0 }, wantErr: "port must be"},
		{name: "server port too high", modify: func(c *Config) { c.Mode = ModeServer; c.Port = 70000 }, wantErr: "port must be"},
		{name: "empty directory", modify: func(c *Config) { c.PDFDirectory = "" }, wantErr: "PDF directory cannot be empty"},
		{name: "zero max file size", modify: func(c *Config) { c.MaxFileSize = 0 }, wantErr: "maximum file size"},
		{name: "catalog missing", modify: func(c *Config) { c.CatalogPath = filepath.Join(catalogDir, "none.yaml") }, wantErr: "cannot access catalog"},
		{name: "catalog is directory", modify: func(c *Config) { c.CatalogPath = catalogDir }, wantErr: "catalog must be a file"},
		{name: "document type", modify: func(c *Config) { c.DocumentType = -2 }, wantErr: "document type"},
		{name: "metrics cache", modify: func(c *Config) { c.MetricsCache = 0 }, wantErr: "metrics cache"},
		{name: "negative min extent", modify: func(c *Config) { c.MinExtent = -0.5 }, wantErr: "minimum extent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Config.Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Config.Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidateDirectoryCreation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "non-existent", "forms")

	cfg := validConfig(t)
	cfg.PDFDirectory = dir
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Config.Validate() unexpected error: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Directory should have been created: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("%s is not a directory", dir)
	}
}

func TestConfigValidateLogLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := validConfig(t)
		cfg.LogLevel = level
		if err := cfg.Validate(); err != nil {
			t.Errorf("log level %q should be valid: %v", level, err)
		}
	}
	for _, level := range []string{"DEBUG", "INFO", "trace", "fatal", ""} {
		cfg := validConfig(t)
		cfg.LogLevel = level
		if err := cfg.Validate(); err == nil {
			t.Errorf("log level %q should be invalid", level)
		}
	}
}

func TestConfigAddress(t *testing.T) {
	cfg := &Config{Host: "localhost", Port: 9090}
	if got := cfg.Address(); got != "localhost:9090" {
		t.Errorf("Address() = %q, want %q", got, "localhost:9090")
	}
}

func TestConfigModes(t *testing.T) {
	tests := []struct {
		mode       string
		logLevel   string
		wantServer bool
		wantStdio  bool
		wantDebug  bool
	}{
		{mode: ModeServer, logLevel: "info", wantServer: true},
		{mode: ModeStdio, logLevel: "debug", wantStdio: true, wantDebug: true},
		{mode: "other", logLevel: "warn"},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			cfg := &Config{Mode: tt.mode, LogLevel: tt.logLevel}
			if cfg.IsServerMode() != tt.wantServer {
				t.Errorf("IsServerMode() = %v", cfg.IsServerMode())
			}
			if cfg.IsStdioMode() != tt.wantStdio {
				t.Errorf("IsStdioMode() = %v", cfg.IsStdioMode())
			}
			if cfg.IsDebug() != tt.wantDebug {
				t.Errorf("IsDebug() = %v", cfg.IsDebug())
			}
		})
	}
}

func TestConfigString(t *testing.T) {
	cfg := &Config{
		Mode:          "server",
		Host:          "localhost",
		Port:          8080,
		PDFDirectory:  "/home/user/forms",
		CatalogPath:   "/etc/overlay/catalog.yaml",
		DocumentType:  4,
		MetricsCache:  16,
		MinExtent:     2.5,
		RejectOverlap: true,
		LogLevel:      "debug",
		MaxFileSize:   1024,
	}

	result := cfg.String()
	for _, substr := range []string{
		"Mode: server",
		"Host: localhost",
		"Port: 8080",
		"PDFDirectory: /home/user/forms",
		`Catalog: "/etc/overlay/catalog.yaml"`,
		"DocumentType: 4",
		"MetricsCache: 16",
		"MinExtent: 2.5",
		"RejectOverlap: true",
		"LogLevel: debug",
		"MaxFileSize: 1024",
	} {
		if !strings.Contains(result, substr) {
			t.Errorf("Config.String() result doesn't contain expected substring: %s\nGot: %s", substr, result)
		}
	}
}
