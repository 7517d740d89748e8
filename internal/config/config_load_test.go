package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var envKeys = []string{
	"MODE", "HOST", "PORT", "DIR", "LOGLEVEL", "MAXFILESIZE",
	"CATALOG", "DOCUMENTTYPE", "METRICSCACHE", "MINEXTENT", "REJECTOVERLAP",
}

// resetFlags gives every test a fresh flag set and viper instance
func resetFlags() {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	viper.Reset()
}

func clearEnvVars() {
	for _, k := range envKeys {
		os.Unsetenv(EnvPrefix + "_" + k)
	}
}

// withArgs runs LoadFromFlags with args as the command line
func withArgs(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	originalArgs := os.Args
	t.Cleanup(func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	})

	os.Args = append([]string{"mcp-pdf-overlay"}, args...)
	resetFlags()
	return LoadFromFlags()
}

func TestLoadFromFlags_DefaultConfig(t *testing.T) {
	clearEnvVars()
	cfg, err := withArgs(t)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != ModeStdio {
		t.Errorf("Mode = %v, want %v", cfg.Mode, ModeStdio)
	}
	if cfg.Host != DefaultHost {
		t.Errorf("Host = %v, want %v", cfg.Host, DefaultHost)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %v, want %v", cfg.Port, DefaultPort)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, DefaultLogLevel)
	}
	if cfg.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("MaxFileSize = %v, want %v", cfg.MaxFileSize, DefaultMaxFileSize)
	}
	if cfg.CatalogPath != "" {
		t.Errorf("CatalogPath = %q, want empty", cfg.CatalogPath)
	}
	if cfg.DocumentType != DefaultDocumentType {
		t.Errorf("DocumentType = %v, want %v", cfg.DocumentType, DefaultDocumentType)
	}
	if cfg.MetricsCache != DefaultMetricsCache {
		t.Errorf("MetricsCache = %v, want %v", cfg.MetricsCache, DefaultMetricsCache)
	}
	if cfg.MinExtent != DefaultMinExtent {
		t.Errorf("MinExtent = %v, want %v", cfg.MinExtent, DefaultMinExtent)
	}
	if cfg.PDFDirectory == "" {
		t.Error("PDFDirectory should not be empty")
	}
}

func TestLoadFromFlags_ValidFlags(t *testing.T) {
	catalogDir := t.TempDir()
	catalog := filepath.Join(catalogDir, "catalog.yaml")
	if err := os.WriteFile(catalog, []byte("documents: []\n"), 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}

	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "server mode with custom host and port",
			args: []string{"--mode=server", "--host=0.0.0.0", "--port=9090"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Mode != ModeServer || cfg.Host != "0.0.0.0" || cfg.Port != 9090 {
					t.Errorf("got %s", cfg)
				}
			},
		},
		{
			name: "debug logging",
			args: []string{"--loglevel=debug"},
			check: func(t *testing.T, cfg *Config) {
				if !cfg.IsDebug() {
					t.Errorf("expected debug, got %s", cfg.LogLevel)
				}
			},
		},
		{
			name: "custom max file size",
			args: []string{"--maxfilesize=50000000"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.MaxFileSize != 50000000 {
					t.Errorf("MaxFileSize = %d", cfg.MaxFileSize)
				}
			},
		},
		{
			name: "editor settings",
			args: []string{"--catalog=" + catalog, "--documenttype=3", "--metricscache=8", "--minextent=4.5", "--rejectoverlap"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.CatalogPath != catalog {
					t.Errorf("CatalogPath = %q, want %q", cfg.CatalogPath, catalog)
				}
				if cfg.DocumentType != 3 || cfg.MetricsCache != 8 || cfg.MinExtent != 4.5 || !cfg.RejectOverlap {
					t.Errorf("got %s", cfg)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars()
			cfg, err := withArgs(t, append(tt.args, "--dir="+t.TempDir())...)
			if err != nil {
				t.Fatalf("LoadFromFlags() unexpected error: %v", err)
			}
			if !filepath.IsAbs(cfg.PDFDirectory) {
				t.Errorf("PDFDirectory %q should be absolute", cfg.PDFDirectory)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromFlags_EnvironmentVariables(t *testing.T) {
	tempDir := t.TempDir()
	clearEnvVars()

	os.Setenv(EnvPrefix+"_MODE", "server")
	os.Setenv(EnvPrefix+"_HOST", "192.168.1.1")
	os.Setenv(EnvPrefix+"_PORT", "3000")
	os.Setenv(EnvPrefix+"_DIR", tempDir)
	os.Setenv(EnvPrefix+"_LOGLEVEL", "warn")
	os.Setenv(EnvPrefix+"_MAXFILESIZE", "200000000")
	os.Setenv(EnvPrefix+"_DOCUMENTTYPE", "2")
	os.Setenv(EnvPrefix+"_MINEXTENT", "0")

	cfg, err := withArgs(t)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != ModeServer {
		t.Errorf("Mode = %v, want %v", cfg.Mode, ModeServer)
	}
	if cfg.Host != "192.168.1.1" {
		t.Errorf("Host = %v, want %v", cfg.Host, "192.168.1.1")
	}
	if cfg.Port != 3000 {
		t.Errorf("Port = %v, want %v", cfg.Port, 3000)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, "warn")
	}
	if cfg.MaxFileSize != 200000000 {
		t.Errorf("MaxFileSize = %v, want %v", cfg.MaxFileSize, 200000000)
	}
	if cfg.DocumentType != 2 {
		t.Errorf("DocumentType = %v, want 2", cfg.DocumentType)
	}
	if cfg.MinExtent != 0 {
		t.Errorf("MinExtent = %v, want 0", cfg.MinExtent)
	}
}

func TestLoadFromFlags_FlagOverridesEnvironment(t *testing.T) {
	clearEnvVars()
	os.Setenv(EnvPrefix+"_MODE", "server")
	os.Setenv(EnvPrefix+"_HOST", "192.168.1.1")
	os.Setenv(EnvPrefix+"_PORT", "3000")

	cfg, err := withArgs(t, "--mode=stdio", "--host=localhost", "--port=8888", "--dir="+t.TempDir())
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != ModeStdio {
		t.Errorf("Mode = %v, want %v (should override env)", cfg.Mode, ModeStdio)
	}
	if cfg.Host != "localhost" {
		t.Errorf("Host = %v, want %v (should override env)", cfg.Host, "localhost")
	}
	if cfg.Port != 8888 {
		t.Errorf("Port = %v, want %v (should override env)", cfg.Port, 8888)
	}
}

func TestLoadFromFlags_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "mode", args: []string{"--mode=invalid"}, wantErr: "mode must be either 'stdio' or 'server'"},
		{name: "port", args: []string{"--mode=server", "--port=99999"}, wantErr: "port must be between 1 and 65535"},
		{name: "log level", args: []string{"--loglevel=invalid"}, wantErr: "invalid log level"},
		{name: "missing catalog", args: []string{"--catalog=/does/not/exist.yaml"}, wantErr: "cannot access catalog"},
		{name: "document type", args: []string{"--documenttype=0"}, wantErr: "document type must be a positive ID"},
		{name: "metrics cache", args: []string{"--metricscache=0"}, wantErr: "metrics cache size must be positive"},
		{name: "min extent", args: []string{"--minextent=-1"}, wantErr: "minimum extent cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars()
			_, err := withArgs(t, append(tt.args, "--dir="+t.TempDir())...)
			if err == nil {
				t.Fatalf("LoadFromFlags() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadFromFlags() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFlags_VersionFlag(t *testing.T) {
	clearEnvVars()
	_, err := withArgs(t, "--version")
	if err == nil || err.Error() != "version requested" {
		t.Errorf("LoadFromFlags() error = %v, want 'version requested'", err)
	}
}
