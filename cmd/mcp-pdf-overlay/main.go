package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/a3tai/mcp-pdf-overlay/internal/capture"
	"github.com/a3tai/mcp-pdf-overlay/internal/config"
	"github.com/a3tai/mcp-pdf-overlay/internal/document"
	"github.com/a3tai/mcp-pdf-overlay/internal/editor"
	"github.com/a3tai/mcp-pdf-overlay/internal/fontmetrics"
	"github.com/a3tai/mcp-pdf-overlay/internal/mcp"
	"github.com/a3tai/mcp-pdf-overlay/internal/pdf"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the server mode
func setupLogging(cfg *config.Config) {
	if cfg.IsStdioMode() {
		// stdout carries the MCP protocol
		log.SetOutput(os.Stderr)
		if !cfg.IsDebug() {
			log.SetOutput(io.Discard)
		}
	} else {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
}

// loadCatalog reads the configured catalog, or the built-in sample when none
// is configured
func loadCatalog(cfg *config.Config) (*document.Catalog, error) {
	if cfg.CatalogPath == "" {
		return document.MockCatalog(), nil
	}
	return document.LoadCatalogFile(cfg.CatalogPath)
}

// buildServer wires the metrics provider, PDF service and editor into an MCP
// server
func buildServer(cfg *config.Config) (*mcp.Server, error) {
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	metrics := fontmetrics.NewProvider(cfg.MetricsCache, fontmetrics.WithDebug(cfg.IsDebug()))

	pdfService, err := pdf.NewService(cfg.MaxFileSize, cfg.PDFDirectory, metrics,
		pdf.WithCatalog(catalog),
		pdf.WithDebug(cfg.IsDebug()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF service: %w", err)
	}
	if err := pdfService.ValidateConfiguration(); err != nil {
		return nil, err
	}

	var policy document.OverlapPolicy = document.AllowOverlap{}
	if cfg.RejectOverlap {
		policy = document.RejectOverlap{}
	}

	ed, err := editor.New(catalog, cfg.DocumentType, metrics, pdfService.Renderer(),
		editor.WithOverlapPolicy(policy),
		editor.WithDebug(cfg.IsDebug()),
		editor.WithCaptureOptions(
			capture.WithMinExtent(cfg.MinExtent),
			capture.WithDebug(cfg.IsDebug()),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create editor: %w", err)
	}

	return mcp.NewServer(cfg, pdfService, ed)
}

// runServerMode handles server mode execution with signal handling
func runServerMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		log.Printf("Received signal: %s", sig)
		log.Println("Initiating graceful shutdown...")
		cancel()

		if err := <-serverErrCh; err != nil {
			log.Printf("Server shutdown with error: %v", err)
			os.Exit(1)
		}

	case err := <-serverErrCh:
		if err != nil {
			log.Printf("Server error: %v", err)
			os.Exit(1)
		}
	}

	log.Println("Server stopped successfully")
}

// runStdioMode handles stdio mode execution
func runStdioMode(ctx context.Context, _ context.CancelFunc, server *mcp.Server) {
	// The parent process controls our lifecycle; exit when stdin closes.
	if err := server.Run(ctx); err != nil {
		if os.Getenv("DEBUG") != "" {
			log.Printf("Server error: %v", err)
		}
		os.Exit(1)
	}
}

func hasVersionFlag(args []string) bool {
	for _, arg := range args {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return true
		}
	}
	return false
}

func main() {
	if hasVersionFlag(os.Args[1:]) {
		printVersion(os.Stdout)
		return
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)

	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() && cfg.IsServerMode() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	server, err := buildServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.IsServerMode() {
		runServerMode(ctx, cancel, server)
	} else {
		runStdioMode(ctx, cancel, server)
	}
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "MCP PDF Overlay\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
