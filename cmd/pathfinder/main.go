package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/pathfinder-heatmap/internal/config"
	"github.com/ironsheep/pathfinder-heatmap/internal/ocr"
	"github.com/ironsheep/pathfinder-heatmap/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("pathfinder %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			fmt.Printf("  Tesseract:  %s\n", ocr.TesseractVersion())
			return
		case "--help", "-h", "help":
			fmt.Println("pathfinder - movement heatmaps from fixed camera photos")
			fmt.Println()
			fmt.Println("Usage: pathfinder [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Printf("  %s=<dir>       Data directory; jobs live in <dir>/jobs (default .)\n", config.EnvDir)
			fmt.Printf("  %s=debug  Enable debug logging\n", config.EnvLogLevel)
			fmt.Printf("  %s=<n>     Parallel detection and decoding (default GOMAXPROCS)\n", config.EnvWorkers)
			fmt.Printf("  %s=<dir>  Tesseract traineddata directory\n", config.EnvTessdata)
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	settings, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	config.SetDebug(settings.Debug())
	config.Debugf("pathfinder v%s (built %s, commit %s) root=%s workers=%d",
		Version, BuildTime, GitCommit, settings.Root, settings.Workers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server.Version = Version
	srv := server.New(settings)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Server error: %v", err)
	}
}
