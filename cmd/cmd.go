// Package cmd provides CLI commands for selldesk.
//
// Commands:
//   - serve: HTTP API server with the indexing worker pool
//   - index: run one indexing run synchronously and print the result
//   - status: print a cabinet's indexing state
//   - migrate: apply pending database migrations
//
// Signal handling and graceful shutdown are implemented for all long-running
// commands via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
)

// Execute is the main entry point for the selldesk CLI application.
func Execute() error {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "index":
		return runIndex(os.Args[2:])
	case "status":
		return runStatus(os.Args[2:])
	case "migrate":
		return runMigrate()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("selldesk - incremental RAG indexing for marketplace seller cabinets")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  selldesk serve                     Start the HTTP API and indexing workers")
	fmt.Println("  selldesk index --cabinet N [--full] Run one indexing run and print the result")
	fmt.Println("  selldesk status --cabinet N        Show a cabinet's indexing state")
	fmt.Println("  selldesk migrate                   Apply pending database migrations")
	fmt.Println("  selldesk --version                 Show version information")
	fmt.Println("  selldesk --help                    Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY     Required: Gemini API key for embeddings")
	fmt.Println("  DATABASE_URL       Optional: overrides postgres_* config keys")
	fmt.Println("  DEBUG              Optional: enable debug logging")
}
