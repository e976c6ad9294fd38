// Package cmd contains the command line entry points for the kyna server.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kynahq/kyna/db"
	"github.com/kynahq/kyna/internal/config"
	"github.com/kynahq/kyna/internal/log"
)

// Execute is the main entry point. It routes to a subcommand and returns
// any fatal error to main for exit-code handling.
//
// Design: following the pattern of standard Go server tools, all
// application logic lives in the cmd package and main.go stays minimal.
func Execute() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			printVersion()
			return nil
		case "help", "--help", "-h":
			printHelp()
			return nil
		case "migrate":
			return runMigrate()
		case "serve":
			return runServe()
		default:
			printHelp()
			return fmt.Errorf("unknown command %q", os.Args[1])
		}
	}

	// Serving is the default behavior.
	return runServe()
}

// initLogger builds the process logger. DEBUG in the environment (any
// value) lowers the level to debug.
func initLogger() log.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}

// runMigrate applies pending database migrations and exits.
func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	fmt.Println("migrations applied")
	return nil
}

func printHelp() {
	fmt.Print(`kyna - retrieval-augmented FAQ assistant

Usage:
  kyna [command]

Commands:
  serve      Start the HTTP API server (default)
  migrate    Apply database migrations and exit
  version    Show version information
  help       Show this help

Environment:
  GEMINI_API_KEY      API key for the gemini provider
  OPENAI_API_KEY      API key for the openai provider
  DATABASE_URL        Overrides the configured PostgreSQL connection
  KYNA_PROVIDER       AI provider: gemini, ollama or openai
  DEBUG               Any value enables debug logging

Configuration is read from ~/.kyna/config.yaml or ./config.yaml.
`)
}
