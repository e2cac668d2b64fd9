package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tobyward/sitegen/internal/api"
	"github.com/tobyward/sitegen/internal/config"
	"github.com/tobyward/sitegen/internal/events"
	"github.com/tobyward/sitegen/internal/generate"
	"github.com/tobyward/sitegen/internal/provider"
	"github.com/tobyward/sitegen/internal/sandbox"
	"github.com/tobyward/sitegen/internal/storage"
	"github.com/tobyward/sitegen/internal/store"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "watch":
		if err := runWatch(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("sitegen %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: sitegen <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  serve     Start the sitegen service")
	fmt.Fprintln(os.Stderr, "  watch     Watch a session's progress events in a TUI")
	fmt.Fprintln(os.Stderr, "  version   Print version")
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.Service.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	logger.Info("starting sitegen", "version", version, "config", *configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open SQLite
	db, err := storage.OpenSQLite(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	gens := store.NewGenerationStore(db)

	// Progress event hub
	hub := events.NewHub(logger)

	// Sandbox provider and registry
	e2b := sandbox.NewClient(cfg.Sandbox.BaseURL, cfg.Sandbox.APIKey, cfg.Sandbox.CreateTimeout, logger)
	registry := sandbox.NewRegistry(e2b, cfg.Sandbox, logger)

	// LLM provider
	chatModel, err := provider.NewChatModel(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("create llm provider: %w", err)
	}

	orchestrator := generate.NewOrchestrator(chatModel, registry, hub, gens, cfg.Generate.SystemPrompt, logger)

	// Create and start API server
	srv := api.New(api.Config{
		Listen: cfg.API.Listen,
	}, orchestrator, registry, gens, hub, logger)

	// Signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
		<-errCh
		return nil
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			return err
		}
		return nil
	}
}
