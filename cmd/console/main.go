package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwebster45206/novel-engine/internal/config"
	"github.com/jwebster45206/novel-engine/internal/logger"
	"github.com/jwebster45206/novel-engine/internal/storage"
	"github.com/jwebster45206/novel-engine/pkg/content"
	"github.com/jwebster45206/novel-engine/pkg/game"
	"github.com/jwebster45206/novel-engine/pkg/save"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Log to a file so output does not corrupt the terminal UI.
	logPath := cfg.LogFile
	if logPath == "" {
		logPath = "console.log"
	}
	logFile, err := logger.OpenFile(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v\n", logPath, err)
		os.Exit(1)
	}
	defer func() {
		_ = logFile.Close() // Ignore error in defer
	}()
	log := logger.Setup(cfg, logFile)

	log.Info("Starting novel console",
		"environment", cfg.Environment,
		"content_dir", cfg.ContentDir,
		"storage_backend", cfg.StorageBackend)

	bundle, err := content.Load(cfg.ContentDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load content from %s: %v\n", cfg.ContentDir, err)
		os.Exit(1)
	}
	if err := content.Validate(bundle); err != nil {
		// Authoring problems never stop the engine.
		log.Warn("Content has validation problems", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := storage.New(ctx, cfg, log.With("component", "storage"))
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open %s storage: %v\n", cfg.StorageBackend, err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close storage", "error", err)
		}
	}()

	session := game.NewSession(bundle, store, log,
		game.WithSaveOptions(
			save.WithSlots(cfg.SaveSlots),
			save.WithAutoSaveInterval(cfg.AutoSaveInterval),
			save.WithKeyPrefix(cfg.KeyPrefix),
		))
	defer session.Close()

	if err := session.Boot(context.Background()); err != nil {
		log.Warn("Boot finished with errors", "error", err)
	}

	if err := run(session, log, cfg.AutoSaveInterval); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func run(session *game.Session, log *slog.Logger, autosave time.Duration) error {
	p := tea.NewProgram(NewConsoleUI(session, log, autosave),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithReportFocus())
	if _, err := p.Run(); err != nil {
		return err
	}
	return session.FlushProfile(context.Background())
}
