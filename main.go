package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/korjavin/quizbot/bot"
	"github.com/korjavin/quizbot/config"
	"github.com/korjavin/quizbot/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogMode, cfg.LogFile)
	defer func() { _ = log.Sync() }()
	log.Infow("starting QuizBot", "catalog", cfg.CatalogPath, "db", cfg.DatabasePath)

	b, db, err := bot.New(cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize bot", "error", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infow("bot initialized successfully")
	b.Start(ctx)
}
