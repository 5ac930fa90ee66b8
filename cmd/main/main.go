package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/BartekS5/cardsync/internal/cli"
	"github.com/BartekS5/cardsync/internal/config"
	"github.com/BartekS5/cardsync/pkg/logger"
	"github.com/joho/godotenv"
)

func main() {
	envErr := godotenv.Load()

	logFile, level := config.LogSettings()
	if err := logger.InitLogger(logFile, logger.ParseLevel(level)); err != nil {
		logger.Errorf("Failed to open log file %s: %v", logFile, err)
	}
	defer logger.Close()

	if envErr != nil {
		logger.Infof("No .env file found, using system environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := cli.NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Close()
		os.Exit(1)
	}
}
