// Package config handles the application settings read from the environment
// and the server configuration documents the sync runs against.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Mapping store backends.
const (
	StoreMongo     = "mongo"
	StoreSQLServer = "sqlserver"
	StoreMemory    = "memory"
)

// Config holds all configuration for the application,
// typically loaded from environment variables.
type Config struct {
	MappingStore    string
	MongoConnString string
	MongoDatabase   string
	SQLConnString   string
	LogFile         string
	LogLevel        string
	Concurrency     int
}

// LoadConfig loads application settings from environment variables
// (which should be populated by the .env file in main.go).
func LoadConfig() (*Config, error) {
	cfg := &Config{
		MappingStore:    getenv("MAPPING_STORE", StoreMongo),
		MongoConnString: os.Getenv("MONGO_CONNECTION_STRING"),
		MongoDatabase:   getenv("MONGO_DATABASE", "cardsync"),
		SQLConnString:   os.Getenv("SQL_CONNECTION_STRING"),
		Concurrency:     4,
	}
	cfg.LogFile, cfg.LogLevel = LogSettings()

	if raw := os.Getenv("SYNC_CONCURRENCY"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("SYNC_CONCURRENCY must be a positive integer, got %q", raw)
		}
		cfg.Concurrency = n
	}

	switch cfg.MappingStore {
	case StoreMongo:
		if cfg.MongoConnString == "" {
			return nil, fmt.Errorf("MONGO_CONNECTION_STRING environment variable not set")
		}
	case StoreSQLServer:
		if cfg.SQLConnString == "" {
			return nil, fmt.Errorf("SQL_CONNECTION_STRING environment variable not set")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("unknown MAPPING_STORE %q (want %s, %s or %s)", cfg.MappingStore, StoreMongo, StoreSQLServer, StoreMemory)
	}

	return cfg, nil
}

// LogSettings returns the log file and level without validating anything
// else, so logging can start before the rest of the configuration loads.
func LogSettings() (file, level string) {
	return getenv("LOG_FILE", "cardsync.log"), getenv("LOG_LEVEL", "info")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
