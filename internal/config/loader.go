package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BartekS5/cardsync/pkg/logger"
	"github.com/BartekS5/cardsync/pkg/models"
	"gopkg.in/yaml.v3"
)

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadServers reads a server configuration document. Files ending in .yaml
// or .yml are parsed as YAML, everything else as JSON.
func LoadServers(path string) (*models.ServersConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg models.ServersConfig
	if isYAML(path) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}
	return &cfg, nil
}

// SaveServers writes cfg in the format implied by the file extension.
func SaveServers(path string, cfg *models.ServersConfig) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file '%s': %w", path, err)
	}
	return nil
}

// Validate collects every problem of cfg into one ConfigurationError.
// A missing collection reads as the root collection.
func Validate(cfg *models.ServersConfig) error {
	cfgErr := &models.ConfigurationError{}
	if len(cfg.SourceServers) == 0 {
		cfgErr.Add("no source servers configured")
	}
	if len(cfg.DestinationServers) == 0 {
		cfgErr.Add("no destination servers configured")
	}

	check := func(role string, i int, s *models.Server) {
		name := fmt.Sprintf("%s server #%d", role, i+1)
		if s.Host == "" {
			cfgErr.Add("%s: host is required", name)
		} else {
			name = fmt.Sprintf("%s server %s", role, s.Host)
		}
		if s.SessionToken == "" && (s.Email == "" || s.Password == "") {
			cfgErr.Add("%s: session_token or email and password are required", name)
		}
		if s.Database.Int() <= 0 {
			cfgErr.Add("%s: database id is required", name)
		}
		if s.Collection.Int() < models.NoRestriction {
			cfgErr.Add("%s: invalid collection id %d", name, s.Collection.Int())
		}
	}
	for i, s := range cfg.SourceServers {
		check("source", i, s)
	}
	for i, s := range cfg.DestinationServers {
		check("destination", i, s)
	}

	if cfg.Settings.ExcludeRegex != "" {
		if _, err := regexp.Compile(cfg.Settings.ExcludeRegex); err != nil {
			cfgErr.Add("excludeRegex %q: %v", cfg.Settings.ExcludeRegex, err)
		}
	}
	return cfgErr.OrNil()
}

// ServerClient is what hydration needs from an analytics client.
type ServerClient interface {
	Login(ctx context.Context, email, password string) (string, error)
	DatabaseMetadata(ctx context.Context, id int) (*models.DatabaseMeta, error)
	CollectionTree(ctx context.Context) (*models.Collection, error)
	ListDatabases(ctx context.Context) ([]models.Database, error)
}

// Hydrate prepares every server of cfg for use: it logs in where only
// credentials are configured, then loads the schema of the configured
// database, the collection tree and the database list.
func Hydrate(ctx context.Context, cfg *models.ServersConfig, client func(*models.Server) ServerClient) error {
	servers := append(append([]*models.Server{}, cfg.SourceServers...), cfg.DestinationServers...)
	for _, srv := range servers {
		if err := hydrateServer(ctx, srv, client(srv)); err != nil {
			return fmt.Errorf("failed to prepare %s: %w", srv.Host, err)
		}
	}
	return nil
}

func hydrateServer(ctx context.Context, srv *models.Server, c ServerClient) error {
	if srv.SessionToken == "" {
		token, err := c.Login(ctx, srv.Email, srv.Password)
		if err != nil {
			return err
		}
		srv.SessionToken = token
		logger.Infof("Logged in to %s as %s", srv.Host, srv.Email)
	}

	schema, err := c.DatabaseMetadata(ctx, srv.Database.Int())
	if err != nil {
		return err
	}
	srv.Schema = schema

	tree, err := c.CollectionTree(ctx)
	if err != nil {
		return err
	}
	srv.Tree = tree

	databases, err := c.ListDatabases(ctx)
	if err != nil {
		return err
	}
	srv.Databases = databases

	logger.Debugf("Loaded %s: %d tables in database %d, %d databases", srv.Host, len(schema.Tables), srv.Database.Int(), len(databases))
	return nil
}
