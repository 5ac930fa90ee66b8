package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/BartekS5/cardsync/pkg/models"
)

const (
	createMappingsTable = `IF OBJECT_ID(N'sync_mappings', N'U') IS NULL
CREATE TABLE sync_mappings (
	id INT IDENTITY(1,1) PRIMARY KEY,
	source_server NVARCHAR(255) NOT NULL,
	source_entity_id NVARCHAR(255) NOT NULL,
	destination_server NVARCHAR(255) NOT NULL,
	destination_entity_id NVARCHAR(255) NOT NULL,
	type NVARCHAR(32) NOT NULL,
	CONSTRAINT uq_sync_mappings_natural_key UNIQUE (source_entity_id, destination_server, type)
)`
	createLogTable = `IF OBJECT_ID(N'sync_log', N'U') IS NULL
CREATE TABLE sync_log (
	id NVARCHAR(36) PRIMARY KEY,
	created_at DATETIME2 NOT NULL,
	status NVARCHAR(16) NOT NULL,
	source_hosts NVARCHAR(MAX) NOT NULL,
	destination_hosts NVARCHAR(MAX) NOT NULL,
	detailed_records NVARCHAR(MAX) NOT NULL
)`

	selectMappings = "SELECT source_server, source_entity_id, destination_server, destination_entity_id, type FROM sync_mappings"
	keyClause      = "source_entity_id = @p1 AND destination_server = @p2 AND type = @p3"
)

// SQLStore keeps mappings in SQL Server.
type SQLStore struct {
	DB *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: db}
}

// EnsureSchema creates the mapping and batch log tables when missing.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{createMappingsTable, createLogTable} {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) Find(ctx context.Context, filter models.MappingFilter) ([]models.SyncMapping, error) {
	var (
		conds []string
		args  []any
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = @p%d", column, len(args)))
	}
	add("source_entity_id", filter.SourceEntityID)
	add("type", string(filter.Type))
	add("source_server", filter.SourceServer)
	add("destination_server", filter.DestinationServer)

	query := selectMappings
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer rows.Close()

	var out []models.SyncMapping
	for rows.Next() {
		var (
			m   models.SyncMapping
			typ string
		)
		if err := rows.Scan(&m.SourceServer, &m.SourceEntityID, &m.DestinationServer, &m.DestinationEntityID, &typ); err != nil {
			return nil, err
		}
		m.Type = models.EntityType(typ)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLStore) Create(ctx context.Context, m models.SyncMapping) error {
	_, err := s.DB.ExecContext(ctx,
		"INSERT INTO sync_mappings (source_server, source_entity_id, destination_server, destination_entity_id, type) VALUES (@p1, @p2, @p3, @p4, @p5)",
		m.SourceServer, m.SourceEntityID, m.DestinationServer, m.DestinationEntityID, string(m.Type))
	if err != nil {
		return fmt.Errorf("failed to create mapping %s: %w", naturalKey(m), err)
	}
	return nil
}

func (s *SQLStore) Update(ctx context.Context, m models.SyncMapping) error {
	res, err := s.DB.ExecContext(ctx,
		"UPDATE sync_mappings SET destination_entity_id = @p4, source_server = @p5 WHERE "+keyClause,
		m.SourceEntityID, m.DestinationServer, string(m.Type), m.DestinationEntityID, m.SourceServer)
	if err != nil {
		return fmt.Errorf("failed to update mapping %s: %w", naturalKey(m), err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &models.NotFoundError{Kind: "mapping", ID: naturalKey(m)}
	}
	return nil
}

// Upsert checks for the row first, then inserts or updates it.
func (s *SQLStore) Upsert(ctx context.Context, m models.SyncMapping) error {
	var exists int
	err := s.DB.QueryRowContext(ctx, "SELECT 1 FROM sync_mappings WHERE "+keyClause,
		m.SourceEntityID, m.DestinationServer, string(m.Type)).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return s.Create(ctx, m)
	case err != nil:
		return fmt.Errorf("failed to look up mapping %s: %w", naturalKey(m), err)
	default:
		return s.Update(ctx, m)
	}
}

func (s *SQLStore) DeleteForEntity(ctx context.Context, host, entityID string, t models.EntityType) (int, error) {
	res, err := s.DB.ExecContext(ctx,
		"DELETE FROM sync_mappings WHERE type = @p1 AND ((source_server = @p2 AND source_entity_id = @p3) OR (destination_server = @p2 AND destination_entity_id = @p3))",
		string(t), host, entityID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete mappings of %s %s on %s: %w", t, entityID, host, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLStore) Purge(ctx context.Context, hosts []string) (int, error) {
	if len(hosts) == 0 {
		return 0, nil
	}
	params := make([]string, len(hosts))
	args := make([]any, len(hosts))
	for i, h := range hosts {
		params[i] = fmt.Sprintf("@p%d", i+1)
		args[i] = h
	}
	in := strings.Join(params, ", ")
	res, err := s.DB.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM sync_mappings WHERE source_server IN (%s) OR destination_server IN (%s)", in, in),
		args...)
	if err != nil {
		return 0, fmt.Errorf("failed to purge mappings: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLStore) RecordBatch(ctx context.Context, rec models.BatchRecord) error {
	sources, _ := json.Marshal(rec.SourceHosts)
	dests, _ := json.Marshal(rec.DestinationHosts)
	items, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("failed to encode batch %s: %w", rec.ID, err)
	}
	_, err = s.DB.ExecContext(ctx,
		"INSERT INTO sync_log (id, created_at, status, source_hosts, destination_hosts, detailed_records) VALUES (@p1, @p2, @p3, @p4, @p5, @p6)",
		rec.ID, rec.Timestamp, string(rec.Outcome), string(sources), string(dests), string(items))
	if err != nil {
		return fmt.Errorf("failed to record batch %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLStore) Close(context.Context) error {
	return s.DB.Close()
}
