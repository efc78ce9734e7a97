// Package dashboard is the relational event store and listing service.
// It ingests the same event shape as the analyzer but persists it
// independently; the two stores are deliberately not synchronized.
package dashboard

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"aegismesh/pkg/telemetry"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store wraps the Postgres events table.
type Store struct {
	db *sql.DB
}

// OpenStore connects to Postgres and verifies the connection.
func OpenStore(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("dashboard: open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("dashboard: ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate() error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("dashboard: migration source: %w", err)
	}
	driver, err := postgres.WithInstance(s.db, &postgres.Config{MigrationsTable: "schema_migrations"})
	if err != nil {
		return fmt.Errorf("dashboard: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("dashboard: migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("dashboard: apply migrations: %w", err)
	}
	return nil
}

// EventRow is one persisted dashboard event.
type EventRow struct {
	ID        int64     `json:"id"`
	SourceIP  string    `json:"source_ip"`
	Service   string    `json:"service"`
	Path      string    `json:"path,omitempty"`
	Payload   string    `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RiskScore float64   `json:"risk_score"`
}

// InsertEvent stores one event and returns its row ID.
func (s *Store) InsertEvent(ctx context.Context, ev telemetry.Event) (int64, error) {
	risk := 0.0
	if ev.RiskScore != nil {
		risk = *ev.RiskScore
	}

	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO events (source_ip, service, path, payload, risk_score)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		ev.SourceIP, ev.Service, ev.Path, ev.Payload, risk,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("dashboard: insert event: %w", err)
	}
	return id, nil
}

// ListEvents returns the most recent events, newest first.
func (s *Store) ListEvents(ctx context.Context, limit int) ([]EventRow, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_ip, service, COALESCE(path, ''), COALESCE(payload, ''), timestamp, risk_score
		 FROM events ORDER BY timestamp DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("dashboard: list events: %w", err)
	}
	defer rows.Close()

	out := make([]EventRow, 0, limit)
	for rows.Next() {
		var row EventRow
		if err := rows.Scan(&row.ID, &row.SourceIP, &row.Service, &row.Path, &row.Payload, &row.Timestamp, &row.RiskScore); err != nil {
			return nil, fmt.Errorf("dashboard: scan event row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dashboard: iterate event rows: %w", err)
	}
	return out, nil
}

// Close releases the database pool.
func (s *Store) Close() error {
	return s.db.Close()
}
