// Package testutil provides test helpers including container management
// and test client utilities.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/storage/postgres"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance.
type PostgresContainer struct {
	container testcontainers.Container
	Pool      *postgres.Pool
	RawPool   *pgxpool.Pool
	Config    config.DatabaseConfig
}

// NewPostgresContainer starts a PostgreSQL test container and returns
// a connected Pool.
//
// Precondition: Docker must be available.
// Postcondition: Returns a running container with a connected pool,
// or fails the test.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()
	start := time.Now()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v [%s]", err, time.Since(start))
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("getting container host: %v", err)
	}

	mappedPort, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("getting mapped port: %v", err)
	}

	dbCfg := config.DatabaseConfig{
		Host:            host,
		Port:            mappedPort.Int(),
		User:            "test",
		Password:        "test",
		Name:            "test",
		SSLMode:         "disable",
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}

	pool, err := postgres.NewPool(ctx, dbCfg)
	if err != nil {
		t.Fatalf("connecting to test postgres: %v [%s]", err, time.Since(start))
	}

	t.Logf("postgres container started [%s]", time.Since(start))

	pc := &PostgresContainer{
		container: container,
		Pool:      pool,
		RawPool:   pool.DB(),
		Config:    dbCfg,
	}

	t.Cleanup(func() {
		pool.Close()
		_ = container.Terminate(ctx)
	})

	return pc
}

// ApplyMigrations runs the schema creation SQL directly for tests.
// This avoids requiring the migrate tool in the test environment.
//
// Precondition: Pool must be connected.
// Postcondition: The arena event and bet tables exist in the test database.
func (pc *PostgresContainer) ApplyMigrations(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	start := time.Now()

	schema := `
		CREATE TABLE IF NOT EXISTS arena_events (
			id                    TEXT        PRIMARY KEY,
			arena_id              TEXT        NOT NULL,
			type_id               TEXT        NOT NULL,
			name                  TEXT        NOT NULL,
			state                 TEXT        NOT NULL,
			created_at            TIMESTAMPTZ NOT NULL,
			registration_opens_at TIMESTAMPTZ,
			scheduled_at          TIMESTAMPTZ NOT NULL,
			started_at            TIMESTAMPTZ,
			resolved_at           TIMESTAMPTZ,
			completed_at          TIMESTAMPTZ,
			abort_reason          TEXT        NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_arena_events_state ON arena_events (state);
		CREATE TABLE IF NOT EXISTS arena_event_participants (
			event_id   TEXT NOT NULL REFERENCES arena_events (id) ON DELETE CASCADE,
			actor_id   TEXT NOT NULL,
			side_index INT  NOT NULL,
			class      TEXT NOT NULL DEFAULT '',
			stage_name TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (event_id, actor_id)
		);
		CREATE TABLE IF NOT EXISTS arena_bets (
			id                      TEXT             PRIMARY KEY,
			event_id                TEXT             NOT NULL,
			bettor_id               TEXT             NOT NULL,
			side_index              INT,
			stake                   BIGINT           NOT NULL CHECK (stake > 0),
			placed_at               TIMESTAMPTZ      NOT NULL,
			cancelled               BOOLEAN          NOT NULL DEFAULT FALSE,
			cancelled_at            TIMESTAMPTZ,
			locked_odds             DOUBLE PRECISION NOT NULL DEFAULT 0,
			pool_stake_at_placement BIGINT           NOT NULL DEFAULT 0
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_arena_bets_one_active
			ON arena_bets (event_id, bettor_id) WHERE NOT cancelled;
		CREATE TABLE IF NOT EXISTS arena_bet_pools (
			event_id   TEXT             NOT NULL,
			side_index INT              NOT NULL,
			total      BIGINT           NOT NULL DEFAULT 0,
			take_rate  DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (event_id, side_index)
		);
		CREATE TABLE IF NOT EXISTS arena_bet_payouts (
			id           TEXT        PRIMARY KEY,
			event_id     TEXT        NOT NULL,
			winner_id    TEXT        NOT NULL,
			amount       BIGINT      NOT NULL CHECK (amount > 0),
			blocked      BOOLEAN     NOT NULL DEFAULT FALSE,
			created_at   TIMESTAMPTZ NOT NULL,
			collected_at TIMESTAMPTZ
		);
	`

	_, err := pc.RawPool.Exec(ctx, schema)
	if err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	t.Logf("migrations applied [%s]", time.Since(start))
}

// NewPool starts a migrated test database and returns its raw connection
// pool. The container is cleaned up with the test.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pc := NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	return pc.RawPool
}

// DSN returns the connection string for the test database.
func (pc *PostgresContainer) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		pc.Config.User, pc.Config.Password,
		pc.Config.Host, pc.Config.Port,
		pc.Config.Name, pc.Config.SSLMode,
	)
}
