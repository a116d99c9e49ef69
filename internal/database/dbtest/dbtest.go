// Package dbtest provides a PostgreSQL database for integration tests.
//
// The first call starts a postgres container through testcontainers-go (or
// uses MAPIT_TEST_DATABASE_URL when set) and applies the schema; every call
// truncates all tables so tests start from an empty database. Tests are
// skipped under -short or when no container runtime is available.
//
// go test runs each package in its own process. With a container every
// process gets its own server. With MAPIT_TEST_DATABASE_URL they share one
// server, so each test binary works in its own schema (mapit_service,
// mapit_repository, ...) selected through search_path, and the packages
// can still run in parallel.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/iliyamo/mapit/internal/database"
)

var (
	once    sync.Once
	shared  *sql.DB
	initErr error
)

// Open returns a migrated, empty database.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database integration test in -short mode")
	}
	once.Do(func() { shared, initErr = start() })
	if initErr != nil {
		t.Skipf("postgres unavailable: %v", initErr)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	const truncate = `TRUNCATE zones, customer_map, map, orders, packages, admin, customer RESTART IDENTITY CASCADE`
	if _, err := shared.ExecContext(ctx, truncate); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return shared
}

func start() (db *sql.DB, err error) {
	// Container runtimes that cannot be discovered sometimes panic instead of
	// returning an error.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("start postgres container: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dsn := os.Getenv("MAPIT_TEST_DATABASE_URL")
	if dsn != "" {
		schema := schemaFor(os.Args[0])
		if err := createSchema(ctx, dsn, schema); err != nil {
			return nil, err
		}
		if dsn, err = withSearchPath(dsn, schema); err != nil {
			return nil, err
		}
	} else {
		ctr, err := postgres.Run(ctx, "postgres:16-alpine",
			postgres.WithDatabase("mapit_test"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("password"),
			postgres.BasicWaitStrategies(),
		)
		if err != nil {
			return nil, err
		}
		dsn, err = ctr.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			return nil, err
		}
	}
	db, err = database.Open(ctx, dsn, 10)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// schemaFor derives a schema name from the test binary, e.g.
// /tmp/go-build1/b001/service.test becomes mapit_service.
func schemaFor(binary string) string {
	name := strings.ToLower(filepath.Base(binary))
	name = strings.TrimSuffix(name, ".exe")
	name = strings.TrimSuffix(name, ".test")
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "mapit_test"
	}
	return "mapit_" + b.String()
}

func createSchema(ctx context.Context, dsn, schema string) error {
	db, err := database.Open(ctx, dsn, 1)
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx, `CREATE SCHEMA IF NOT EXISTS `+schema); err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}
	return nil
}

// withSearchPath adds search_path to a URL or keyword/value connection
// string. pgx sends unknown settings to the server as runtime parameters.
func withSearchPath(dsn, schema string) (string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse MAPIT_TEST_DATABASE_URL: %w", err)
		}
		q := u.Query()
		q.Set("search_path", schema)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}
	return strings.TrimSpace(dsn) + " search_path=" + schema, nil
}
