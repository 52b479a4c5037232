package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/abefas/GoTodo/config"
	"github.com/charmbracelet/log"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const pingTimeout = 5 * time.Second

// InitDB opens and pings a connection pool for the configured SQL driver.
func InitDB(cfg config.Database, logger *log.Logger) (*sql.DB, error) {
	connStr := cfg.ConnString()

	if cfg.Driver == config.DriverSQLite {
		if dir := sqliteDir(connStr); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open(cfg.Driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	switch {
	case cfg.Driver == config.DriverSQLite:
		// SQLite allows a single writer; serialize through one connection.
		db.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("connected to database", "driver", cfg.Driver)
	return db, nil
}

// sqliteDir returns the directory holding the database file named by dsn, or
// "" when there is nothing to create. dsn may be a plain path or a file: URI,
// either one with ?query parameters.
func sqliteDir(dsn string) string {
	path := dsn
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if rest, ok := strings.CutPrefix(path, "file:"); ok {
		path = rest
		if strings.HasPrefix(path, "//") {
			// file://host/path; only an empty or localhost authority is valid.
			path = strings.TrimPrefix(strings.TrimPrefix(path, "//"), "localhost")
		}
		if unescaped, err := url.PathUnescape(path); err == nil {
			path = unescaped
		}
	}
	if path == "" || path == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return ""
	}

	dir := filepath.Dir(path)
	if dir == "." {
		return ""
	}
	return dir
}

// rebind rewrites ? placeholders into $1, $2, ... for drivers that need it.
func rebind(driver, query string) string {
	if driver != config.DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
