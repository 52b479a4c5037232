package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/abefas/GoTodo/config"
	"github.com/abefas/GoTodo/todo"
	"github.com/charmbracelet/log"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quietLogger = log.New(io.Discard)

// newSQLiteDB provisions a throwaway migrated database in the test's temp dir.
func newSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := config.Database{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "todo.db"),
	}
	db, err := InitDB(cfg, quietLogger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(context.Background(), db, cfg.Driver, quietLogger))
	return db
}

// gateways runs each test against both Gateway implementations.
func gateways(t *testing.T) map[string]func(t *testing.T) todo.Gateway {
	return map[string]func(t *testing.T) todo.Gateway{
		"sqlite": func(t *testing.T) todo.Gateway { return NewTodoStore(newSQLiteDB(t), config.DriverSQLite) },
		"memory": func(t *testing.T) todo.Gateway { return NewMemoryStore() },
	}
}

func TestGateway_EmptyStore(t *testing.T) {
	for name, newGateway := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			g := newGateway(t)

			all, err := g.ListAll(ctx)
			require.NoError(t, err)
			assert.NotNil(t, all)
			assert.Empty(t, all)

			_, found, err := g.FindByID(ctx, 1)
			require.NoError(t, err)
			assert.False(t, found)

			_, found, err = g.FindByTitle(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestGateway_InsertAndFind(t *testing.T) {
	for name, newGateway := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			g := newGateway(t)

			first, err := g.Insert(ctx, "buy milk")
			require.NoError(t, err)
			second, err := g.Insert(ctx, "walk dog")
			require.NoError(t, err)
			assert.Greater(t, second, first)

			item, found, err := g.FindByID(ctx, first)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, "buy milk", item.Title)
			assert.False(t, item.IsCompleted)

			item, found, err = g.FindByTitle(ctx, "walk dog")
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, second, item.ID)

			_, found, err = g.FindByTitle(ctx, "Walk Dog")
			require.NoError(t, err)
			assert.False(t, found, "title lookup is case-sensitive")
		})
	}
}

func TestGateway_InsertDuplicateIsConstraintViolation(t *testing.T) {
	for name, newGateway := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			g := newGateway(t)

			_, err := g.Insert(ctx, "same")
			require.NoError(t, err)

			_, err = g.Insert(ctx, "same")
			require.Error(t, err)
			assert.ErrorIs(t, err, todo.ErrConstraintViolation)

			all, err := g.ListAll(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestGateway_ConcurrentDuplicateInserts(t *testing.T) {
	for name, newGateway := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			g := newGateway(t)

			const workers = 8
			var wg sync.WaitGroup
			errs := make(chan error, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := g.Insert(ctx, "contended")
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)

			succeeded := 0
			for err := range errs {
				if err == nil {
					succeeded++
					continue
				}
				assert.ErrorIs(t, err, todo.ErrConstraintViolation)
			}
			assert.Equal(t, 1, succeeded)
		})
	}
}

func TestGateway_SetCompletedAndListWhere(t *testing.T) {
	for name, newGateway := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			g := newGateway(t)

			var ids []int64
			for _, title := range []string{"a", "b", "c", "d"} {
				id, err := g.Insert(ctx, title)
				require.NoError(t, err)
				ids = append(ids, id)
			}
			require.NoError(t, g.SetCompleted(ctx, ids[1], true))

			incomplete, err := g.ListWhere(ctx, false)
			require.NoError(t, err)
			assert.Len(t, incomplete, 3)
			for _, item := range incomplete {
				assert.False(t, item.IsCompleted)
			}

			complete, err := g.ListWhere(ctx, true)
			require.NoError(t, err)
			require.Len(t, complete, 1)
			assert.Equal(t, "b", complete[0].Title)

			all, err := g.ListAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, 4)
			for i, item := range all {
				assert.Equal(t, ids[i], item.ID, "ordered by id")
			}

			require.NoError(t, g.SetCompleted(ctx, ids[1], false))
			complete, err = g.ListWhere(ctx, true)
			require.NoError(t, err)
			assert.Empty(t, complete)
		})
	}
}

func TestGateway_SetCompletedMissing(t *testing.T) {
	for name, newGateway := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			err := newGateway(t).SetCompleted(context.Background(), 42, true)
			assert.ErrorIs(t, err, todo.ErrNotFound)
		})
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newSQLiteDB(t)
	assert.NoError(t, Migrate(context.Background(), db, config.DriverSQLite, quietLogger))
}

func TestMigrate_UnknownDriver(t *testing.T) {
	db := newSQLiteDB(t)
	assert.Error(t, Migrate(context.Background(), db, config.DriverMemory, quietLogger))
}

func TestRebind(t *testing.T) {
	query := "UPDATE todos SET is_completed = ? WHERE id = ?"

	assert.Equal(t, "UPDATE todos SET is_completed = $1 WHERE id = $2", rebind(config.DriverPostgres, query))
	assert.Equal(t, query, rebind(config.DriverSQLite, query))
}

func TestSQLiteDir(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"gotodo.db", ""},
		{"data/todo.db", "data"},
		{"/var/lib/gotodo/todo.db", "/var/lib/gotodo"},
		{"/var/lib/gotodo/todo.db?_pragma=foreign_keys(1)", "/var/lib/gotodo"},
		{"file:todo.db", ""},
		{"file:data/todo.db?_pragma=busy_timeout(5000)", "data"},
		{"file:/var/lib/gotodo/todo.db?cache=shared", "/var/lib/gotodo"},
		{"file:///var/lib/gotodo/todo.db", "/var/lib/gotodo"},
		{"file://localhost/var/lib/gotodo/todo.db", "/var/lib/gotodo"},
		{"file:/var/lib/my%20data/todo.db", "/var/lib/my data"},
		{":memory:", ""},
		{"file::memory:", ""},
		{"file::memory:?cache=shared", ""},
		{"file:mem.db?mode=memory&cache=shared", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.want, sqliteDir(tt.dsn))
		})
	}
}

func TestInitDB_FileURICreatesOnlyTheDatabaseDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	cfg := config.Database{
		Driver: config.DriverSQLite,
		DSN:    "file:" + filepath.Join(dir, "todo.db") + "?_pragma=busy_timeout(5000)",
	}

	db, err := InitDB(cfg, quietLogger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(context.Background(), db, cfg.Driver, quietLogger))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	_, err = os.Stat(filepath.Join(dir, "todo.db"))
	assert.NoError(t, err)

	_, err = os.Stat("file:")
	assert.True(t, os.IsNotExist(err), "no directory named after the URI scheme")
}

func TestIsUniqueViolation(t *testing.T) {
	db := newSQLiteDB(t)
	_, err := db.Exec("INSERT INTO todos(title, is_completed) VALUES(?, ?)", "dup", false)
	require.NoError(t, err)
	_, liteErr := db.Exec("INSERT INTO todos(title, is_completed) VALUES(?, ?)", "dup", false)
	require.Error(t, liteErr)

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"postgres unique_violation", &pq.Error{Code: "23505", Constraint: "todos_title_key"}, true},
		{"wrapped postgres unique_violation", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), true},
		{"postgres foreign_key_violation", &pq.Error{Code: "23503"}, false},
		{"postgres not_null_violation", fmt.Errorf("insert: %w", &pq.Error{Code: "23502"}), false},
		{"sqlite unique constraint", liteErr, true},
		{"wrapped sqlite unique constraint", fmt.Errorf("insert: %w", liteErr), true},
		{"connection failure", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}
