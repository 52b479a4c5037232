package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/abefas/GoTodo/models"
	"github.com/abefas/GoTodo/todo"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const pqUniqueViolation = "23505"

// TodoStore implements todo.Gateway on a SQL database. Every method is one
// statement; the connection is taken from the pool for that call only.
type TodoStore struct {
	DB     *sql.DB
	driver string
}

var _ todo.Gateway = (*TodoStore)(nil)

// NewTodoStore is a constructor for the TodoStore struct. driver selects the
// placeholder syntax and must match the driver db was opened with.
func NewTodoStore(db *sql.DB, driver string) *TodoStore {
	return &TodoStore{DB: db, driver: driver}
}

func (s *TodoStore) q(query string) string {
	return rebind(s.driver, query)
}

// ListAll retrieves all todos.
func (s *TodoStore) ListAll(ctx context.Context) ([]models.TodoItem, error) {
	return s.query(ctx, "SELECT id, title, is_completed FROM todos ORDER BY id ASC")
}

// ListWhere retrieves the todos with the given completion state.
func (s *TodoStore) ListWhere(ctx context.Context, isCompleted bool) ([]models.TodoItem, error) {
	return s.query(ctx, s.q("SELECT id, title, is_completed FROM todos WHERE is_completed = ? ORDER BY id ASC"), isCompleted)
}

func (s *TodoStore) query(ctx context.Context, query string, args ...any) ([]models.TodoItem, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve todos: %w", err)
	}
	defer rows.Close()

	todos := []models.TodoItem{}
	for rows.Next() {
		var t models.TodoItem
		if err := rows.Scan(&t.ID, &t.Title, &t.IsCompleted); err != nil {
			return nil, fmt.Errorf("failed to scan todo row: %w", err)
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return todos, nil
}

// FindByID retrieves a single todo by its ID.
func (s *TodoStore) FindByID(ctx context.Context, id int64) (models.TodoItem, bool, error) {
	return s.queryRow(ctx, s.q("SELECT id, title, is_completed FROM todos WHERE id = ?"), id)
}

// FindByTitle retrieves a single todo by its exact title.
func (s *TodoStore) FindByTitle(ctx context.Context, title string) (models.TodoItem, bool, error) {
	return s.queryRow(ctx, s.q("SELECT id, title, is_completed FROM todos WHERE title = ?"), title)
}

func (s *TodoStore) queryRow(ctx context.Context, query string, arg any) (models.TodoItem, bool, error) {
	var t models.TodoItem
	err := s.DB.QueryRowContext(ctx, query, arg).Scan(&t.ID, &t.Title, &t.IsCompleted)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TodoItem{}, false, nil
	} else if err != nil {
		return models.TodoItem{}, false, fmt.Errorf("failed to retrieve todo: %w", err)
	}
	return t, true, nil
}

// Insert creates a new incomplete todo and returns its id.
func (s *TodoStore) Insert(ctx context.Context, title string) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx,
		s.q("INSERT INTO todos(title, is_completed) VALUES(?, ?) RETURNING id"), title, false).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("title %q: %w", title, todo.ErrConstraintViolation)
		}
		return 0, fmt.Errorf("failed to create todo: %w", err)
	}
	return id, nil
}

// SetCompleted updates the completion state of a todo.
func (s *TodoStore) SetCompleted(ctx context.Context, id int64, value bool) error {
	res, err := s.DB.ExecContext(ctx, s.q("UPDATE todos SET is_completed = ? WHERE id = ?"), value, id)
	if err != nil {
		return fmt.Errorf("failed to update todo: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err == nil && rowsAffected == 0 {
		return fmt.Errorf("todo %d: %w", id, todo.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}

	// Without extended result codes SQLite only reports SQLITE_CONSTRAINT.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
