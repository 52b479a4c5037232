package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/abefas/GoTodo/models"
	"github.com/abefas/GoTodo/todo"
)

// MemoryStore implements todo.Gateway using in-memory storage. It keeps the
// same guarantees as the SQL schema: ids are never reused and titles are
// unique.
type MemoryStore struct {
	mutex   sync.RWMutex
	todos   map[int64]models.TodoItem
	byTitle map[string]int64
	lastID  int64
}

var _ todo.Gateway = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		todos:   make(map[int64]models.TodoItem),
		byTitle: make(map[string]int64),
	}
}

// ListAll retrieves all todos ordered by id.
func (m *MemoryStore) ListAll(ctx context.Context) ([]models.TodoItem, error) {
	return m.filter(func(models.TodoItem) bool { return true }), nil
}

// ListWhere retrieves the todos with the given completion state.
func (m *MemoryStore) ListWhere(ctx context.Context, isCompleted bool) ([]models.TodoItem, error) {
	return m.filter(func(t models.TodoItem) bool { return t.IsCompleted == isCompleted }), nil
}

func (m *MemoryStore) filter(keep func(models.TodoItem) bool) []models.TodoItem {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	todos := make([]models.TodoItem, 0, len(m.todos))
	for _, t := range m.todos {
		if keep(t) {
			todos = append(todos, t)
		}
	}
	sort.Slice(todos, func(i, j int) bool { return todos[i].ID < todos[j].ID })
	return todos
}

// FindByID retrieves a todo by its ID.
func (m *MemoryStore) FindByID(ctx context.Context, id int64) (models.TodoItem, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	t, ok := m.todos[id]
	return t, ok, nil
}

// FindByTitle retrieves a todo by its exact title.
func (m *MemoryStore) FindByTitle(ctx context.Context, title string) (models.TodoItem, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	id, ok := m.byTitle[title]
	if !ok {
		return models.TodoItem{}, false, nil
	}
	return m.todos[id], true, nil
}

// Insert saves a new incomplete todo and returns its id.
func (m *MemoryStore) Insert(ctx context.Context, title string) (int64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.byTitle[title]; exists {
		return 0, fmt.Errorf("title %q: %w", title, todo.ErrConstraintViolation)
	}

	m.lastID++
	m.todos[m.lastID] = models.TodoItem{ID: m.lastID, Title: title}
	m.byTitle[title] = m.lastID
	return m.lastID, nil
}

// SetCompleted updates the completion state of a todo.
func (m *MemoryStore) SetCompleted(ctx context.Context, id int64, value bool) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	t, ok := m.todos[id]
	if !ok {
		return fmt.Errorf("todo %d: %w", id, todo.ErrNotFound)
	}
	t.IsCompleted = value
	m.todos[id] = t
	return nil
}
