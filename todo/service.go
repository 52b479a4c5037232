// Package todo holds the business rules for todo items: duplicate title
// rejection and the Incomplete/Complete state machine. It talks to storage
// only through the Gateway interface.
package todo

import (
	"context"
	"fmt"
	"strings"

	"github.com/abefas/GoTodo/models"
	"github.com/charmbracelet/log"
)

// Gateway is the only component allowed to issue storage queries.
type Gateway interface {
	// ListAll returns every item ordered by id.
	ListAll(ctx context.Context) ([]models.TodoItem, error)

	// ListWhere returns the items whose completion flag equals isCompleted.
	ListWhere(ctx context.Context, isCompleted bool) ([]models.TodoItem, error)

	// FindByID reports false when no item has that id.
	FindByID(ctx context.Context, id int64) (models.TodoItem, bool, error)

	// FindByTitle reports false when no item has that exact title.
	FindByTitle(ctx context.Context, title string) (models.TodoItem, bool, error)

	// Insert stores a new incomplete item. A duplicate title yields an error
	// wrapping ErrConstraintViolation.
	Insert(ctx context.Context, title string) (int64, error)

	// SetCompleted overwrites the completion flag of an item.
	SetCompleted(ctx context.Context, id int64, value bool) error
}

// Service runs the domain operations against a Gateway.
type Service struct {
	store  Gateway
	logger *log.Logger
}

// NewService is a constructor for the Service struct.
func NewService(store Gateway, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{store: store, logger: logger.With("component", "todo")}
}

// ListAll returns every item.
func (s *Service) ListAll(ctx context.Context) ([]models.TodoItem, error) {
	return s.list(func() ([]models.TodoItem, error) { return s.store.ListAll(ctx) })
}

// ListIncomplete returns the items that are not completed.
func (s *Service) ListIncomplete(ctx context.Context) ([]models.TodoItem, error) {
	return s.list(func() ([]models.TodoItem, error) { return s.store.ListWhere(ctx, false) })
}

// ListComplete returns the completed items.
func (s *Service) ListComplete(ctx context.Context) ([]models.TodoItem, error) {
	return s.list(func() ([]models.TodoItem, error) { return s.store.ListWhere(ctx, true) })
}

func (s *Service) list(query func() ([]models.TodoItem, error)) ([]models.TodoItem, error) {
	items, err := query()
	if err != nil {
		s.logger.Error("listing todos failed", "err", err)
		return nil, fmt.Errorf("list todos: %w", err)
	}
	if items == nil {
		items = []models.TodoItem{}
	}
	return items, nil
}

// GetByID returns the item with the given id or ErrNotFound.
func (s *Service) GetByID(ctx context.Context, id int64) (models.TodoItem, error) {
	item, found, err := s.store.FindByID(ctx, id)
	if err != nil {
		s.logger.Error("finding todo failed", "id", id, "err", err)
		return models.TodoItem{}, fmt.Errorf("find todo %d: %w", id, err)
	}
	if !found {
		return models.TodoItem{}, fmt.Errorf("todo %d: %w", id, ErrNotFound)
	}
	return item, nil
}

// Create inserts a new incomplete item and returns its id. It fails with
// ErrDuplicateTitle when the title is taken, including when a concurrent
// create wins the race and the store rejects the insert.
func (s *Service) Create(ctx context.Context, title string) (int64, error) {
	if strings.TrimSpace(title) == "" {
		return 0, ErrInvalidTitle
	}

	_, exists, err := s.store.FindByTitle(ctx, title)
	if err != nil {
		s.logger.Error("finding todo by title failed", "title", title, "err", err)
		return 0, fmt.Errorf("find todo by title: %w", err)
	}
	if exists {
		s.logger.Debug("rejected duplicate title", "title", title)
		return 0, fmt.Errorf("create %q: %w", title, ErrDuplicateTitle)
	}

	id, err := s.store.Insert(ctx, title)
	if err != nil {
		if KindOf(err) == FailureConstraintViolation {
			s.logger.Warn("insert lost a duplicate title race", "title", title)
			return 0, fmt.Errorf("create %q: %w: %w", title, ErrDuplicateTitle, err)
		}
		s.logger.Error("inserting todo failed", "title", title, "err", err)
		return 0, fmt.Errorf("insert todo: %w", err)
	}

	s.logger.Info("created todo", "id", id, "title", title)
	return id, nil
}

// MarkComplete moves an item from Incomplete to Complete.
func (s *Service) MarkComplete(ctx context.Context, id int64) error {
	return s.transition(ctx, id, true)
}

// MarkIncomplete moves an item from Complete to Incomplete.
func (s *Service) MarkIncomplete(ctx context.Context, id int64) error {
	return s.transition(ctx, id, false)
}

// transition looks the item up before inspecting its state, so ErrNotFound
// always wins over ErrAlreadyInState.
func (s *Service) transition(ctx context.Context, id int64, target bool) error {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item.IsCompleted == target {
		s.logger.Debug("rejected redundant transition", "id", id, "completed", target)
		return fmt.Errorf("todo %d completed=%t: %w", id, target, ErrAlreadyInState)
	}

	if err := s.store.SetCompleted(ctx, id, target); err != nil {
		s.logger.Error("updating todo failed", "id", id, "err", err)
		return fmt.Errorf("set completed on todo %d: %w", id, err)
	}

	s.logger.Info("updated todo", "id", id, "completed", target)
	return nil
}
