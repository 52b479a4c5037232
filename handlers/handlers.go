package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/abefas/GoTodo/models"
	"github.com/abefas/GoTodo/todo"
	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// Pinger reports whether the backing store is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

const healthTimeout = 2 * time.Second

// Handlers struct holds the domain service, allowing methods to share it.
type Handlers struct {
	Service  *todo.Service
	pinger   Pinger
	logger   *log.Logger
	validate *validator.Validate
}

// NewHandlers is a constructor for the Handlers struct. pinger may be nil when
// the store has no connection to check.
func NewHandlers(svc *todo.Service, pinger Pinger, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.Default()
	}
	return &Handlers{
		Service:  svc,
		pinger:   pinger,
		logger:   logger.With("component", "http"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes registers the todo API and the health check on router. Unmatched
// paths and methods get the same JSON error body as the API.
func (h *Handlers) Routes(router *mux.Router) {
	router.HandleFunc("/todo/list", h.ListTodos).Methods(http.MethodGet)
	router.HandleFunc("/todo/list-incomplete", h.ListIncompleteTodos).Methods(http.MethodGet)
	router.HandleFunc("/todo/list-complete", h.ListCompleteTodos).Methods(http.MethodGet)
	router.HandleFunc("/todo/id/{id:[0-9]+}", h.GetTodo).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/todo/create", h.CreateTodo).Methods(http.MethodPost)
	router.HandleFunc("/todo/completed/{id:[0-9]+}", h.MarkComplete).Methods(http.MethodPut)
	router.HandleFunc("/todo/incomplete/{id:[0-9]+}", h.MarkIncomplete).Methods(http.MethodPut)

	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(h.NotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(h.MethodNotAllowed)
}

// respondWithJSON is a helper function to format and send JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// todoID extracts the numeric id path variable.
func todoID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil
}

// ListTodos retrieves all todos.
func (h *Handlers) ListTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.Service.ListAll(r.Context())
	writeOutcome(w, h.logger, http.StatusOK, todos, err)
}

// ListIncompleteTodos retrieves the todos that are not completed.
func (h *Handlers) ListIncompleteTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.Service.ListIncomplete(r.Context())
	writeOutcome(w, h.logger, http.StatusOK, todos, err)
}

// ListCompleteTodos retrieves the completed todos.
func (h *Handlers) ListCompleteTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.Service.ListComplete(r.Context())
	writeOutcome(w, h.logger, http.StatusOK, todos, err)
}

// GetTodo retrieves a single todo by its ID.
func (h *Handlers) GetTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest)
		return
	}

	t, err := h.Service.GetByID(r.Context(), id)
	writeOutcome(w, h.logger, http.StatusOK, t, err)
}

// CreateTodo creates a new todo and returns its id.
func (h *Handlers) CreateTodo(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req models.CreateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("invalid create payload", "err", err)
		respondWithError(w, http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.logger.Debug("create payload failed validation", "err", err)
		respondWithError(w, http.StatusBadRequest)
		return
	}

	id, err := h.Service.Create(r.Context(), req.Title)
	writeOutcome(w, h.logger, http.StatusCreated, models.CreatedResponse{ID: id}, err)
}

// MarkComplete marks a todo as completed.
func (h *Handlers) MarkComplete(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest)
		return
	}

	err := h.Service.MarkComplete(r.Context(), id)
	writeOutcome(w, h.logger, http.StatusOK, noContent{}, err)
}

// MarkIncomplete marks a completed todo as not completed.
func (h *Handlers) MarkIncomplete(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest)
		return
	}

	err := h.Service.MarkIncomplete(r.Context(), id)
	writeOutcome(w, h.logger, http.StatusOK, noContent{}, err)
}

// Health reports whether the service and its store are reachable.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := h.pinger.PingContext(ctx); err != nil {
			h.logger.Warn("health check failed", "err", err)
			respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NotFound answers requests that match no route.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, http.StatusNotFound)
}

// MethodNotAllowed answers requests whose path matches a route but whose
// method does not.
func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, http.StatusMethodNotAllowed)
}
