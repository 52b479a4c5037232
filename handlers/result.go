package handlers

import (
	"fmt"
	"net/http"

	"github.com/abefas/GoTodo/models"
	"github.com/abefas/GoTodo/todo"
	"github.com/charmbracelet/log"
)

// noContent marks a successful outcome that carries no payload.
type noContent struct{}

// statusFor maps a failure kind to its HTTP status. Every kind has exactly one
// status; an unmapped kind is a programming error and panics.
func statusFor(kind todo.Failure) int {
	switch kind {
	case todo.FailureNone:
		return http.StatusOK
	case todo.FailureNotFound:
		return http.StatusNotFound
	case todo.FailureDuplicateTitle, todo.FailureAlreadyInState, todo.FailureConstraintViolation:
		return http.StatusConflict
	case todo.FailureInvalidInput:
		return http.StatusBadRequest
	case todo.FailureUnexpected:
		return http.StatusInternalServerError
	}
	panic(fmt.Sprintf("handlers: no response mapped for outcome %s", kind))
}

// writeOutcome turns the result of a domain operation into a response.
// successCode is used when err is nil; a noContent value writes no body.
func writeOutcome(w http.ResponseWriter, logger *log.Logger, successCode int, value any, err error) {
	kind := todo.KindOf(err)
	status := statusFor(kind)

	if kind == todo.FailureNone {
		if _, empty := value.(noContent); empty {
			w.WriteHeader(successCode)
			return
		}
		respondWithJSON(w, successCode, value)
		return
	}

	if kind == todo.FailureUnexpected {
		logger.Error("request failed", "err", err)
	}
	respondWithError(w, status)
}

// respondWithError writes the standard error body for status. Internal error
// details are never echoed to the client.
func respondWithError(w http.ResponseWriter, status int) {
	respondWithJSON(w, status, models.ErrorDetails{
		Message:    http.StatusText(status),
		StatusCode: status,
	})
}
