package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/efreitasn/marketsim/internal/domain"
)

// errJSONBody is returned by ParseJSON for any unusable request body.
var errJSONBody = errors.New("request body must be valid JSON with Content-Type: application/json")

// WriteJSON writes data as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes an error body with a machine-readable code.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// domainErrors maps sentinel errors to their HTTP status and message.
// Codes are the sentinel texts.
var domainErrors = []struct {
	err     error
	status  int
	message string
}{
	{domain.ErrAgentNotFound, http.StatusNotFound, "Agent not found"},
	{domain.ErrOrderNotFound, http.StatusNotFound, "Order not found"},
	{domain.ErrAgentAlreadyExists, http.StatusConflict, "Agent already exists"},
	{domain.ErrOrderNotCancellable, http.StatusConflict, "Order is no longer on the book"},
	{domain.ErrOrderBookDisabled, http.StatusConflict, "Orders execute immediately; there is no book"},
	{domain.ErrSimulationStarted, http.StatusConflict, "The run has finished"},
}

// writeDomainError writes the response for an error returned by the
// simulation. Validation failures are 400; unknown errors are 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}
	for _, de := range domainErrors {
		if errors.Is(err, de.err) {
			WriteError(w, de.status, de.err.Error(), de.message)
			return
		}
	}
	WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
}

// ParseJSON decodes the request body into v. Unknown fields are rejected.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return errJSONBody
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errJSONBody, err)
	}
	return nil
}
