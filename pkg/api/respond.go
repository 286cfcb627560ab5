package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/harun/mistalic/pkg/agent"
	"github.com/harun/mistalic/pkg/interpreter"
	"github.com/harun/mistalic/pkg/workspace"
)

// errMalformedBody marks request bodies that are not valid JSON.
var errMalformedBody = errors.New("malformed request body")

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// decodeJSON reads r's body into v. An empty body decodes as {}.
func decodeJSON(r *http.Request, v interface{}) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return nil
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errMalformedBody):
		return http.StatusBadRequest
	case errors.Is(err, workspace.ErrValidation), errors.Is(err, agent.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, workspace.ErrNotFound), errors.Is(err, agent.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workspace.ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, interpreter.ErrParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, agent.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage strips the sentinel prefix so clients see the reason only,
// e.g. "validation error: Name and description are required" becomes
// "Name and description are required".
func errorMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{workspace.ErrValidation, agent.ErrValidation} {
		prefix := sentinel.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}

// methodNotAllowed replies 405 listing the allowed methods.
func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
