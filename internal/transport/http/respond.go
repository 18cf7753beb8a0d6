package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"fedremit/internal/approval"
	"fedremit/pkg/platform/sentinel"
)

type errorBody struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

// writeServiceError maps sentinel errors to status codes; anything
// unclassified is a 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, sentinel.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, sentinel.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, sentinel.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "upstream_unavailable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

// workflowStatus maps a refused workflow result to its HTTP status.
func workflowStatus(code approval.Code) int {
	switch code {
	case approval.CodeNotFound:
		return http.StatusNotFound
	case approval.CodeUnauthorized:
		return http.StatusForbidden
	case approval.CodeInvalidState:
		return http.StatusConflict
	case approval.CodeCompliance:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}
