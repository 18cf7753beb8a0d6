package httptransport

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fedremit/internal/approval"
	"fedremit/pkg/platform/middleware/auth"
)

type workflowResponse struct {
	OK       bool     `json:"ok"`
	Action   string   `json:"action"`
	Status   string   `json:"status,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

type approveRequest struct {
	Level   string `json:"level"`
	Comment string `json:"comment"`
}

type rejectRequest struct {
	Level  string `json:"level"`
	Reason string `json:"reason"`
}

type historyEntry struct {
	Action    string    `json:"action"`
	Level     string    `json:"level,omitempty"`
	ActorID   uuid.UUID `json:"actor_id"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.idAndActor(w, r)
	if !ok {
		return
	}
	res, err := h.approvals.Submit(r.Context(), id, actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeWorkflow(w, res)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.idAndActor(w, r)
	if !ok {
		return
	}
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}
	if req.Level == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "level is required")
		return
	}
	res, err := h.approvals.Approve(r.Context(), id, actor, req.Level, req.Comment)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeWorkflow(w, res)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.idAndActor(w, r)
	if !ok {
		return
	}
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}
	if req.Level == "" || strings.TrimSpace(req.Reason) == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "level and reason are required")
		return
	}
	res, err := h.approvals.Reject(r.Context(), id, actor, req.Level, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeWorkflow(w, res)
}

func (h *Handler) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.idAndActor(w, r)
	if !ok {
		return
	}
	res, err := h.approvals.MarkPaid(r.Context(), id, actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeWorkflow(w, res)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid remittance id")
		return
	}
	records, err := h.approvals.History(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	entries := make([]historyEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, historyEntry{
			Action:    string(rec.Action),
			Level:     rec.Level,
			ActorID:   rec.ActorID,
			Comment:   rec.Comment,
			CreatedAt: rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

// idAndActor parses the path ID and the authenticated actor; on failure it
// has already written the error response.
func (h *Handler) idAndActor(w http.ResponseWriter, r *http.Request) (uuid.UUID, approval.Actor, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid remittance id")
		return uuid.Nil, approval.Actor{}, false
	}
	actorID, err := uuid.Parse(auth.GetUserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_token", "subject is not a valid id")
		return uuid.Nil, approval.Actor{}, false
	}
	return id, approval.Actor{ID: actorID, Role: approval.Role(auth.GetRole(r.Context()))}, true
}

func (h *Handler) writeWorkflow(w http.ResponseWriter, res approval.Result) {
	status := http.StatusOK
	if !res.OK {
		status = workflowStatus(res.Code)
	}
	writeJSON(w, status, workflowResponse{
		OK:       res.OK,
		Action:   string(res.Action),
		Status:   res.Status,
		Errors:   res.Errors,
		Warnings: res.Warnings,
	})
}
