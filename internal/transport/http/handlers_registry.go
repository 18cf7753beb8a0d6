package httptransport

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fedremit/internal/registry"
)

// maxWebhookBody caps the inbound payload before signature verification.
const maxWebhookBody = 1 << 20

type webhookResponse struct {
	Outcome string `json:"outcome"`
	Message string `json:"message,omitempty"`
}

type syncResponse struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Conflicts int `json:"conflicts"`
}

// handleRegistryWebhook ingests a signed registry event. Rejections return
// their outcome with a non-2xx status so the registry retries only what it
// should.
func (h *Handler) handleRegistryWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "unreadable body")
		return
	}
	res := h.webhooks.Process(r.Context(), body)
	writeJSON(w, webhookHTTPStatus(res.Outcome), webhookResponse{
		Outcome: string(res.Outcome),
		Message: res.Message,
	})
}

func webhookHTTPStatus(outcome registry.WebhookOutcome) int {
	switch outcome {
	case registry.WebhookProcessed, registry.WebhookDuplicate:
		return http.StatusOK
	case registry.WebhookRejected:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) handleSyncAll(w http.ResponseWriter, r *http.Request) {
	summary, err := h.sync.SyncAll(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, syncResponse{
		Created:   summary.Created,
		Updated:   summary.Updated,
		Skipped:   summary.Skipped,
		Failed:    summary.Failed,
		Conflicts: summary.Conflicts,
	})
}

func (h *Handler) handleSyncOne(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid organization id")
		return
	}
	res, err := h.sync.SyncOrganization(r.Context(), orgID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"outcome":        res.Outcome,
		"applied_fields": res.AppliedFields,
		"conflicts":      res.Conflicts,
	})
}
