// Package httptransport is the thin HTTP layer. Handlers decode, delegate
// to domain services, and map results to status codes; no business logic
// lives here.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fedremit/internal/analytics"
	"fedremit/internal/approval"
	"fedremit/internal/jwttoken"
	"fedremit/internal/registry"
	"fedremit/pkg/platform/middleware/auth"
)

// officerRoles may drive the approval workflow; payment and admin
// operations are narrower.
var (
	officerRoles = []string{
		string(approval.RoleLocalOfficer),
		string(approval.RoleRegionalOfficer),
		string(approval.RoleNationalOfficer),
		string(approval.RoleCLCOfficer),
		string(approval.RoleAdmin),
	}
	financeRoles = []string{
		string(approval.RoleNationalOfficer),
		string(approval.RoleCLCOfficer),
		string(approval.RoleAdmin),
	}
	adminRoles = []string{string(approval.RoleAdmin)}
)

// Handler bundles the domain services the routes delegate to.
type Handler struct {
	approvals *approval.Service
	webhooks  *registry.WebhookProcessor
	sync      *registry.Service
	reports   *analytics.Engine
	tokens    *jwttoken.Service
	logger    *slog.Logger
}

func NewHandler(approvals *approval.Service, webhooks *registry.WebhookProcessor, sync *registry.Service,
	reports *analytics.Engine, tokens *jwttoken.Service, logger *slog.Logger) *Handler {
	return &Handler{
		approvals: approvals,
		webhooks:  webhooks,
		sync:      sync,
		reports:   reports,
		tokens:    tokens,
		logger:    logger,
	}
}

// NewRouter wires all public endpoints. The webhook endpoint authenticates
// by HMAC signature, not bearer token, so it sits outside the auth chain.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", h.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/webhooks/registry", h.handleRegistryWebhook)

	requireAuth := auth.RequireAuth(tokenValidator{h.tokens}, h.logger)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(auth.RequireRole(h.logger, officerRoles...))
		r.Post("/remittances/{id}/submit", h.handleSubmit)
		r.Post("/remittances/{id}/approve", h.handleApprove)
		r.Post("/remittances/{id}/reject", h.handleReject)
		r.Get("/remittances/{id}/history", h.handleHistory)
		r.Get("/reports/compliance/{year}", h.handleComplianceReport)
		r.Get("/reports/anomalies", h.handleAnomalies)
		r.Get("/reports/trends", h.handleTrends)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(auth.RequireRole(h.logger, financeRoles...))
		r.Post("/remittances/{id}/pay", h.handleMarkPaid)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(auth.RequireRole(h.logger, adminRoles...))
		r.Post("/admin/sync", h.handleSyncAll)
		r.Post("/admin/sync/{orgID}", h.handleSyncOne)
	})

	return r
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// tokenValidator adapts the JWT service to the middleware contract.
type tokenValidator struct {
	svc *jwttoken.Service
}

func (v tokenValidator) ValidateToken(tokenString string) (*auth.TokenClaims, error) {
	claims, err := v.svc.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &auth.TokenClaims{UserID: claims.UserID, Role: claims.Role}, nil
}
