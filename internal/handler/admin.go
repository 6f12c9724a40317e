// Administrative endpoints. These sit behind the admin token middleware and
// are used by operators, not by the product backend.
//
// Routes:
//   - POST   /admin/v1/plans                  -> HandleUpsertPlan
//   - PUT    /admin/v1/plans                  -> HandleUpsertPlan
//   - DELETE /admin/v1/plans/{name}           -> HandleDeactivatePlan
//   - POST   /admin/v1/usage/{user_id}/reset  -> HandleResetUsage
//   - GET    /admin/v1/subscriptions          -> HandleListSubscriptions
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/animatepdf/animatepdf/internal/domain"
	"github.com/animatepdf/animatepdf/internal/service"
)

// AdminHandler handles administrative plan and usage operations.
type AdminHandler struct {
	plans         service.PlanService
	credits       service.CreditService
	subscriptions service.SubscriptionService
	logger        *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	plans service.PlanService,
	credits service.CreditService,
	subscriptions service.SubscriptionService,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		plans:         plans,
		credits:       credits,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// RegisterRoutes registers admin routes on the provided mux.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /admin/v1/plans", h.HandleUpsertPlan)
	mux.HandleFunc("PUT /admin/v1/plans", h.HandleUpsertPlan)
	mux.HandleFunc("DELETE /admin/v1/plans/{name}", h.HandleDeactivatePlan)
	mux.HandleFunc("POST /admin/v1/usage/{user_id}/reset", h.HandleResetUsage)
	mux.HandleFunc("GET /admin/v1/subscriptions", h.HandleListSubscriptions)
}

// upsertPlanRequest is the body of POST/PUT /admin/v1/plans.
type upsertPlanRequest struct {
	Name               string          `json:"name"`
	DisplayNameEN      string          `json:"display_name_en"`
	DisplayNameTR      string          `json:"display_name_tr"`
	PriceCents         int64           `json:"price_cents"`
	MonthlyCreditLimit int             `json:"monthly_credit_limit"`
	Features           []string        `json:"features"`
	Metadata           json.RawMessage `json:"metadata,omitempty"`
	IsActive           *bool           `json:"is_active,omitempty"`
	SortOrder          int             `json:"sort_order"`
}

// HandleUpsertPlan creates or updates a catalog plan.
func (h *AdminHandler) HandleUpsertPlan(w http.ResponseWriter, r *http.Request) {
	var req upsertPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("admin.plan_upsert", "invalid JSON body"))
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	plan, err := h.plans.UpsertPlan(r.Context(), domain.PlanParams{
		Name:               req.Name,
		DisplayNameEN:      req.DisplayNameEN,
		DisplayNameTR:      req.DisplayNameTR,
		PriceCents:         req.PriceCents,
		MonthlyCreditLimit: req.MonthlyCreditLimit,
		Features:           req.Features,
		Metadata:           req.Metadata,
		IsActive:           isActive,
		SortOrder:          req.SortOrder,
	})
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("plan upserted", "plan", plan.Name, "limit", plan.MonthlyCreditLimit)
	writeJSON(w, http.StatusOK, plan)
}

// HandleDeactivatePlan hides a plan from the catalog.
func (h *AdminHandler) HandleDeactivatePlan(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if err := h.plans.DeactivatePlan(r.Context(), name); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("plan deactivated", "plan", name)
	w.WriteHeader(http.StatusNoContent)
}

// HandleResetUsage zeroes a user's counters for the current month.
func (h *AdminHandler) HandleResetUsage(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r.PathValue("user_id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.credits.ResetUsage(r.Context(), userID); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleListSubscriptions returns a user's subscription history.
func (h *AdminHandler) HandleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r.URL.Query().Get("user_id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	subs, err := h.subscriptions.ListByUser(r.Context(), userID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if subs == nil {
		subs = []domain.UserSubscription{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"subscriptions": subs})
}
