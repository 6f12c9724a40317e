// Plan catalog endpoints.
//
// Routes:
//   - GET /api/v1/plans        -> HandleListPlans
//   - GET /api/v1/plans/{name} -> HandleGetPlan
package handler

import (
	"log/slog"
	"net/http"

	"github.com/animatepdf/animatepdf/internal/domain"
	"github.com/animatepdf/animatepdf/internal/i18n"
	"github.com/animatepdf/animatepdf/internal/service"
)

// PlanHandler serves the subscription plan catalog.
type PlanHandler struct {
	plans  service.PlanService
	logger *slog.Logger
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(plans service.PlanService, logger *slog.Logger) *PlanHandler {
	return &PlanHandler{
		plans:  plans,
		logger: logger,
	}
}

// RegisterRoutes registers plan routes on the provided mux.
func (h *PlanHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/plans", h.HandleListPlans)
	mux.HandleFunc("GET /api/v1/plans/{name}", h.HandleGetPlan)
}

// planResponse is one catalog entry with a localized display name.
type planResponse struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	PriceCents  int64    `json:"price_cents"`
	CreditLimit int      `json:"credit_limit"`
	Features    []string `json:"features"`
	SortOrder   int      `json:"sort_order"`
}

// HandleListPlans returns the active plans, cheapest first.
func (h *PlanHandler) HandleListPlans(w http.ResponseWriter, r *http.Request) {
	lang := i18n.Match(r.Header.Get("Accept-Language"))

	plans, err := h.plans.ListActivePlans(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	resp := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		resp = append(resp, toPlanResponse(p, lang))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"plans": resp})
}

// HandleGetPlan returns a single plan by name.
func (h *PlanHandler) HandleGetPlan(w http.ResponseWriter, r *http.Request) {
	lang := i18n.Match(r.Header.Get("Accept-Language"))

	plan, err := h.plans.GetPlanByName(r.Context(), r.PathValue("name"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toPlanResponse(plan, lang))
}

func toPlanResponse(p domain.SubscriptionPlan, lang string) planResponse {
	features := p.Features
	if features == nil {
		features = []string{}
	}
	return planResponse{
		Name:        p.Name,
		DisplayName: p.DisplayName(lang),
		PriceCents:  p.PriceCents,
		CreditLimit: p.CreditLimit(),
		Features:    features,
		SortOrder:   p.SortOrder,
	}
}
