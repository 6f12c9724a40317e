// Credit endpoints: the limit check read path and the usage recorder write
// path. These are the calls the product backend makes around every PDF
// analysis and animation generation.
//
// Routes:
//   - GET  /api/v1/usage/check -> HandleCheckLimit
//   - POST /api/v1/usage       -> HandleRecordUsage
//   - GET  /api/v1/usage       -> HandleCurrentUsage
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/animatepdf/animatepdf/internal/domain"
	"github.com/animatepdf/animatepdf/internal/i18n"
	"github.com/animatepdf/animatepdf/internal/service"
)

// CreditHandler handles credit check and usage recording requests.
type CreditHandler struct {
	credits service.CreditService
	logger  *slog.Logger
}

// NewCreditHandler creates a new CreditHandler.
func NewCreditHandler(credits service.CreditService, logger *slog.Logger) *CreditHandler {
	return &CreditHandler{
		credits: credits,
		logger:  logger,
	}
}

// RegisterRoutes registers credit routes on the provided mux.
func (h *CreditHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/usage/check", h.HandleCheckLimit)
	mux.HandleFunc("POST /api/v1/usage", h.HandleRecordUsage)
	mux.HandleFunc("GET /api/v1/usage", h.HandleCurrentUsage)
}

// HandleCheckLimit decides whether the user may perform one more unit of
// paid work this month.
func (h *CreditHandler) HandleCheckLimit(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r.URL.Query().Get("user_id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	lang := i18n.Match(r.Header.Get("Accept-Language"))

	standing, err := h.credits.CheckLimit(r.Context(), userID, lang)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, standing)
}

// recordUsageRequest is the body of POST /api/v1/usage.
type recordUsageRequest struct {
	UserID uuid.UUID `json:"user_id"`
	Kind   string    `json:"kind"`
	Email  string    `json:"email,omitempty"`
	Lang   string    `json:"lang,omitempty"`
}

// HandleRecordUsage records one completed unit of work.
func (h *CreditHandler) HandleRecordUsage(w http.ResponseWriter, r *http.Request) {
	var req recordUsageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("credit.record", "invalid JSON body"))
		return
	}

	usage, err := h.credits.RecordUsage(r.Context(), service.RecordUsageParams{
		UserID: req.UserID,
		Kind:   domain.UsageKind(req.Kind),
		Email:  req.Email,
		Lang:   req.Lang,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, usage)
}

// usageSummaryResponse is the body of GET /api/v1/usage.
type usageSummaryResponse struct {
	Usage      domain.UserUsage         `json:"usage"`
	Plan       string                   `json:"plan"`
	Source     domain.EntitlementSource `json:"source"`
	Limit      int                      `json:"limit"`
	Remaining  int                      `json:"remaining"`
	CanProcess bool                     `json:"can_process"`
	PeriodEnd  string                   `json:"period_end,omitempty"`
}

// HandleCurrentUsage returns the current month's ledger with entitlement
// context.
func (h *CreditHandler) HandleCurrentUsage(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r.URL.Query().Get("user_id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	usage, err := h.credits.CurrentUsage(r.Context(), userID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	ent, err := h.credits.ResolveEntitlement(r.Context(), userID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	standing := domain.NewCreditStanding(&usage, &ent.Plan)

	resp := usageSummaryResponse{
		Usage:      usage,
		Plan:       ent.Plan.Name,
		Source:     ent.Source,
		Limit:      standing.Limit,
		Remaining:  standing.Remaining,
		CanProcess: standing.CanProcess,
	}
	if ent.Subscription != nil {
		resp.PeriodEnd = ent.Subscription.PeriodEnd.Format("2006-01-02T15:04:05Z07:00")
	}

	writeJSON(w, http.StatusOK, resp)
}

// parseUserID parses a required user_id query parameter.
func parseUserID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, domain.Invalid("", "user_id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.Invalid("", "user_id must be a valid UUID")
	}
	return id, nil
}
