// Package jobs contains the background job handlers.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/animatepdf/animatepdf/internal/domain"
	"github.com/animatepdf/animatepdf/internal/email"
	"github.com/animatepdf/animatepdf/internal/metrics"
	"github.com/animatepdf/animatepdf/internal/worker"
)

// UsageAlertHandler processes usage_alert jobs: it emails a user who crossed
// a credit threshold. The alert is queued rather than sent inline so a slow
// or failing mail server never delays usage recording.
type UsageAlertHandler struct {
	emailService email.EmailService
	logger       *slog.Logger
}

// NewUsageAlertHandler creates a new handler for usage alert jobs.
func NewUsageAlertHandler(emailService email.EmailService, logger *slog.Logger) *UsageAlertHandler {
	return &UsageAlertHandler{
		emailService: emailService,
		logger:       logger,
	}
}

// Type returns the job type identifier.
func (h *UsageAlertHandler) Type() string {
	return worker.JobTypeUsageAlert
}

// Handle executes the usage alert job.
func (h *UsageAlertHandler) Handle(ctx context.Context, payload []byte) error {
	var p domain.UsageAlertParams
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	if p.Email == "" {
		return worker.NewPermanentError(fmt.Errorf("usage alert without recipient for user %s", p.UserID))
	}

	h.logger.Info("Sending usage alert",
		"user_id", p.UserID,
		"threshold", p.Threshold,
		"used", p.Used,
		"limit", p.Limit,
	)

	// SMTP failures are transient; let the queue retry them
	err := h.emailService.SendUsageAlert(ctx, p.Email, p.Lang, p.PlanName, p.Used, p.Limit, p.Threshold)
	if err != nil {
		return fmt.Errorf("send usage alert: %w", err)
	}

	metrics.UsageAlertsSent.WithLabelValues(thresholdLabel(p.Threshold)).Inc()
	return nil
}

// thresholdLabel converts a threshold fraction to a stable metric label.
func thresholdLabel(threshold float64) string {
	return strconv.Itoa(int(threshold * 100))
}
