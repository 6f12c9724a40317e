package jobs

import (
	"context"
	"log/slog"

	"github.com/animatepdf/animatepdf/internal/metrics"
	"github.com/animatepdf/animatepdf/internal/service"
	"github.com/animatepdf/animatepdf/internal/worker"
)

// ExpireSubscriptionsHandler processes expire_subscriptions jobs: a periodic
// sweep that marks subscriptions past their period end as expired, so their
// users fall back to the free plan on the next credit check.
type ExpireSubscriptionsHandler struct {
	subscriptions service.SubscriptionService
	logger        *slog.Logger
}

// NewExpireSubscriptionsHandler creates a new handler for subscription expiry
// sweeps.
func NewExpireSubscriptionsHandler(subscriptions service.SubscriptionService, logger *slog.Logger) *ExpireSubscriptionsHandler {
	return &ExpireSubscriptionsHandler{
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// Type returns the job type identifier.
func (h *ExpireSubscriptionsHandler) Type() string {
	return worker.JobTypeExpireSubscriptions
}

// Handle executes the expiry sweep. The payload is empty.
func (h *ExpireSubscriptionsHandler) Handle(ctx context.Context, payload []byte) error {
	count, err := h.subscriptions.ExpireLapsed(ctx)
	if err != nil {
		return err
	}

	if count > 0 {
		metrics.SubscriptionsExpired.Add(float64(count))
		h.logger.Info("Expired lapsed subscriptions", "count", count)
	}
	return nil
}
