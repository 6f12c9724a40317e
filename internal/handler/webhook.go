// Stripe webhook handler.
//
// Route:
//   - POST /webhooks/stripe -> HandleStripeWebhook
//
// This route is PUBLIC (no auth middleware) because Stripe calls it directly.
// Authentication is via the Stripe webhook signature verification.
//
// Checkout sessions are created by the product backend with the AnimatePDF
// user ID in the subscription metadata, so every subscription event carries
// the user it belongs to.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"

	"github.com/animatepdf/animatepdf/internal/billing"
	"github.com/animatepdf/animatepdf/internal/domain"
	"github.com/animatepdf/animatepdf/internal/metrics"
	"github.com/animatepdf/animatepdf/internal/service"
)

// WebhookHandler handles incoming webhook events from Stripe.
type WebhookHandler struct {
	billing       billing.Service
	subscriptions service.SubscriptionService
	logger        *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
// billingService may be nil when Stripe is not configured.
func NewWebhookHandler(billingService billing.Service, subscriptions service.SubscriptionService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		billing:       billingService,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// RegisterRoutes registers webhook routes on the provided mux.
// These routes are PUBLIC, no auth middleware.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhooks/stripe", h.HandleStripeWebhook)
}

// HandleStripeWebhook processes incoming Stripe webhook events.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		h.logger.Warn("stripe webhook received but billing is not configured")
		w.WriteHeader(http.StatusOK)
		return
	}

	// Limit body to 64KB
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	event, err := h.billing.VerifyWebhookSignature(body, signature)
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.logger.Info("stripe webhook received", "type", event.Type, "id", event.ID)

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated":
		h.handleSubscriptionEvent(event)
	case "customer.subscription.deleted":
		h.handleSubscriptionDeleted(event)
	case "invoice.payment_succeeded":
		h.handlePaymentSucceeded(event)
	case "invoice.payment_failed":
		h.handlePaymentFailed(event)
	default:
		h.logger.Debug("unhandled webhook event type", "type", event.Type)
		metrics.StripeWebhooksTotal.WithLabelValues(string(event.Type), "skipped").Inc()
	}

	// Always 200 for verified events; Stripe retries on other statuses and
	// malformed payloads will never become well-formed
	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) handleSubscriptionEvent(event stripe.Event) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("failed to parse subscription event", "error", err, "type", event.Type)
		h.recordEvent(event, "error")
		return
	}

	userID, ok := h.userIDFromMetadata(sub.Metadata, sub.ID)
	if !ok {
		h.recordEvent(event, "skipped")
		return
	}

	planName := ""
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		planName = h.billing.PlanForPriceID(sub.Items.Data[0].Price.ID)
	}
	if planName == "" {
		h.logger.Warn("subscription event with unknown price", "subscription_id", sub.ID)
		h.recordEvent(event, "skipped")
		return
	}

	_, err := h.subscriptions.Apply(webhookCtx(), service.ApplySubscriptionParams{
		UserID:               userID,
		PlanName:             planName,
		Status:               mapStripeStatus(sub.Status),
		PeriodStart:          time.Unix(sub.CurrentPeriodStart, 0).UTC(),
		PeriodEnd:            time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
		StripeSubscriptionID: sub.ID,
	})
	if err != nil {
		h.logger.Error("failed to apply subscription event", "error", err, "subscription_id", sub.ID)
		h.recordEvent(event, "error")
		return
	}

	h.recordEvent(event, "processed")
}

func (h *WebhookHandler) handleSubscriptionDeleted(event stripe.Event) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("failed to parse subscription deleted event", "error", err)
		h.recordEvent(event, "error")
		return
	}

	if err := h.subscriptions.SetStatus(webhookCtx(), sub.ID, domain.SubscriptionStatusCanceled); err != nil {
		h.logger.Error("failed to cancel subscription", "error", err, "subscription_id", sub.ID)
		h.recordEvent(event, "error")
		return
	}

	h.logger.Info("subscription canceled", "subscription_id", sub.ID)
	h.recordEvent(event, "processed")
}

func (h *WebhookHandler) handlePaymentSucceeded(event stripe.Event) {
	h.setStatusFromInvoice(event, domain.SubscriptionStatusActive)
}

func (h *WebhookHandler) handlePaymentFailed(event stripe.Event) {
	h.setStatusFromInvoice(event, domain.SubscriptionStatusPastDue)
}

func (h *WebhookHandler) setStatusFromInvoice(event stripe.Event, status domain.SubscriptionStatus) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		h.logger.Error("failed to parse invoice event", "error", err, "type", event.Type)
		h.recordEvent(event, "error")
		return
	}

	if invoice.Subscription == nil {
		h.recordEvent(event, "skipped")
		return
	}

	if err := h.subscriptions.SetStatus(webhookCtx(), invoice.Subscription.ID, status); err != nil {
		h.logger.Error("failed to update subscription from invoice",
			"error", err, "subscription_id", invoice.Subscription.ID, "status", status)
		h.recordEvent(event, "error")
		return
	}

	if status == domain.SubscriptionStatusPastDue {
		h.logger.Warn("payment failed", "subscription_id", invoice.Subscription.ID)
	}
	h.recordEvent(event, "processed")
}

func (h *WebhookHandler) userIDFromMetadata(metadata map[string]string, subscriptionID string) (uuid.UUID, bool) {
	raw := metadata["user_id"]
	if raw == "" {
		h.logger.Warn("subscription event missing user_id metadata", "subscription_id", subscriptionID)
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		h.logger.Warn("subscription event with malformed user_id metadata",
			"subscription_id", subscriptionID, "user_id", raw)
		return uuid.Nil, false
	}
	return userID, true
}

func (h *WebhookHandler) recordEvent(event stripe.Event, status string) {
	metrics.StripeWebhooksTotal.WithLabelValues(string(event.Type), status).Inc()
}

// mapStripeStatus converts a Stripe subscription status to the local status.
func mapStripeStatus(status stripe.SubscriptionStatus) domain.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return domain.SubscriptionStatusActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return domain.SubscriptionStatusPastDue
	default:
		return domain.SubscriptionStatusCanceled
	}
}

// webhookCtx returns a background context for webhook processing.
// Webhooks are async events and don't ride on a user request context.
func webhookCtx() context.Context {
	return context.Background()
}
