// Package email provides email sending for the AnimatePDF backend.
//
// The only transactional mail this service sends is the usage alert: a
// notification when a user crosses 80% or 100% of their monthly credit
// budget. Delivery is via SMTP (Mailhog in development, a provider's SMTP
// endpoint in production).
package email

import (
	"context"
)

// EmailService defines the interface for sending transactional emails.
// All methods are context-aware for timeout and cancellation support.
type EmailService interface {
	// SendUsageAlert notifies a user that they crossed a credit threshold.
	// The subject and body are localized for lang ("en" or "tr").
	SendUsageAlert(ctx context.Context, to, lang, planName string, used, limit int, threshold float64) error
}

// Email represents a single email message.
type Email struct {
	To       string // recipient email address
	Subject  string // subject line
	TextBody string // plain text content
}

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string // SMTP server hostname (e.g., "localhost" for Mailhog)
	Port     int    // SMTP server port (e.g., 1025 for Mailhog)
	Username string // SMTP authentication username (empty for Mailhog)
	Password string // SMTP authentication password (empty for Mailhog)
	From     string // default sender email address
	FromName string // default sender display name
}

const (
	// DefaultFromEmail is the default sender email for transactional emails.
	DefaultFromEmail = "noreply@animatepdf.com"

	// DefaultFromName is the default sender display name.
	DefaultFromName = "AnimatePDF"
)
