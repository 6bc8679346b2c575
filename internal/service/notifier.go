package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cityreport/incident-service/internal/events"
)

// Email kinds carried on outgoing messages.
const (
	EmailKindNewIncident  = "NEW_INCIDENT"
	EmailKindStatusUpdate = "STATUS_UPDATE"
	EmailKindClosure      = "CLOSURE"
)

// EmailMessage is a rendered notification email.
type EmailMessage struct {
	From    string
	To      []string
	Subject string
	Body    string
	Kind    string
}

// Mailer delivers rendered emails.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// LogMailer writes emails to the log instead of sending them.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer constructs a LogMailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs msg.
func (m *LogMailer) Send(_ context.Context, msg EmailMessage) error {
	m.logger.Info("email notification",
		zap.String("from", msg.From),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("kind", msg.Kind))
	return nil
}

// WebhookNotifier forwards events to an external endpoint.
type WebhookNotifier interface {
	Notify(ctx context.Context, event events.Event) error
}

// WebhookSender POSTs events as JSON, signed with HMAC-SHA256 over the body
// in the X-Webhook-Signature header.
type WebhookSender struct {
	url    string
	secret string
	client *http.Client
}

// NewWebhookSender constructs a sender with the given request timeout.
func NewWebhookSender(url, secret string, timeout time.Duration) *WebhookSender {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookSender{url: url, secret: secret, client: &http.Client{Timeout: timeout}}
}

// Notify delivers event once. Non-2xx responses are errors.
func (w *WebhookSender) Notify(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", string(event.Type))
	if w.secret != "" {
		req.Header.Set("X-Webhook-Signature", Sign(w.secret, body))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
