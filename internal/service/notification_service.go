package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cityreport/incident-service/internal/config"
	"github.com/cityreport/incident-service/internal/domain"
	"github.com/cityreport/incident-service/internal/events"
)

// NotificationService turns lifecycle events into messages for officials
// and reporters.
type NotificationService struct {
	mailer    Mailer
	webhook   WebhookNotifier
	lifecycle *domain.Lifecycle
	logger    *zap.Logger
	cfg       config.NotificationConfig
}

// NewNotificationService creates the service. webhook may be nil. A nil
// lifecycle treats only CLOSED as a closing status.
func NewNotificationService(mailer Mailer, webhook WebhookNotifier, lifecycle *domain.Lifecycle, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		mailer:    mailer,
		webhook:   webhook,
		lifecycle: lifecycle,
		logger:    logger,
		cfg:       cfg,
	}
}

// closes reports whether moving into status ends the incident's lifecycle.
func (n *NotificationService) closes(status domain.Status) bool {
	if n.lifecycle == nil {
		return status == domain.StatusClosed
	}
	return n.lifecycle.IsTerminal(status)
}

// RegisterHandlers subscribes to events on an in-process dispatcher.
func (n *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventIncidentCreated, n.handleIncidentCreated)
	dispatcher.Subscribe(events.EventIncidentStatusChanged, n.handleIncidentStatusChanged)
}

// Handle routes one event to its handler. Used by queue consumers.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.EventIncidentCreated:
		return n.handleIncidentCreated(ctx, event)
	case events.EventIncidentStatusChanged:
		return n.handleIncidentStatusChanged(ctx, event)
	default:
		n.logger.Debug("ignoring event", zap.String("event_type", string(event.Type)))
		return nil
	}
}

func (n *NotificationService) handleIncidentCreated(ctx context.Context, event events.Event) error {
	payload := event.Created
	if payload == nil {
		return errors.New("incident.created event without payload")
	}
	n.logger.Info("IncidentCreated", zap.String("incident_id", event.IncidentID))

	var errs []error
	if len(n.cfg.OfficialEmails) == 0 {
		n.logger.Debug("no official recipients configured", zap.String("incident_id", event.IncidentID))
	} else if err := n.mailer.Send(ctx, officialAlert(n.cfg.EmailFrom, n.cfg.OfficialEmails, payload)); err != nil {
		errs = append(errs, fmt.Errorf("official alert: %w", err))
	}
	if err := n.notifyWebhook(ctx, event); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (n *NotificationService) handleIncidentStatusChanged(ctx context.Context, event events.Event) error {
	payload := event.StatusChanged
	if payload == nil {
		return errors.New("incident.status_changed event without payload")
	}
	n.logger.Info("IncidentStatusChanged",
		zap.String("incident_id", event.IncidentID),
		zap.String("new_status", string(payload.NewStatus)))

	var errs []error
	if payload.ReporterEmail == "" {
		n.logger.Debug("reporter has no email; skipping", zap.String("incident_id", event.IncidentID))
	} else if err := n.mailer.Send(ctx, reporterUpdate(n.cfg.EmailFrom, payload, n.closes(payload.NewStatus))); err != nil {
		errs = append(errs, fmt.Errorf("reporter update: %w", err))
	}
	if err := n.notifyWebhook(ctx, event); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (n *NotificationService) notifyWebhook(ctx context.Context, event events.Event) error {
	if n.webhook == nil {
		return nil
	}
	if err := n.webhook.Notify(ctx, event); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}

func officialAlert(from string, to []string, p *events.IncidentCreatedPayload) EmailMessage {
	location := p.Location
	if location == "" {
		location = "Not specified"
	}
	var b strings.Builder
	b.WriteString("A new incident has been reported and requires attention.\n\n")
	b.WriteString("Incident Details:\n")
	fmt.Fprintf(&b, "- ID: %s\n", p.IncidentID)
	fmt.Fprintf(&b, "- Title: %s\n", p.Title)
	fmt.Fprintf(&b, "- Description: %s\n", p.Description)
	fmt.Fprintf(&b, "- Category: %s\n", p.Category)
	fmt.Fprintf(&b, "- Severity: %s\n", p.Severity)
	fmt.Fprintf(&b, "- Location: %s\n", location)
	if p.Region != "" || p.District != "" {
		fmt.Fprintf(&b, "- Area: %s / %s\n", orUnknown(p.Region), orUnknown(p.District))
	}
	fmt.Fprintf(&b, "- Reported At: %s\n", p.CreatedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "- Reporter ID: %s\n\n", p.ReporterUserID)
	b.WriteString("Please review and assign appropriate personnel to handle this incident.")

	return EmailMessage{
		From:    from,
		To:      to,
		Subject: fmt.Sprintf("New %s Priority Incident Reported - %s", upper(string(p.Severity)), p.Title),
		Body:    b.String(),
		Kind:    EmailKindNewIncident,
	}
}

var reporterStatusMessages = map[domain.Status]string{
	domain.StatusInProgress: "Your reported incident is now being actively worked on by our team.",
	domain.StatusReported:   "Your incident report is currently under review by the appropriate department.",
	domain.StatusResolved:   "Great news! Your reported incident has been resolved.",
	domain.StatusClosed:     "Your incident has been closed. If you have any concerns, please contact us.",
	domain.StatusRejected:   "After review, your incident report has been declined. Please see comments for details.",
	domain.StatusPending:    "Your incident report is pending assignment to the appropriate team.",
}

// StatusMessage returns the reporter-facing sentence for a new status.
func StatusMessage(status domain.Status) string {
	if msg, ok := reporterStatusMessages[status]; ok {
		return msg
	}
	return fmt.Sprintf("Your incident status has been updated to: %s", status)
}

func reporterUpdate(from string, p *events.IncidentStatusChangedPayload, closing bool) EmailMessage {
	previous := string(p.PreviousStatus)
	if previous == "" {
		previous = "N/A"
	}
	updatedBy := p.UpdatedBy
	if updatedBy == "" {
		updatedBy = "System"
	}

	var b strings.Builder
	b.WriteString("Hello,\n\nThere's an update on your incident report.\n\n")
	b.WriteString("Incident Details:\n")
	fmt.Fprintf(&b, "- ID: %s\n", p.IncidentID)
	fmt.Fprintf(&b, "- Title: %s\n", p.Title)
	fmt.Fprintf(&b, "- Previous Status: %s\n", previous)
	fmt.Fprintf(&b, "- New Status: %s\n", p.NewStatus)
	fmt.Fprintf(&b, "- Updated By: %s\n", updatedBy)
	fmt.Fprintf(&b, "- Updated At: %s\n\n", p.Timestamp.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "Status Update:\n%s\n\n", StatusMessage(p.NewStatus))
	if p.Comments != nil && *p.Comments != "" {
		fmt.Fprintf(&b, "Additional Comments:\n%s\n\n", *p.Comments)
	}
	b.WriteString("Thank you for reporting this incident. We appreciate your contribution to improving our community.\n\n")
	b.WriteString("Best regards,\nCity Management Team")

	kind := EmailKindStatusUpdate
	if closing {
		kind = EmailKindClosure
	}
	return EmailMessage{
		From:    from,
		To:      []string{p.ReporterEmail},
		Subject: fmt.Sprintf("Incident Update: %s - Status: %s", p.Title, p.NewStatus),
		Body:    b.String(),
		Kind:    kind,
	}
}
