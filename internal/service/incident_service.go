package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cityreport/incident-service/internal/domain"
	"github.com/cityreport/incident-service/internal/events"
	"github.com/cityreport/incident-service/internal/repository"
	"github.com/cityreport/incident-service/internal/storage"
	apperrors "github.com/cityreport/incident-service/pkg/util/errorutil"
)

const defaultDependencyTimeout = 5 * time.Second

// Authorizer answers capability questions about a caller.
type Authorizer interface {
	Allowed(caller domain.Caller, perm domain.Permission) bool
}

// IncidentService is the incident lifecycle engine: it validates input and
// transitions, scopes reads to the caller's role and emits lifecycle events.
type IncidentService struct {
	incidents   repository.IncidentRepository
	publisher   events.Publisher
	issuer      storage.URLIssuer
	authz       Authorizer
	lifecycle   *domain.Lifecycle
	logger      *zap.Logger
	timeout     time.Duration
	downloadTTL time.Duration
	now         func() time.Time
}

// IncidentDependencies bundles collaborators for the incident service.
type IncidentDependencies struct {
	IncidentRepo repository.IncidentRepository
	Publisher    events.Publisher
	// URLIssuer may be nil when attachment storage is not configured;
	// attachments are then returned without download URLs.
	URLIssuer   storage.URLIssuer
	Authorizer  Authorizer
	Lifecycle   *domain.Lifecycle
	Logger      *zap.Logger
	Timeout     time.Duration
	DownloadTTL time.Duration
	Clock       func() time.Time
}

// IncidentCreateInput describes incident creation payload.
type IncidentCreateInput struct {
	Title       string
	Description string
	Category    string
	Severity    string
	Location    string
	Region      string
	District    string
	ImageURLs   []string
	Attachments []AttachmentInput
}

// AttachmentInput references an object previously uploaded through an
// issued upload URL.
type AttachmentInput struct {
	Key         string
	ContentType string
}

// TransitionInput describes a status change request.
type TransitionInput struct {
	Status     string
	Comments   *string
	AssignedTo *string
}

// TransitionResult reports the outcome of a status change.
type TransitionResult struct {
	Incident       *domain.Incident
	PreviousStatus domain.Status
	NewStatus      domain.Status
}

// NewIncidentService constructs the service.
func NewIncidentService(deps IncidentDependencies) *IncidentService {
	svc := &IncidentService{
		incidents:   deps.IncidentRepo,
		publisher:   deps.Publisher,
		issuer:      deps.URLIssuer,
		authz:       deps.Authorizer,
		lifecycle:   deps.Lifecycle,
		logger:      deps.Logger,
		timeout:     deps.Timeout,
		downloadTTL: deps.DownloadTTL,
		now:         deps.Clock,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.timeout <= 0 {
		svc.timeout = defaultDependencyTimeout
	}
	if svc.downloadTTL <= 0 {
		svc.downloadTTL = time.Hour
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// Lifecycle exposes the configured status vocabulary.
func (s *IncidentService) Lifecycle() *domain.Lifecycle {
	return s.lifecycle
}

// Create validates and stores a new incident reported by caller.
func (s *IncidentService) Create(ctx context.Context, caller domain.Caller, input IncidentCreateInput) (*domain.Incident, error) {
	if caller.ID == "" {
		return nil, apperrors.NewUnauthorized("missing identity")
	}
	if !s.authz.Allowed(caller, domain.PermCreateIncident) {
		return nil, apperrors.NewForbidden("insufficient permissions to report incidents")
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}

	category := domain.CategoryOther
	if strings.TrimSpace(input.Category) != "" {
		parsed, ok := domain.ParseCategory(input.Category)
		if !ok {
			return nil, apperrors.NewValidationError("invalid category", map[string]any{"allowed": domain.Categories})
		}
		category = parsed
	}
	severity := domain.SeverityMedium
	if strings.TrimSpace(input.Severity) != "" {
		parsed, ok := domain.ParseSeverity(input.Severity)
		if !ok {
			return nil, apperrors.NewValidationError("invalid severity", map[string]any{"allowed": domain.Severities})
		}
		severity = parsed
	}

	imageURLs, err := validateImageURLs(input.ImageURLs)
	if err != nil {
		return nil, err
	}
	attachments, err := validateAttachments(input.Attachments)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	incident := &domain.Incident{
		ID:             uuid.NewString(),
		ReporterUserID: caller.ID,
		ReporterEmail:  caller.Email,
		Title:          title,
		Description:    description,
		Category:       category,
		Severity:       severity,
		Status:         s.lifecycle.Initial(),
		Region:         strings.TrimSpace(input.Region),
		District:       strings.TrimSpace(input.District),
		Location:       strings.TrimSpace(input.Location),
		ImageURLs:      imageURLs,
		Attachments:    attachments,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	err = s.incidents.Create(callCtx, incident)
	cancel()
	if err != nil {
		return nil, apperrors.NewDependencyError("incident repository", err)
	}

	s.logger.Info("incident created",
		zap.String("incident_id", incident.ID),
		zap.String("reporter_id", caller.ID),
		zap.String("severity", string(severity)))

	s.publishEvent(ctx, events.Event{
		Type:       events.EventIncidentCreated,
		IncidentID: incident.ID,
		Actor:      caller.ID,
		Timestamp:  now,
		Created: &events.IncidentCreatedPayload{
			IncidentID:     incident.ID,
			ReporterUserID: incident.ReporterUserID,
			ReporterEmail:  incident.ReporterEmail,
			Title:          incident.Title,
			Description:    incident.Description,
			Category:       incident.Category,
			Severity:       incident.Severity,
			Location:       incident.Location,
			Region:         incident.Region,
			District:       incident.District,
			CreatedAt:      incident.CreatedAt,
		},
	})
	return incident, nil
}

// Transition moves an incident to a new status. The stored status is
// checked and replaced in one atomic repository update.
func (s *IncidentService) Transition(ctx context.Context, caller domain.Caller, incidentID string, input TransitionInput) (*TransitionResult, error) {
	if !s.authz.Allowed(caller, domain.PermUpdateStatus) {
		return nil, apperrors.NewForbidden("insufficient permissions to update incident status")
	}
	newStatus, ok := s.lifecycle.Normalize(input.Status)
	if !ok {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{
			"status":        input.Status,
			"validStatuses": s.lifecycle.Statuses(),
		})
	}
	incidentID = strings.TrimSpace(incidentID)
	if incidentID == "" {
		return nil, apperrors.NewValidationError("incident id is required", nil)
	}
	sources := s.lifecycle.SourcesFor(newStatus)
	if len(sources) == 0 {
		return nil, apperrors.NewValidationError("status cannot be set by a transition", map[string]any{"status": newStatus})
	}

	now := s.now().UTC()
	update := repository.StatusUpdate{
		IncidentID:  incidentID,
		NewStatus:   newStatus,
		AllowedFrom: sources,
		UpdatedAt:   now,
		UpdatedBy:   caller.ID,
		Comments:    trimmedOrNil(input.Comments),
		AssignedTo:  trimmedOrNil(input.AssignedTo),
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	previous, incident, err := s.incidents.UpdateStatus(callCtx, update)
	cancel()
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.NewNotFound("incident", map[string]any{"incidentId": incidentID})
	case errors.Is(err, repository.ErrTransitionRejected):
		return nil, apperrors.NewValidationError("incident is in a terminal state", map[string]any{
			"currentStatus":   previous,
			"requestedStatus": newStatus,
		})
	case err != nil:
		return nil, apperrors.NewDependencyError("incident repository", err)
	}

	s.logger.Info("incident status changed",
		zap.String("incident_id", incident.ID),
		zap.String("previous_status", string(previous)),
		zap.String("new_status", string(newStatus)),
		zap.String("updated_by", caller.ID))

	s.publishEvent(ctx, events.Event{
		Type:       events.EventIncidentStatusChanged,
		IncidentID: incident.ID,
		Actor:      caller.ID,
		Timestamp:  now,
		StatusChanged: &events.IncidentStatusChangedPayload{
			IncidentID:     incident.ID,
			ReporterUserID: incident.ReporterUserID,
			ReporterEmail:  incident.ReporterEmail,
			Title:          incident.Title,
			PreviousStatus: previous,
			NewStatus:      newStatus,
			UpdatedBy:      caller.ID,
			Comments:       update.Comments,
			AssignedTo:     incident.AssignedTo,
			Timestamp:      now,
		},
	})
	return &TransitionResult{Incident: incident, PreviousStatus: previous, NewStatus: newStatus}, nil
}

// Get returns one incident if it lies inside the caller's scope. Incidents
// outside the scope are reported as not found.
func (s *IncidentService) Get(ctx context.Context, caller domain.Caller, incidentID string) (*domain.Incident, error) {
	scope, err := s.scopeFilter(caller)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	incident, err := s.incidents.GetByID(callCtx, incidentID)
	cancel()
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("incident", map[string]any{"incidentId": incidentID})
	}
	if err != nil {
		return nil, apperrors.NewDependencyError("incident repository", err)
	}
	if !inScope(scope, incident) {
		return nil, apperrors.NewNotFound("incident", map[string]any{"incidentId": incidentID})
	}

	resolved := []domain.Incident{*incident}
	if err := s.resolveAttachments(ctx, resolved); err != nil {
		return nil, err
	}
	return &resolved[0], nil
}

func (s *IncidentService) publishEvent(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.publisher.Publish(callCtx, event); err != nil {
		s.logger.Warn("failed to publish incident event",
			zap.String("incident_id", event.IncidentID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
