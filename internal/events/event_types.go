package events

import (
	"time"

	"github.com/cityreport/incident-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIncidentCreated       EventType = "incident.created"
	EventIncidentStatusChanged EventType = "incident.status_changed"
)

// Event represents a domain event emitted by services. Exactly one payload
// is set, matching Type.
type Event struct {
	ID            string                        `json:"id"`
	Type          EventType                     `json:"type"`
	IncidentID    string                        `json:"incidentId"`
	Actor         string                        `json:"actor"`
	Timestamp     time.Time                     `json:"timestamp"`
	Created       *IncidentCreatedPayload       `json:"created,omitempty"`
	StatusChanged *IncidentStatusChangedPayload `json:"statusChanged,omitempty"`
}

// IncidentCreatedPayload payload.
type IncidentCreatedPayload struct {
	IncidentID     string          `json:"incidentId"`
	ReporterUserID string          `json:"reporterUserId"`
	ReporterEmail  string          `json:"reporterEmail,omitempty"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Category       domain.Category `json:"category"`
	Severity       domain.Severity `json:"severity"`
	Location       string          `json:"location,omitempty"`
	Region         string          `json:"region,omitempty"`
	District       string          `json:"district,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// IncidentStatusChangedPayload payload.
type IncidentStatusChangedPayload struct {
	IncidentID     string        `json:"incidentId"`
	ReporterUserID string        `json:"reporterUserId"`
	ReporterEmail  string        `json:"reporterEmail,omitempty"`
	Title          string        `json:"title"`
	PreviousStatus domain.Status `json:"previousStatus"`
	NewStatus      domain.Status `json:"newStatus"`
	UpdatedBy      string        `json:"updatedBy"`
	Comments       *string       `json:"comments,omitempty"`
	AssignedTo     *string       `json:"assignedTo,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
}
