package dto

import (
	"time"

	"github.com/cityreport/incident-service/internal/domain"
)

// CreateIncidentRequest payload.
type CreateIncidentRequest struct {
	Title       string              `json:"title" validate:"required,max=200"`
	Description string              `json:"description" validate:"required,max=5000"`
	Category    string              `json:"category" validate:"omitempty,max=64"`
	Severity    string              `json:"severity" validate:"omitempty,max=16"`
	Location    string              `json:"location" validate:"omitempty,max=500"`
	Region      string              `json:"region" validate:"omitempty,max=100"`
	District    string              `json:"district" validate:"omitempty,max=100"`
	ImageURLs   []string            `json:"imageUrls" validate:"omitempty,max=10,dive,required"`
	Attachments []AttachmentRequest `json:"attachments" validate:"omitempty,max=10,dive"`
}

// AttachmentRequest references an object uploaded through an issued URL.
type AttachmentRequest struct {
	Key         string `json:"s3Key" validate:"required"`
	ContentType string `json:"type"`
}

// CreateIncidentResponse is returned by POST /incidents.
type CreateIncidentResponse struct {
	Message    string   `json:"message"`
	IncidentID string   `json:"incidentId"`
	ImageURLs  []string `json:"imageUrls"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status     string  `json:"status" validate:"required"`
	Comments   *string `json:"comments" validate:"omitempty,max=2000"`
	AssignedTo *string `json:"assignedTo" validate:"omitempty,max=200"`
}

// UpdateStatusResponse is returned by PUT /incidents/:id/status.
type UpdateStatusResponse struct {
	Incident       IncidentResponse `json:"incident"`
	PreviousStatus domain.Status    `json:"previousStatus"`
	NewStatus      domain.Status    `json:"newStatus"`
}

// IncidentResponse is the public representation of an incident.
type IncidentResponse struct {
	IncidentID     string               `json:"incidentId"`
	ReporterUserID string               `json:"reporterUserId"`
	Title          string               `json:"title"`
	Description    string               `json:"description"`
	Category       domain.Category      `json:"category"`
	Severity       domain.Severity      `json:"severity"`
	Status         domain.Status        `json:"status"`
	Location       string               `json:"location,omitempty"`
	Region         string               `json:"region,omitempty"`
	District       string               `json:"district,omitempty"`
	ImageURLs      []string             `json:"imageUrls"`
	Attachments    []AttachmentResponse `json:"attachments,omitempty"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
	UpdatedBy      *string              `json:"updatedBy,omitempty"`
	Comments       *string              `json:"comments,omitempty"`
	AssignedTo     *string              `json:"assignedTo,omitempty"`
}

// AttachmentResponse carries a short-lived download URL.
type AttachmentResponse struct {
	Key         string `json:"s3Key"`
	ContentType string `json:"type,omitempty"`
	URL         string `json:"url,omitempty"`
}

// IncidentListResponse is returned by GET /incidents.
type IncidentListResponse struct {
	Incidents []IncidentResponse `json:"incidents"`
	Count     int                `json:"count"`
}

// MyIncidentsResponse is returned by GET /incidents/mine.
type MyIncidentsResponse struct {
	Incidents []IncidentResponse    `json:"incidents"`
	Count     int                   `json:"count"`
	Summary   map[domain.Status]int `json:"summary"`
}

// FromIncident maps a domain incident to its response shape.
func FromIncident(incident *domain.Incident) IncidentResponse {
	resp := IncidentResponse{
		IncidentID:     incident.ID,
		ReporterUserID: incident.ReporterUserID,
		Title:          incident.Title,
		Description:    incident.Description,
		Category:       incident.Category,
		Severity:       incident.Severity,
		Status:         incident.Status,
		Location:       incident.Location,
		Region:         incident.Region,
		District:       incident.District,
		ImageURLs:      incident.ImageURLs,
		CreatedAt:      incident.CreatedAt,
		UpdatedAt:      incident.UpdatedAt,
		UpdatedBy:      incident.UpdatedBy,
		Comments:       incident.Comments,
		AssignedTo:     incident.AssignedTo,
	}
	if resp.ImageURLs == nil {
		resp.ImageURLs = []string{}
	}
	for _, a := range incident.Attachments {
		resp.Attachments = append(resp.Attachments, AttachmentResponse{
			Key:         a.Key,
			ContentType: a.ContentType,
			URL:         a.DownloadURL,
		})
	}
	return resp
}

// FromIncidents maps a slice, never returning nil.
func FromIncidents(incidents []domain.Incident) []IncidentResponse {
	out := make([]IncidentResponse, 0, len(incidents))
	for i := range incidents {
		out = append(out, FromIncident(&incidents[i]))
	}
	return out
}
