package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/cityreport/incident-service/internal/api/dto"
	"github.com/cityreport/incident-service/internal/service"
)

// IncidentsHandler serves the incident lifecycle endpoints.
type IncidentsHandler struct {
	service *service.IncidentService
}

// NewIncidentsHandler constructs handler.
func NewIncidentsHandler(incidentService *service.IncidentService) *IncidentsHandler {
	return &IncidentsHandler{service: incidentService}
}

// Create POST /incidents.
func (h *IncidentsHandler) Create(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateIncidentRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}

	attachments := make([]service.AttachmentInput, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		attachments = append(attachments, service.AttachmentInput{Key: a.Key, ContentType: a.ContentType})
	}
	incident, err := h.service.Create(c.UserContext(), caller, service.IncidentCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Severity:    req.Severity,
		Location:    req.Location,
		Region:      req.Region,
		District:    req.District,
		ImageURLs:   req.ImageURLs,
		Attachments: attachments,
	})
	if err != nil {
		return err
	}

	imageURLs := incident.ImageURLs
	if imageURLs == nil {
		imageURLs = []string{}
	}
	return c.Status(http.StatusCreated).JSON(dto.CreateIncidentResponse{
		Message:    "Incident created successfully",
		IncidentID: incident.ID,
		ImageURLs:  imageURLs,
	})
}

// List GET /incidents.
func (h *IncidentsHandler) List(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	incidents, err := h.service.ListForCaller(c.UserContext(), caller, parseListQuery(c))
	if err != nil {
		return err
	}
	items := dto.FromIncidents(incidents)
	return c.JSON(dto.IncidentListResponse{Incidents: items, Count: len(items)})
}

// ListMine GET /incidents/mine.
func (h *IncidentsHandler) ListMine(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	mine, err := h.service.ListMine(c.UserContext(), caller, parseListQuery(c))
	if err != nil {
		return err
	}
	items := dto.FromIncidents(mine.Incidents)
	return c.JSON(dto.MyIncidentsResponse{Incidents: items, Count: len(items), Summary: mine.Summary})
}

// Get GET /incidents/:id.
func (h *IncidentsHandler) Get(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	incident, err := h.service.Get(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"incident": dto.FromIncident(incident)})
}

// UpdateStatus PUT /incidents/:id/status.
func (h *IncidentsHandler) UpdateStatus(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	result, err := h.service.Transition(c.UserContext(), caller, c.Params("id"), service.TransitionInput{
		Status:     req.Status,
		Comments:   req.Comments,
		AssignedTo: req.AssignedTo,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.UpdateStatusResponse{
		Incident:       dto.FromIncident(result.Incident),
		PreviousStatus: result.PreviousStatus,
		NewStatus:      result.NewStatus,
	})
}
