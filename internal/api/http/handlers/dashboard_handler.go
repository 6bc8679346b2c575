package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cityreport/incident-service/internal/api/dto"
	"github.com/cityreport/incident-service/internal/service"
)

// DashboardHandler serves aggregate statistics.
type DashboardHandler struct {
	service *service.IncidentService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(incidentService *service.IncidentService) *DashboardHandler {
	return &DashboardHandler{service: incidentService}
}

// Statistics GET /dashboard/statistics.
func (h *DashboardHandler) Statistics(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	stats, err := h.service.GetAggregateStatistics(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromStatistics(stats))
}
