package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cityreport/incident-service/internal/api/http/handlers"
	"github.com/cityreport/incident-service/internal/auth"
	"github.com/cityreport/incident-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Incidents      *handlers.IncidentsHandler
	Attachments    *handlers.AttachmentsHandler
	Dashboard      *handlers.DashboardHandler
	AuthMiddleware *auth.AuthMiddleware
	Policy         *auth.Policy
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	health := app.Group("/health")
	health.Get("/live", cfg.Health.Live)
	health.Get("/ready", cfg.Health.Ready)
	health.Get("/metrics", cfg.Health.Metrics)

	incidents := app.Group("/incidents", cfg.AuthMiddleware.Handle)
	incidents.Post("/", auth.RequirePermission(cfg.Policy, domain.PermCreateIncident), cfg.Incidents.Create)
	incidents.Get("/", cfg.Incidents.List)
	incidents.Get("/mine", cfg.Incidents.ListMine)
	incidents.Get("/:id", cfg.Incidents.Get)
	incidents.Put("/:id/status", auth.RequirePermission(cfg.Policy, domain.PermUpdateStatus), cfg.Incidents.UpdateStatus)

	attachments := app.Group("/attachments", cfg.AuthMiddleware.Handle)
	attachments.Post("/upload-urls", auth.RequirePermission(cfg.Policy, domain.PermIssueUploadURLs), cfg.Attachments.UploadURLs)

	dashboard := app.Group("/dashboard", cfg.AuthMiddleware.Handle, auth.RequirePermission(cfg.Policy, domain.PermReadDashboard))
	dashboard.Get("/statistics", cfg.Dashboard.Statistics)
}
