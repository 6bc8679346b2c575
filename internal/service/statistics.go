package service

import (
	"context"
	"sort"
	"time"

	"github.com/cityreport/incident-service/internal/domain"
	"github.com/cityreport/incident-service/internal/repository"
	apperrors "github.com/cityreport/incident-service/pkg/util/errorutil"
)

const unknownArea = "Unknown"

// DashboardExport is a full snapshot written by the export job.
type DashboardExport struct {
	GeneratedAt time.Time
	Incidents   []domain.Incident
	Statistics  domain.Statistics
}

// GetAggregateStatistics returns grouped counts over the incidents caller
// may see. Only admins and city officials hold the dashboard capability.
func (s *IncidentService) GetAggregateStatistics(ctx context.Context, caller domain.Caller) (*domain.Statistics, error) {
	if caller.ID == "" {
		return nil, apperrors.NewUnauthorized("missing identity")
	}
	if !s.authz.Allowed(caller, domain.PermReadDashboard) {
		return nil, apperrors.NewForbidden("insufficient permissions to read dashboard statistics")
	}
	scope, err := s.scopeFilter(caller)
	if err != nil {
		return nil, err
	}
	if scope.ReporterUserID != nil {
		return nil, apperrors.NewForbidden("insufficient permissions to read dashboard statistics")
	}

	incidents, err := s.list(ctx, scope)
	if err != nil {
		return nil, err
	}
	stats := s.aggregate(incidents)
	return &stats, nil
}

// ExportDashboard snapshots every incident for the periodic export. It is
// not caller scoped and is only reachable from background jobs.
func (s *IncidentService) ExportDashboard(ctx context.Context) (*DashboardExport, error) {
	incidents, err := s.list(ctx, repository.IncidentFilter{})
	if err != nil {
		return nil, err
	}
	return &DashboardExport{
		GeneratedAt: s.now().UTC(),
		Incidents:   incidents,
		Statistics:  s.aggregate(incidents),
	}, nil
}

func (s *IncidentService) aggregate(incidents []domain.Incident) domain.Statistics {
	stats := domain.Statistics{
		Total:      len(incidents),
		ByStatus:   make(map[domain.Status]int),
		ByCategory: make(map[domain.Category]int),
		BySeverity: make(map[domain.Severity]int),
	}
	for _, status := range s.lifecycle.Statuses() {
		stats.ByStatus[status] = 0
	}
	for _, category := range domain.Categories {
		stats.ByCategory[category] = 0
	}
	for _, severity := range domain.Severities {
		stats.BySeverity[severity] = 0
	}

	districts := make(map[[2]string]*domain.DistrictStatistics)
	for _, incident := range incidents {
		stats.ByStatus[incident.Status]++
		stats.ByCategory[incident.Category]++
		stats.BySeverity[incident.Severity]++

		key := [2]string{orUnknown(incident.Region), orUnknown(incident.District)}
		d, ok := districts[key]
		if !ok {
			d = &domain.DistrictStatistics{
				Region:     key[0],
				District:   key[1],
				ByStatus:   make(map[domain.Status]int),
				ByCategory: make(map[domain.Category]int),
			}
			districts[key] = d
		}
		d.Total++
		d.ByStatus[incident.Status]++
		d.ByCategory[incident.Category]++
	}

	stats.Districts = make([]domain.DistrictStatistics, 0, len(districts))
	for _, d := range districts {
		stats.Districts = append(stats.Districts, *d)
	}
	sort.Slice(stats.Districts, func(i, j int) bool {
		if stats.Districts[i].Region != stats.Districts[j].Region {
			return stats.Districts[i].Region < stats.Districts[j].Region
		}
		return stats.Districts[i].District < stats.Districts[j].District
	})
	return stats
}

func orUnknown(s string) string {
	if s == "" {
		return unknownArea
	}
	return s
}
