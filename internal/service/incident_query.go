package service

import (
	"context"
	"sort"
	"strings"

	"github.com/cityreport/incident-service/internal/domain"
	"github.com/cityreport/incident-service/internal/repository"
	apperrors "github.com/cityreport/incident-service/pkg/util/errorutil"
)

// Sort keys accepted by ListQuery.SortBy.
const (
	SortByCreatedAt = "createdAt"
	SortByPriority  = "priority"
)

// ListQuery holds optional listing parameters. Values that do not parse
// are ignored rather than rejected.
type ListQuery struct {
	Status   string
	Category string
	Severity string
	SortBy   string
	Limit    int
}

// MyIncidents is the caller's own incidents plus a per-status count.
type MyIncidents struct {
	Incidents []domain.Incident
	Summary   map[domain.Status]int
}

// ListForCaller returns the incidents visible to caller: all of them for
// admins, the caller's region for city officials, otherwise the caller's own.
func (s *IncidentService) ListForCaller(ctx context.Context, caller domain.Caller, query ListQuery) ([]domain.Incident, error) {
	scope, err := s.scopeFilter(caller)
	if err != nil {
		return nil, err
	}
	incidents, err := s.list(ctx, s.applyQuery(scope, query))
	if err != nil {
		return nil, err
	}
	incidents = limitIncidents(sortIncidents(incidents, query.SortBy), query.Limit)
	if err := s.resolveAttachments(ctx, incidents); err != nil {
		return nil, err
	}
	return incidents, nil
}

// ListMine returns the caller's own incidents regardless of role.
func (s *IncidentService) ListMine(ctx context.Context, caller domain.Caller, query ListQuery) (*MyIncidents, error) {
	if caller.ID == "" {
		return nil, apperrors.NewUnauthorized("missing identity")
	}
	reporter := caller.ID
	incidents, err := s.list(ctx, s.applyQuery(repository.IncidentFilter{ReporterUserID: &reporter}, query))
	if err != nil {
		return nil, err
	}

	summary := make(map[domain.Status]int)
	for _, incident := range incidents {
		summary[incident.Status]++
	}

	incidents = limitIncidents(sortIncidents(incidents, query.SortBy), query.Limit)
	if err := s.resolveAttachments(ctx, incidents); err != nil {
		return nil, err
	}
	return &MyIncidents{Incidents: incidents, Summary: summary}, nil
}

func (s *IncidentService) list(ctx context.Context, filter repository.IncidentFilter) ([]domain.Incident, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	incidents, err := s.incidents.List(callCtx, filter)
	if err != nil {
		return nil, apperrors.NewDependencyError("incident repository", err)
	}
	return incidents, nil
}

// scopeFilter returns the filter that restricts reads to what caller may see.
func (s *IncidentService) scopeFilter(caller domain.Caller) (repository.IncidentFilter, error) {
	switch {
	case caller.ID == "":
		return repository.IncidentFilter{}, apperrors.NewUnauthorized("missing identity")
	case s.authz.Allowed(caller, domain.PermReadAllIncidents):
		return repository.IncidentFilter{}, nil
	case s.authz.Allowed(caller, domain.PermReadRegion):
		region := strings.TrimSpace(caller.Region)
		if region == "" {
			return repository.IncidentFilter{}, apperrors.NewValidationError("city official has no region assigned", nil)
		}
		return repository.IncidentFilter{Region: &region}, nil
	default:
		reporter := caller.ID
		return repository.IncidentFilter{ReporterUserID: &reporter}, nil
	}
}

func inScope(scope repository.IncidentFilter, incident *domain.Incident) bool {
	if scope.ReporterUserID != nil && incident.ReporterUserID != *scope.ReporterUserID {
		return false
	}
	if scope.Region != nil && incident.Region != *scope.Region {
		return false
	}
	return true
}

func (s *IncidentService) applyQuery(filter repository.IncidentFilter, query ListQuery) repository.IncidentFilter {
	if status, ok := s.lifecycle.Normalize(query.Status); ok {
		filter.Statuses = []domain.Status{status}
	}
	if category, ok := domain.ParseCategory(query.Category); ok {
		filter.Categories = []domain.Category{category}
	}
	if severity, ok := domain.ParseSeverity(query.Severity); ok {
		filter.Severities = []domain.Severity{severity}
	}
	return filter
}

// sortIncidents orders by creation time, newest first, or by severity rank
// when sortBy is "priority". Ties fall back to newest first.
func sortIncidents(incidents []domain.Incident, sortBy string) []domain.Incident {
	byPriority := strings.EqualFold(strings.TrimSpace(sortBy), SortByPriority)
	sort.SliceStable(incidents, func(i, j int) bool {
		a, b := incidents[i], incidents[j]
		if byPriority && a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return incidents
}

func limitIncidents(incidents []domain.Incident, limit int) []domain.Incident {
	if limit > 0 && len(incidents) > limit {
		return incidents[:limit]
	}
	return incidents
}

// resolveAttachments fills in short-lived download URLs in place.
func (s *IncidentService) resolveAttachments(ctx context.Context, incidents []domain.Incident) error {
	if s.issuer == nil {
		return nil
	}
	for i := range incidents {
		for j := range incidents[i].Attachments {
			attachment := &incidents[i].Attachments[j]
			callCtx, cancel := context.WithTimeout(ctx, s.timeout)
			url, err := s.issuer.IssueDownloadURL(callCtx, attachment.Key, s.downloadTTL)
			cancel()
			if err != nil {
				return apperrors.NewDependencyError("attachment storage", err)
			}
			attachment.DownloadURL = url
		}
	}
	return nil
}
