package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cityreport/incident-service/internal/domain"
)

// memoryIncidentRepository keeps incidents in process memory. Used for
// DB_DRIVER=memory and in tests.
type memoryIncidentRepository struct {
	mu        sync.RWMutex
	incidents map[string]domain.Incident
}

// NewMemoryIncidentRepository instantiates an empty in-memory repository.
func NewMemoryIncidentRepository() IncidentRepository {
	return &memoryIncidentRepository{incidents: make(map[string]domain.Incident)}
}

func (r *memoryIncidentRepository) Create(_ context.Context, incident *domain.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.incidents[incident.ID]; exists {
		return fmt.Errorf("incident %s already exists", incident.ID)
	}
	r.incidents[incident.ID] = incident.Clone()
	return nil
}

func (r *memoryIncidentRepository) GetByID(_ context.Context, id string) (*domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	incident, ok := r.incidents[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := incident.Clone()
	return &out, nil
}

func (r *memoryIncidentRepository) List(_ context.Context, filter IncidentFilter) ([]domain.Incident, error) {
	r.mu.RLock()
	result := make([]domain.Incident, 0, len(r.incidents))
	for _, incident := range r.incidents {
		if matchesFilter(incident, filter) {
			result = append(result, incident.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *memoryIncidentRepository) UpdateStatus(_ context.Context, update StatusUpdate) (domain.Status, *domain.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	incident, ok := r.incidents[update.IncidentID]
	if !ok {
		return "", nil, ErrNotFound
	}
	previous := incident.Status
	if !contains(update.AllowedFrom, previous) {
		return previous, nil, ErrTransitionRejected
	}

	incident.Status = update.NewStatus
	if update.UpdatedAt.After(incident.UpdatedAt) {
		incident.UpdatedAt = update.UpdatedAt
	}
	updatedBy := update.UpdatedBy
	incident.UpdatedBy = &updatedBy
	incident.Comments = update.Comments
	if update.AssignedTo != nil {
		incident.AssignedTo = update.AssignedTo
	}
	incident = incident.Clone()
	r.incidents[update.IncidentID] = incident

	out := incident.Clone()
	return previous, &out, nil
}

func matchesFilter(incident domain.Incident, filter IncidentFilter) bool {
	if filter.ReporterUserID != nil && incident.ReporterUserID != *filter.ReporterUserID {
		return false
	}
	if filter.Region != nil && incident.Region != *filter.Region {
		return false
	}
	if len(filter.Statuses) > 0 && !contains(filter.Statuses, incident.Status) {
		return false
	}
	if len(filter.Categories) > 0 && !contains(filter.Categories, incident.Category) {
		return false
	}
	if len(filter.Severities) > 0 && !contains(filter.Severities, incident.Severity) {
		return false
	}
	return true
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
