package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityreport/incident-service/internal/domain"
	apperrors "github.com/cityreport/incident-service/pkg/util/errorutil"
)

func TestAggregateStatisticsForAdmin(t *testing.T) {
	env := newTestIncidentService(t)
	seedIncidents(t, env)
	ctx := context.Background()
	unplaced := newIncident("unplaced", citizen.ID, "", domain.SeverityLow, testNow)
	unplaced.District = ""
	unplaced.Category = domain.CategorySafety
	require.NoError(t, env.repo.Create(ctx, unplaced))

	stats, err := env.svc.GetAggregateStatistics(ctx, admin)
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 5, stats.ByStatus[domain.StatusPending])
	assert.Equal(t, 0, stats.ByStatus[domain.StatusClosed])
	assert.Contains(t, stats.ByStatus, domain.StatusCancelled)
	assert.Equal(t, 4, stats.ByCategory[domain.CategoryInfrastructure])
	assert.Equal(t, 1, stats.ByCategory[domain.CategorySafety])
	assert.Equal(t, 2, stats.BySeverity[domain.SeverityHigh])
	assert.Equal(t, 2, stats.BySeverity[domain.SeverityLow])

	require.Len(t, stats.Districts, 3)
	assert.Equal(t, "North", stats.Districts[0].Region)
	assert.Equal(t, 2, stats.Districts[0].Total)
	assert.Equal(t, "Unknown", stats.Districts[2].Region)
	assert.Equal(t, "Unknown", stats.Districts[2].District)
}

func TestAggregateStatisticsScopedToOfficialRegion(t *testing.T) {
	env := newTestIncidentService(t)
	seedIncidents(t, env)

	stats, err := env.svc.GetAggregateStatistics(context.Background(), official)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	require.Len(t, stats.Districts, 1)
	assert.Equal(t, "North", stats.Districts[0].Region)
}

func TestAggregateStatisticsForbiddenForCitizen(t *testing.T) {
	env := newTestIncidentService(t)

	_, err := env.svc.GetAggregateStatistics(context.Background(), citizen)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestExportDashboardIsUnscoped(t *testing.T) {
	env := newTestIncidentService(t)
	seedIncidents(t, env)

	export, err := env.svc.ExportDashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testNow, export.GeneratedAt)
	assert.Len(t, export.Incidents, 4)
	assert.Equal(t, 4, export.Statistics.Total)
}
