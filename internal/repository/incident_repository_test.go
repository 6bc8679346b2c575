package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cityreport/incident-service/internal/config"
	"github.com/cityreport/incident-service/internal/domain"
	"github.com/cityreport/incident-service/internal/persistence"
	"github.com/cityreport/incident-service/internal/repository"
)

func newSQLiteRepository(t *testing.T) repository.IncidentRepository {
	t.Helper()
	cfg := config.DatabaseConfig{Driver: config.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "incidents.db")}
	require.NoError(t, persistence.RunMigrations(cfg, zap.NewNop()))
	db, err := persistence.NewSQLite(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return repository.NewSQLiteIncidentRepository(db.DB)
}

// newPostgresRepository runs against the database named by POSTGRES_TEST_DSN
// and skips when it is unset. The incidents table is emptied before each use.
func newPostgresRepository(t *testing.T) repository.IncidentRepository {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()
	cfg := config.DatabaseConfig{Driver: config.DriverPostgres, DSN: dsn, MaxConns: 25}
	require.NoError(t, persistence.RunMigrations(cfg, zap.NewNop()))
	pg, err := persistence.NewPostgres(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pg.Close)
	_, err = pg.PoolHandle().Exec(ctx, "TRUNCATE TABLE incidents")
	require.NoError(t, err)
	return repository.NewIncidentRepository(pg.PoolHandle())
}

func forEachRepository(t *testing.T, fn func(t *testing.T, repo repository.IncidentRepository)) {
	t.Run("memory", func(t *testing.T) { fn(t, repository.NewMemoryIncidentRepository()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteRepository(t)) })
	t.Run("postgres", func(t *testing.T) { fn(t, newPostgresRepository(t)) })
}

var base = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func seed(id, reporter, region string, severity domain.Severity, status domain.Status, created time.Time) *domain.Incident {
	return &domain.Incident{
		ID:             id,
		ReporterUserID: reporter,
		Title:          "incident " + id,
		Description:    "details",
		Category:       domain.CategoryInfrastructure,
		Severity:       severity,
		Status:         status,
		Region:         region,
		District:       "Central",
		ImageURLs:      []string{"https://img.test/" + id + ".jpg"},
		Attachments:    []domain.Attachment{{Key: "temp-uploads/" + id + ".png", ContentType: "image/png"}},
		CreatedAt:      created,
		UpdatedAt:      created,
	}
}

func TestIncidentRepositoryCreateAndGet(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo repository.IncidentRepository) {
		ctx := context.Background()
		in := seed("a", "u1", "North", domain.SeverityHigh, domain.StatusPending, base)
		require.NoError(t, repo.Create(ctx, in))

		got, err := repo.GetByID(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.ReporterUserID)
		assert.Equal(t, domain.StatusPending, got.Status)
		assert.Equal(t, []string{"https://img.test/a.jpg"}, got.ImageURLs)
		assert.Equal(t, in.Attachments, got.Attachments)
		assert.True(t, base.Equal(got.CreatedAt))
		assert.Nil(t, got.UpdatedBy)

		_, err = repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestIncidentRepositoryListFilters(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo repository.IncidentRepository) {
		ctx := context.Background()
		require.NoError(t, repo.Create(ctx, seed("a", "u1", "North", domain.SeverityHigh, domain.StatusPending, base)))
		require.NoError(t, repo.Create(ctx, seed("b", "u2", "North", domain.SeverityLow, domain.StatusInProgress, base.Add(time.Hour))))
		require.NoError(t, repo.Create(ctx, seed("c", "u1", "South", domain.SeverityMedium, domain.StatusPending, base.Add(2*time.Hour))))

		all, err := repo.List(ctx, repository.IncidentFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"c", "b", "a"}, ids(all))

		reporter := "u1"
		mine, err := repo.List(ctx, repository.IncidentFilter{ReporterUserID: &reporter})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "a"}, ids(mine))

		region := "North"
		north, err := repo.List(ctx, repository.IncidentFilter{Region: &region, Statuses: []domain.Status{domain.StatusPending}})
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, ids(north))

		sev, err := repo.List(ctx, repository.IncidentFilter{Severities: []domain.Severity{domain.SeverityLow, domain.SeverityMedium}})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b"}, ids(sev))

		none, err := repo.List(ctx, repository.IncidentFilter{Categories: []domain.Category{domain.CategorySafety}})
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestIncidentRepositoryUpdateStatus(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo repository.IncidentRepository) {
		ctx := context.Background()
		require.NoError(t, repo.Create(ctx, seed("a", "u1", "North", domain.SeverityHigh, domain.StatusPending, base)))

		comments := "crew dispatched"
		crew := "crew-7"
		previous, updated, err := repo.UpdateStatus(ctx, repository.StatusUpdate{
			IncidentID:  "a",
			NewStatus:   domain.StatusInProgress,
			AllowedFrom: []domain.Status{domain.StatusPending, domain.StatusReported},
			UpdatedAt:   base.Add(time.Minute),
			UpdatedBy:   "official-1",
			Comments:    &comments,
			AssignedTo:  &crew,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, previous)
		assert.Equal(t, domain.StatusInProgress, updated.Status)
		require.NotNil(t, updated.UpdatedBy)
		assert.Equal(t, "official-1", *updated.UpdatedBy)
		assert.Equal(t, "crew dispatched", *updated.Comments)
		assert.Equal(t, "crew-7", *updated.AssignedTo)

		// updatedAt never moves backwards and assignedTo is kept when omitted.
		previous, updated, err = repo.UpdateStatus(ctx, repository.StatusUpdate{
			IncidentID:  "a",
			NewStatus:   domain.StatusResolved,
			AllowedFrom: []domain.Status{domain.StatusInProgress},
			UpdatedAt:   base,
			UpdatedBy:   "official-2",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusInProgress, previous)
		assert.True(t, updated.UpdatedAt.Equal(base.Add(time.Minute)))
		assert.Equal(t, "crew-7", *updated.AssignedTo)
		assert.Nil(t, updated.Comments)

		current, updated, err := repo.UpdateStatus(ctx, repository.StatusUpdate{
			IncidentID:  "a",
			NewStatus:   domain.StatusClosed,
			AllowedFrom: []domain.Status{domain.StatusPending},
			UpdatedAt:   base.Add(time.Hour),
			UpdatedBy:   "official-3",
		})
		assert.ErrorIs(t, err, repository.ErrTransitionRejected)
		assert.Equal(t, domain.StatusResolved, current)
		assert.Nil(t, updated)

		stored, err := repo.GetByID(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusResolved, stored.Status)
		assert.Equal(t, "official-2", *stored.UpdatedBy)

		_, _, err = repo.UpdateStatus(ctx, repository.StatusUpdate{IncidentID: "missing", NewStatus: domain.StatusClosed})
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestIncidentRepositoryConcurrentTransitionsApplyOnce(t *testing.T) {
	forEachRepository(t, func(t *testing.T, repo repository.IncidentRepository) {
		ctx := context.Background()
		require.NoError(t, repo.Create(ctx, seed("a", "u1", "North", domain.SeverityHigh, domain.StatusPending, base)))

		var (
			wg                  sync.WaitGroup
			mu                  sync.Mutex
			succeeded, rejected int
			unexpected          []error
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, _, err := repo.UpdateStatus(ctx, repository.StatusUpdate{
					IncidentID:  "a",
					NewStatus:   domain.StatusClosed,
					AllowedFrom: []domain.Status{domain.StatusPending},
					UpdatedAt:   base.Add(time.Duration(i) * time.Second),
					UpdatedBy:   fmt.Sprintf("official-%d", i),
				})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					succeeded++
				case errors.Is(err, repository.ErrTransitionRejected):
					rejected++
				default:
					unexpected = append(unexpected, err)
				}
			}(i)
		}
		wg.Wait()
		assert.Empty(t, unexpected)
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 19, rejected)

		stored, err := repo.GetByID(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusClosed, stored.Status)
	})
}

func ids(incidents []domain.Incident) []string {
	out := make([]string, len(incidents))
	for i, incident := range incidents {
		out[i] = incident.ID
	}
	return out
}
