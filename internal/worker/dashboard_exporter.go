package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/cityreport/incident-service/internal/api/dto"
	"github.com/cityreport/incident-service/internal/service"
	"github.com/cityreport/incident-service/internal/storage"
)

// DashboardSource produces the unscoped snapshot to export.
type DashboardSource interface {
	ExportDashboard(ctx context.Context) (*service.DashboardExport, error)
}

// DashboardExporter periodically writes incident and district statistics
// files to object storage for BI tooling.
type DashboardExporter struct {
	source   DashboardSource
	writer   storage.ObjectWriter
	logger   *zap.Logger
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
}

// NewDashboardExporter validates schedule and builds the exporter.
func NewDashboardExporter(source DashboardSource, writer storage.ObjectWriter, logger *zap.Logger, schedule string, timeout time.Duration) (*DashboardExporter, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid dashboard export schedule %q: %w", schedule, err)
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &DashboardExporter{
		source:   source,
		writer:   writer,
		logger:   logger,
		schedule: schedule,
		timeout:  timeout,
	}, nil
}

// Start schedules the export. Stop must be called on shutdown.
func (e *DashboardExporter) Start(ctx context.Context) error {
	e.cron = cron.New(cron.WithLocation(time.UTC))
	_, err := e.cron.AddFunc(e.schedule, func() {
		if err := e.RunOnce(ctx); err != nil {
			e.logger.Error("dashboard export failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule dashboard export: %w", err)
	}
	e.cron.Start()
	e.logger.Info("dashboard export scheduled", zap.String("schedule", e.schedule))
	return nil
}

// Stop halts scheduling and waits for a running export to finish.
func (e *DashboardExporter) Stop() {
	if e.cron == nil {
		return
	}
	<-e.cron.Stop().Done()
}

// RunOnce writes incidents/incidents_<date>.json and
// stats/district_stats_<date>.json.
func (e *DashboardExporter) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	export, err := e.source.ExportDashboard(ctx)
	if err != nil {
		return fmt.Errorf("load dashboard snapshot: %w", err)
	}
	date := export.GeneratedAt.UTC().Format("2006-01-02")

	incidentsBody, err := json.Marshal(dto.IncidentExport{
		GeneratedAt: export.GeneratedAt,
		Count:       len(export.Incidents),
		Incidents:   dto.FromIncidents(export.Incidents),
	})
	if err != nil {
		return fmt.Errorf("marshal incidents export: %w", err)
	}
	statsBody, err := json.Marshal(dto.FromDistricts(export.Statistics.Districts))
	if err != nil {
		return fmt.Errorf("marshal district stats: %w", err)
	}

	incidentsKey := fmt.Sprintf("incidents/incidents_%s.json", date)
	if err := e.writer.PutObject(ctx, incidentsKey, "application/json", incidentsBody); err != nil {
		return err
	}
	statsKey := fmt.Sprintf("stats/district_stats_%s.json", date)
	if err := e.writer.PutObject(ctx, statsKey, "application/json", statsBody); err != nil {
		return err
	}

	e.logger.Info("dashboard export written",
		zap.Int("incidents", len(export.Incidents)),
		zap.Int("districts", len(export.Statistics.Districts)),
		zap.String("incidents_key", incidentsKey),
		zap.String("stats_key", statsKey))
	return nil
}
