package dto

import (
	"time"

	"github.com/cityreport/incident-service/internal/domain"
)

// StatisticsResponse is returned by GET /dashboard/statistics.
type StatisticsResponse struct {
	Total      int                     `json:"total"`
	ByStatus   map[domain.Status]int   `json:"byStatus"`
	ByCategory map[domain.Category]int `json:"byCategory"`
	BySeverity map[domain.Severity]int `json:"bySeverity"`
	Districts  []DistrictStatsRecord   `json:"districts"`
}

// DistrictStatsRecord is one region/district row, also the export file format.
type DistrictStatsRecord struct {
	Region     string                  `json:"region"`
	District   string                  `json:"district"`
	Total      int                     `json:"total"`
	ByStatus   map[domain.Status]int   `json:"byStatus"`
	Categories map[domain.Category]int `json:"categories"`
}

// IncidentExport is the incidents file written by the dashboard export.
type IncidentExport struct {
	GeneratedAt time.Time          `json:"generatedAt"`
	Count       int                `json:"count"`
	Incidents   []IncidentResponse `json:"incidents"`
}

// FromStatistics maps aggregate statistics to the response shape.
func FromStatistics(stats *domain.Statistics) StatisticsResponse {
	return StatisticsResponse{
		Total:      stats.Total,
		ByStatus:   stats.ByStatus,
		ByCategory: stats.ByCategory,
		BySeverity: stats.BySeverity,
		Districts:  FromDistricts(stats.Districts),
	}
}

// FromDistricts maps district rows, never returning nil.
func FromDistricts(districts []domain.DistrictStatistics) []DistrictStatsRecord {
	out := make([]DistrictStatsRecord, 0, len(districts))
	for _, d := range districts {
		out = append(out, DistrictStatsRecord{
			Region:     d.Region,
			District:   d.District,
			Total:      d.Total,
			ByStatus:   d.ByStatus,
			Categories: d.ByCategory,
		})
	}
	return out
}
