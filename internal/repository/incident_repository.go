package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cityreport/incident-service/internal/domain"
)

var (
	// ErrNotFound is returned when no incident has the requested id.
	ErrNotFound = errors.New("incident not found")
	// ErrTransitionRejected is returned when the stored status is not one of
	// StatusUpdate.AllowedFrom. The record is left untouched.
	ErrTransitionRejected = errors.New("status transition rejected")
)

// IncidentFilter narrows a query. Nil and empty fields do not filter.
type IncidentFilter struct {
	ReporterUserID *string
	Region         *string
	Statuses       []domain.Status
	Categories     []domain.Category
	Severities     []domain.Severity
}

// StatusUpdate is a conditional in-place status change.
type StatusUpdate struct {
	IncidentID  string
	NewStatus   domain.Status
	AllowedFrom []domain.Status
	UpdatedAt   time.Time
	UpdatedBy   string
	Comments    *string
	AssignedTo  *string
}

// IncidentRepository encapsulates incident persistence.
type IncidentRepository interface {
	Create(ctx context.Context, incident *domain.Incident) error
	GetByID(ctx context.Context, id string) (*domain.Incident, error)
	List(ctx context.Context, filter IncidentFilter) ([]domain.Incident, error)
	// UpdateStatus applies update atomically and returns the status the
	// incident held before it. On ErrTransitionRejected the returned status
	// is the current one.
	UpdateStatus(ctx context.Context, update StatusUpdate) (domain.Status, *domain.Incident, error)
}

type postgresIncidentRepository struct {
	pool *pgxpool.Pool
}

// NewIncidentRepository instantiates the PostgreSQL repository.
func NewIncidentRepository(pool *pgxpool.Pool) IncidentRepository {
	return &postgresIncidentRepository{pool: pool}
}

const incidentColumns = `incident_id, reporter_user_id, reporter_email, title, description, category, severity,
               status, region, district, location, image_urls, attachments, created_at, updated_at,
               updated_by, comments, assigned_to`

func (r *postgresIncidentRepository) Create(ctx context.Context, incident *domain.Incident) error {
	attachments, err := encodeAttachments(incident.Attachments)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO incidents (incident_id, reporter_user_id, reporter_email, title, description, category, severity,
            status, region, district, location, image_urls, attachments, created_at, updated_at,
            updated_by, comments, assigned_to)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`
	_, err = r.pool.Exec(ctx, query,
		incident.ID,
		incident.ReporterUserID,
		incident.ReporterEmail,
		incident.Title,
		incident.Description,
		incident.Category,
		incident.Severity,
		incident.Status,
		incident.Region,
		incident.District,
		incident.Location,
		nonNilStrings(incident.ImageURLs),
		attachments,
		incident.CreatedAt,
		incident.UpdatedAt,
		incident.UpdatedBy,
		incident.Comments,
		incident.AssignedTo,
	)
	return err
}

func (r *postgresIncidentRepository) GetByID(ctx context.Context, id string) (*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE incident_id=$1`
	incident, err := scanIncident(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return incident, err
}

func (r *postgresIncidentRepository) List(ctx context.Context, filter IncidentFilter) ([]domain.Incident, error) {
	where, args := buildIncidentWhere(filter, func(n int) string { return fmt.Sprintf("$%d", n) })
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE ` + where + ` ORDER BY created_at DESC, incident_id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Incident
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *incident)
	}
	return result, rows.Err()
}

// UpdateStatus locks the row, checks the stored status and writes in one
// statement, so concurrent transitions serialize on the row lock.
func (r *postgresIncidentRepository) UpdateStatus(ctx context.Context, update StatusUpdate) (domain.Status, *domain.Incident, error) {
	allowed := make([]string, len(update.AllowedFrom))
	for i, s := range update.AllowedFrom {
		allowed[i] = string(s)
	}
	const query = `
        WITH current AS (
            SELECT incident_id, status FROM incidents WHERE incident_id=$1 FOR UPDATE
        )
        UPDATE incidents i SET
            status=$2,
            updated_at=GREATEST(i.updated_at, $3),
            updated_by=$4,
            comments=$5,
            assigned_to=COALESCE($6, i.assigned_to)
        FROM current
        WHERE i.incident_id=current.incident_id AND current.status = ANY($7)
        RETURNING current.status, i.incident_id, i.reporter_user_id, i.reporter_email, i.title, i.description,
            i.category, i.severity, i.status, i.region, i.district, i.location, i.image_urls, i.attachments,
            i.created_at, i.updated_at, i.updated_by, i.comments, i.assigned_to`

	var previous domain.Status
	row := r.pool.QueryRow(ctx, query,
		update.IncidentID,
		update.NewStatus,
		update.UpdatedAt,
		update.UpdatedBy,
		update.Comments,
		update.AssignedTo,
		allowed,
	)
	incident, err := scanIncidentWithPrefix(row, &previous)
	if err == nil {
		return previous, incident, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", nil, err
	}

	var current domain.Status
	err = r.pool.QueryRow(ctx, `SELECT status FROM incidents WHERE incident_id=$1`, update.IncidentID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, ErrNotFound
	}
	if err != nil {
		return "", nil, err
	}
	return current, nil, ErrTransitionRejected
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(row rowScanner) (*domain.Incident, error) {
	return scanIncidentWithPrefix(row)
}

func scanIncidentWithPrefix(row rowScanner, prefix ...any) (*domain.Incident, error) {
	var (
		incident    domain.Incident
		attachments []byte
	)
	dest := append(prefix,
		&incident.ID,
		&incident.ReporterUserID,
		&incident.ReporterEmail,
		&incident.Title,
		&incident.Description,
		&incident.Category,
		&incident.Severity,
		&incident.Status,
		&incident.Region,
		&incident.District,
		&incident.Location,
		&incident.ImageURLs,
		&attachments,
		&incident.CreatedAt,
		&incident.UpdatedAt,
		&incident.UpdatedBy,
		&incident.Comments,
		&incident.AssignedTo,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	decoded, err := decodeAttachments(attachments)
	if err != nil {
		return nil, err
	}
	incident.Attachments = decoded
	return &incident, nil
}

// buildIncidentWhere renders filter as a WHERE body; placeholder formats the
// n-th bind parameter for the target dialect.
func buildIncidentWhere(filter IncidentFilter, placeholder func(n int) string) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ReporterUserID != nil {
		args = append(args, *filter.ReporterUserID)
		clauses = append(clauses, "reporter_user_id="+placeholder(len(args)))
	}
	if filter.Region != nil {
		args = append(args, *filter.Region)
		clauses = append(clauses, "region="+placeholder(len(args)))
	}
	in := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		placeholders := make([]string, len(values))
		for i, v := range values {
			args = append(args, v)
			placeholders[i] = placeholder(len(args))
		}
		clauses = append(clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ",")))
	}
	in("status", toStrings(filter.Statuses))
	in("category", toStrings(filter.Categories))
	in("severity", toStrings(filter.Severities))

	return strings.Join(clauses, " AND "), args
}

func toStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func encodeAttachments(attachments []domain.Attachment) ([]byte, error) {
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	data, err := json.Marshal(attachments)
	if err != nil {
		return nil, fmt.Errorf("encode attachments: %w", err)
	}
	return data, nil
}

func decodeAttachments(data []byte) ([]domain.Attachment, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var attachments []domain.Attachment
	if err := json.Unmarshal(data, &attachments); err != nil {
		return nil, fmt.Errorf("decode attachments: %w", err)
	}
	if len(attachments) == 0 {
		return nil, nil
	}
	return attachments, nil
}
