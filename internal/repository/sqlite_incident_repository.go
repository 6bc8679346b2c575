package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cityreport/incident-service/internal/domain"
)

// sqliteIncidentRepository stores incidents in a single SQLite file. Image
// URLs and attachments are JSON text, timestamps are Unix nanoseconds.
type sqliteIncidentRepository struct {
	db *sql.DB
}

// NewSQLiteIncidentRepository instantiates the SQLite repository.
func NewSQLiteIncidentRepository(db *sql.DB) IncidentRepository {
	return &sqliteIncidentRepository{db: db}
}

const sqliteIncidentColumns = `incident_id, reporter_user_id, reporter_email, title, description, category, severity,
        status, region, district, location, image_urls, attachments, created_at, updated_at,
        updated_by, comments, assigned_to`

func (r *sqliteIncidentRepository) Create(ctx context.Context, incident *domain.Incident) error {
	imageURLs, err := json.Marshal(nonNilStrings(incident.ImageURLs))
	if err != nil {
		return fmt.Errorf("encode image urls: %w", err)
	}
	attachments, err := encodeAttachments(incident.Attachments)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
        INSERT INTO incidents (`+sqliteIncidentColumns+`)
        VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		incident.ID,
		incident.ReporterUserID,
		incident.ReporterEmail,
		incident.Title,
		incident.Description,
		string(incident.Category),
		string(incident.Severity),
		string(incident.Status),
		incident.Region,
		incident.District,
		incident.Location,
		string(imageURLs),
		string(attachments),
		incident.CreatedAt.UnixNano(),
		incident.UpdatedAt.UnixNano(),
		incident.UpdatedBy,
		incident.Comments,
		incident.AssignedTo,
	)
	return err
}

func (r *sqliteIncidentRepository) GetByID(ctx context.Context, id string) (*domain.Incident, error) {
	return r.get(ctx, r.db, id)
}

type sqlQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *sqliteIncidentRepository) get(ctx context.Context, q sqlQuerier, id string) (*domain.Incident, error) {
	row := q.QueryRowContext(ctx, `SELECT `+sqliteIncidentColumns+` FROM incidents WHERE incident_id=?`, id)
	incident, err := scanSQLiteIncident(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return incident, err
}

func (r *sqliteIncidentRepository) List(ctx context.Context, filter IncidentFilter) ([]domain.Incident, error) {
	where, args := buildIncidentWhere(filter, func(int) string { return "?" })
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sqliteIncidentColumns+` FROM incidents WHERE `+where+` ORDER BY created_at DESC, incident_id`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Incident
	for rows.Next() {
		incident, err := scanSQLiteIncident(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *incident)
	}
	return result, rows.Err()
}

// UpdateStatus runs the check and the write inside one transaction. The
// pool is limited to a single connection, so transactions never interleave.
func (r *sqliteIncidentRepository) UpdateStatus(ctx context.Context, update StatusUpdate) (domain.Status, *domain.Incident, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	var (
		current   string
		updatedAt int64
	)
	err = tx.QueryRowContext(ctx, `SELECT status, updated_at FROM incidents WHERE incident_id=?`, update.IncidentID).
		Scan(&current, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, ErrNotFound
	}
	if err != nil {
		return "", nil, err
	}
	previous := domain.Status(current)
	if !contains(update.AllowedFrom, previous) {
		return previous, nil, ErrTransitionRejected
	}

	newUpdatedAt := update.UpdatedAt.UnixNano()
	if updatedAt > newUpdatedAt {
		newUpdatedAt = updatedAt
	}
	_, err = tx.ExecContext(ctx, `
        UPDATE incidents SET status=?, updated_at=?, updated_by=?, comments=?,
            assigned_to=COALESCE(?, assigned_to)
        WHERE incident_id=?`,
		string(update.NewStatus),
		newUpdatedAt,
		update.UpdatedBy,
		update.Comments,
		update.AssignedTo,
		update.IncidentID,
	)
	if err != nil {
		return "", nil, err
	}

	incident, err := r.get(ctx, tx, update.IncidentID)
	if err != nil {
		return "", nil, err
	}
	if err := tx.Commit(); err != nil {
		return "", nil, err
	}
	return previous, incident, nil
}

func scanSQLiteIncident(row rowScanner) (*domain.Incident, error) {
	var (
		incident                  domain.Incident
		category, severity        string
		status                    string
		imageURLs, attachments    string
		createdAt, updatedAt      int64
		updatedBy, comments, assn sql.NullString
	)
	if err := row.Scan(
		&incident.ID,
		&incident.ReporterUserID,
		&incident.ReporterEmail,
		&incident.Title,
		&incident.Description,
		&category,
		&severity,
		&status,
		&incident.Region,
		&incident.District,
		&incident.Location,
		&imageURLs,
		&attachments,
		&createdAt,
		&updatedAt,
		&updatedBy,
		&comments,
		&assn,
	); err != nil {
		return nil, err
	}
	incident.Category = domain.Category(category)
	incident.Severity = domain.Severity(severity)
	incident.Status = domain.Status(status)
	incident.CreatedAt = time.Unix(0, createdAt).UTC()
	incident.UpdatedAt = time.Unix(0, updatedAt).UTC()
	incident.UpdatedBy = nullableString(updatedBy)
	incident.Comments = nullableString(comments)
	incident.AssignedTo = nullableString(assn)

	if strings.TrimSpace(imageURLs) != "" {
		if err := json.Unmarshal([]byte(imageURLs), &incident.ImageURLs); err != nil {
			return nil, fmt.Errorf("decode image urls: %w", err)
		}
	}
	decoded, err := decodeAttachments([]byte(attachments))
	if err != nil {
		return nil, err
	}
	incident.Attachments = decoded
	return &incident, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
