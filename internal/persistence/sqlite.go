package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/cityreport/incident-service/internal/config"
)

// SQLite wraps a database/sql handle on a single-file SQLite database.
type SQLite struct {
	DB *sql.DB
}

// NewSQLite opens the database file. The handle is limited to one
// connection so writers never contend for the file lock.
func NewSQLite(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*SQLite, error) {
	if cfg.SQLitePath == "" {
		return nil, errors.New("SQLITE_PATH not provided")
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.SQLitePath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("opened sqlite database", zap.String("path", cfg.SQLitePath))
	return &SQLite{DB: db}, nil
}

// Close releases the handle.
func (s *SQLite) Close() {
	if s != nil && s.DB != nil {
		_ = s.DB.Close()
	}
}

// Ping verifies the database is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("sqlite database not configured")
	}
	return s.DB.PingContext(ctx)
}
