package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anime-shed/blur-effect-go/internal/logger"
	"github.com/anime-shed/blur-effect-go/pkg/models"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteAnalysisRepository implements AnalysisRepository on SQLite
type SQLiteAnalysisRepository struct {
	db *sql.DB
}

// NewSQLiteAnalysisRepository opens (creating if needed) the database at
// path and migrates it to the latest schema. ":memory:" gives a private
// in-memory database.
func NewSQLiteAnalysisRepository(path string) (*SQLiteAnalysisRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serialises writers; a single connection also keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	repo := &SQLiteAnalysisRepository{db: db}
	if err := repo.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// MigrateUp runs all pending migrations. Being at the latest version is not an error.
func (r *SQLiteAnalysisRepository) MigrateUp() error {
	m, err := r.newMigrate()
	if err != nil {
		return err
	}
	// m is not closed: that would close the shared *sql.DB

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the current schema version, 0 when none is applied
func (r *SQLiteAnalysisRepository) MigrateVersion() (uint, bool, error) {
	m, err := r.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (r *SQLiteAnalysisRepository) newMigrate() (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{entry: logger.WithField("component", "migrate")}
	return m, nil
}

// SaveAnalysisResult stores result, assigning a new ID when it has none
func (r *SQLiteAnalysisRepository) SaveAnalysisResult(ctx context.Context, result *models.AnalysisResult) error {
	if result == nil {
		return fmt.Errorf("nil analysis result")
	}
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now()
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode analysis result: %w", err)
	}

	var blurScore sql.NullFloat64
	if result.Metrics.BlurScore != nil {
		blurScore = sql.NullFloat64{Float64: *result.Metrics.BlurScore, Valid: true}
	}
	undefined := 0
	for _, v := range result.Metrics.PerAxis {
		if v == nil {
			undefined++
		}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO analyses (id, image_url, created_at, blur_score, blurry, is_valid, aggregate, window_size, undefined_axes, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID,
		result.ImageURL,
		result.Timestamp.UnixNano(),
		blurScore,
		result.Quality.Blurry,
		result.Quality.IsValid,
		result.Metrics.Aggregate,
		result.Metrics.WindowSize,
		undefined,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to save analysis %s: %w", result.ID, err)
	}
	return nil
}

// GetAnalysisResult retrieves a stored analysis result
func (r *SQLiteAnalysisRepository) GetAnalysisResult(ctx context.Context, id string) (*models.AnalysisResult, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM analyses WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrAnalysisNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis %s: %w", id, err)
	}
	return decodeResult(payload)
}

// GetAnalysisHistory retrieves analysis history for imageURL, newest first
func (r *SQLiteAnalysisRepository) GetAnalysisHistory(ctx context.Context, imageURL string) ([]*models.AnalysisResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT payload FROM analyses
		WHERE image_url = ?
		ORDER BY created_at DESC, rowid DESC`, imageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	results := make([]*models.AnalysisResult, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		result, err := decodeResult(payload)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// Close closes the database
func (r *SQLiteAnalysisRepository) Close() error {
	return r.db.Close()
}

func decodeResult(payload string) (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to decode analysis result: %w", err)
	}
	return &result, nil
}

// migrateLogger implements migrate.Logger on logrus
type migrateLogger struct {
	entry *logrus.Entry
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.entry.Debugf(format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.DebugLevel)
}
