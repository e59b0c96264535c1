package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"sensorcli/pkg/contracts/domain"
)

//go:embed schema.sql
var schemaSQL string

const (
	dirPermissions    = 0750
	connectionTimeout = 5 * time.Second
	connMaxIdleTime   = 30 * time.Minute
)

var (
	// ErrDuplicateRecord means a record with the same filename is stored.
	ErrDuplicateRecord = errors.New("record already stored")
	// ErrRecordNotFound means no record is stored under the filename.
	ErrRecordNotFound = errors.New("record not found")
)

// Config contains record store options.
type Config struct {
	// Path is the SQLite file. Its directory is created when missing.
	Path string
	// BusyTimeout bounds the wait for a database lock.
	BusyTimeout time.Duration
}

// Store persists metrics records in SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens (creating if needed) the record store and applies the schema.
func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One writer; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	s := &Store{
		db:     db,
		path:   cfg.Path,
		logger: logger.With(slog.String("component", "record_store")),
	}
	s.logger.Info("Record store opened", slog.String("path", cfg.Path))
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// HealthCheck verifies the database answers queries.
func (s *Store) HealthCheck(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// SaveRecord inserts rec. A filename that is already stored returns
// ErrDuplicateRecord.
func (s *Store) SaveRecord(ctx context.Context, rec domain.MetricsRecord) error {
	h := rec.HumidityCalibrated
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metrics_records (
			filename, record_date,
			deformation_average, temperature_difference, temperature_average,
			humidity_calibrated_0, humidity_calibrated_1, humidity_calibrated_2,
			humidity_calibrated_3, humidity_calibrated_4, humidity_sensors,
			humidity_measured
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Filename, rec.Date,
		rec.DeformationAverage, rec.TemperatureDifference, rec.TemperatureAverage,
		h[0], h[1], h[2], h[3], h[4], rec.HumiditySensors,
		measuredBits(rec.HumidityMeasured),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%s: %w", rec.Filename, ErrDuplicateRecord)
		}
		return fmt.Errorf("inserting record: %w", err)
	}

	s.logger.Debug("Record saved", slog.String("filename", rec.Filename))
	return nil
}

const selectColumns = `filename, record_date,
	deformation_average, temperature_difference, temperature_average,
	humidity_calibrated_0, humidity_calibrated_1, humidity_calibrated_2,
	humidity_calibrated_3, humidity_calibrated_4, humidity_sensors,
	humidity_measured`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (domain.MetricsRecord, error) {
	var (
		rec  domain.MetricsRecord
		bits int64
	)
	h := &rec.HumidityCalibrated
	err := row.Scan(&rec.Filename, &rec.Date,
		&rec.DeformationAverage, &rec.TemperatureDifference, &rec.TemperatureAverage,
		&h[0], &h[1], &h[2], &h[3], &h[4], &rec.HumiditySensors, &bits)
	rec.HumidityMeasured = measuredMask(bits)
	return rec, err
}

// measuredBits packs the measured humidity slots into a bit set, slot i at
// bit i.
func measuredBits(mask [domain.HumiditySensorCount]bool) int64 {
	var bits int64
	for i, m := range mask {
		if m {
			bits |= 1 << i
		}
	}
	return bits
}

func measuredMask(bits int64) [domain.HumiditySensorCount]bool {
	var mask [domain.HumiditySensorCount]bool
	for i := range mask {
		mask[i] = bits&(1<<i) != 0
	}
	return mask
}

// ListRecords returns every stored record in insertion order.
func (s *Store) ListRecords(ctx context.Context) ([]domain.MetricsRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+selectColumns+" FROM metrics_records ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []domain.MetricsRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

// GetRecord returns the record stored under filename.
func (s *Store) GetRecord(ctx context.Context, filename string) (domain.MetricsRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM metrics_records WHERE filename = ?", filename)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MetricsRecord{}, fmt.Errorf("%s: %w", filename, ErrRecordNotFound)
	}
	if err != nil {
		return domain.MetricsRecord{}, fmt.Errorf("querying record: %w", err)
	}
	return rec, nil
}

// DeleteRecord removes the record stored under filename.
func (s *Store) DeleteRecord(ctx context.Context, filename string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM metrics_records WHERE filename = ?", filename)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", filename, ErrRecordNotFound)
	}
	return nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM metrics_records").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}
