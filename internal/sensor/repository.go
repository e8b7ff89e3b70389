package sensor

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository persists readings.
type Repository interface {
	// Insert stores r and sets its ID and RecordedAt.
	Insert(ctx context.Context, r *Reading) error
	List(ctx context.Context) ([]Reading, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// SQLiteRepository implements Repository on the sensor_readings table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLite-backed reading repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Insert stores one reading. recorded_at is filled by the database.
func (r *SQLiteRepository) Insert(ctx context.Context, reading *Reading) error {
	var recordedAt string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO sensor_readings (sensor_id, temperature, humidity, vibration)
		 VALUES (?, ?, ?, ?)
		 RETURNING id, recorded_at`,
		reading.SensorID, reading.Temperature, reading.Humidity, reading.Vibration,
	).Scan(&reading.ID, &recordedAt)
	if err != nil {
		return fmt.Errorf("inserting reading: %w", err)
	}
	reading.RecordedAt, err = parseTimestamp(recordedAt)
	if err != nil {
		return err
	}
	return nil
}

// List returns every stored reading in insertion order.
func (r *SQLiteRepository) List(ctx context.Context) ([]Reading, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, sensor_id, temperature, humidity, vibration, recorded_at
		 FROM sensor_readings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	readings := []Reading{}
	for rows.Next() {
		var rd Reading
		var recordedAt string
		if err := rows.Scan(&rd.ID, &rd.SensorID, &rd.Temperature, &rd.Humidity, &rd.Vibration, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		if rd.RecordedAt, err = parseTimestamp(recordedAt); err != nil {
			return nil, err
		}
		readings = append(readings, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}
	return readings, nil
}

// DeleteAll removes every reading and returns how many were deleted.
func (r *SQLiteRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sensor_readings")
	if err != nil {
		return 0, fmt.Errorf("deleting readings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		// CURRENT_TIMESTAMP format, for rows written by other tools.
		t, err = time.Parse(time.DateTime, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing reading timestamp %q: %w", s, err)
		}
	}
	return t.UTC(), nil
}
