package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// AttendanceRepository mirrors ledger rows into PostgreSQL. The CSV file stays
// the source of truth.
type AttendanceRepository struct {
	pool PgxPool
}

func NewAttendanceRepository(pool PgxPool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

func (r *AttendanceRepository) Upsert(ctx context.Context, record domain.AttendanceRecord) error {
	query := `
		INSERT INTO attendance (name, marked_at, last_attendance_at, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (name) DO UPDATE
		SET marked_at = EXCLUDED.marked_at,
		    last_attendance_at = EXCLUDED.last_attendance_at,
		    updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query, record.Name, record.Time, record.LastAttendanceTime)
	if err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}

	return nil
}

func (r *AttendanceRepository) Delete(ctx context.Context, name string) error {
	query := `DELETE FROM attendance WHERE name = $1`

	result, err := r.pool.Exec(ctx, query, name)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}

func (r *AttendanceRepository) List(ctx context.Context) ([]domain.AttendanceRecord, error) {
	query := `
		SELECT name, marked_at, last_attendance_at
		FROM attendance
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var records []domain.AttendanceRecord
	for rows.Next() {
		var rec domain.AttendanceRecord
		if err := rows.Scan(&rec.Name, &rec.Time, &rec.LastAttendanceTime); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		rec.Time = asLocal(rec.Time)
		rec.LastAttendanceTime = asLocal(rec.LastAttendanceTime)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}

	return records, nil
}

func (r *AttendanceRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// asLocal reinterprets a TIMESTAMP (no zone) column as local wall-clock time
func asLocal(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.Local)
}
