package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lox/floatchat/internal/models"
)

func (s *Store) UpsertFloat(ctx context.Context, f models.FloatRecord) error {
	trajectory, err := json.Marshal(f.Trajectory)
	if err != nil {
		return fmt.Errorf("marshal trajectory: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO floats (float_id, name, ocean, status, latitude, longitude, last_profile_at, max_depth, surface_temp, surface_salinity, trajectory_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(float_id) DO UPDATE SET
			name = excluded.name,
			ocean = excluded.ocean,
			status = excluded.status,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			last_profile_at = excluded.last_profile_at,
			max_depth = excluded.max_depth,
			surface_temp = excluded.surface_temp,
			surface_salinity = excluded.surface_salinity,
			trajectory_json = excluded.trajectory_json
	`, f.ID, f.Name, f.Ocean, f.Status, f.Latitude, f.Longitude, f.LastProfileAt.UTC(), f.MaxDepth, f.SurfaceTemperature, f.SurfaceSalinity, string(trajectory))
	return err
}

const floatColumns = `float_id, name, ocean, status, latitude, longitude, last_profile_at, max_depth, surface_temp, surface_salinity, trajectory_json`

type scanner interface {
	Scan(dest ...any) error
}

func scanFloat(row scanner) (models.FloatRecord, error) {
	var f models.FloatRecord
	var trajectory string
	if err := row.Scan(&f.ID, &f.Name, &f.Ocean, &f.Status, &f.Latitude, &f.Longitude, &f.LastProfileAt, &f.MaxDepth, &f.SurfaceTemperature, &f.SurfaceSalinity, &trajectory); err != nil {
		return f, err
	}
	if trajectory != "" && trajectory != "null" {
		if err := json.Unmarshal([]byte(trajectory), &f.Trajectory); err != nil {
			return f, fmt.Errorf("unmarshal trajectory for %s: %w", f.ID, err)
		}
	}
	return f, nil
}

// ListFloats returns every float ordered by most recent profile first.
func (s *Store) ListFloats(ctx context.Context) ([]models.FloatRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+floatColumns+` FROM floats ORDER BY last_profile_at DESC, float_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var floats []models.FloatRecord
	for rows.Next() {
		f, err := scanFloat(rows)
		if err != nil {
			return nil, err
		}
		floats = append(floats, f)
	}
	return floats, rows.Err()
}

func (s *Store) GetFloat(ctx context.Context, id string) (*models.FloatRecord, error) {
	f, err := scanFloat(s.db.QueryRowContext(ctx, `SELECT `+floatColumns+` FROM floats WHERE float_id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}
