package store

import (
	"context"
	"time"

	"github.com/lox/floatchat/internal/models"
)

// SaveAnalysisJob inserts a job or replaces its mutable state.
func (s *Store) SaveAnalysisJob(ctx context.Context, j models.AnalysisJob) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_jobs (id, file_name, size_bytes, status, progress, insights_json, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			progress = excluded.progress,
			insights_json = excluded.insights_json,
			error = excluded.error,
			updated_at = excluded.updated_at
	`, j.ID, j.FileName, j.Size, j.Status, j.Progress, j.Insights, j.Error, j.CreatedAt.UTC(), j.UpdatedAt.UTC())
	return err
}

const analysisColumns = `id, file_name, size_bytes, status, progress, insights_json, error, created_at, updated_at`

func scanAnalysisJob(row scanner) (models.AnalysisJob, error) {
	var j models.AnalysisJob
	err := row.Scan(&j.ID, &j.FileName, &j.Size, &j.Status, &j.Progress, &j.Insights, &j.Error, &j.CreatedAt, &j.UpdatedAt)
	return j, err
}

func (s *Store) GetAnalysisJob(ctx context.Context, id string) (*models.AnalysisJob, error) {
	j, err := scanAnalysisJob(s.db.QueryRowContext(ctx, `SELECT `+analysisColumns+` FROM analysis_jobs WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &j, nil
}

// ListAnalysisJobs returns jobs in submission order.
func (s *Store) ListAnalysisJobs(ctx context.Context) ([]models.AnalysisJob, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+analysisColumns+` FROM analysis_jobs ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.AnalysisJob
	for rows.Next() {
		j, err := scanAnalysisJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// DeleteAnalysisJobsForFile removes every job created for fileName.
func (s *Store) DeleteAnalysisJobsForFile(ctx context.Context, fileName string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analysis_jobs WHERE file_name = ?`, fileName)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteFinishedAnalysisJobsBefore prunes completed or failed jobs last touched before cutoff.
func (s *Store) DeleteFinishedAnalysisJobsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM analysis_jobs
		WHERE status IN (?, ?) AND updated_at < ?
	`, models.AnalysisCompleted, models.AnalysisError, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
