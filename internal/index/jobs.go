package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/hugopub/internal/apperr"
	"github.com/starford/hugopub/internal/models"
)

// SaveJob inserts or updates a job snapshot.
func (db *DB) SaveJob(job *models.PublishJob) error {
	var filePath, url string
	if job.Result != nil {
		filePath, url = job.Result.FilePath, job.Result.URL
	}
	_, err := db.conn.Exec(`
		INSERT INTO jobs (id, status, progress, message, file_path, url, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status     = excluded.status,
			progress   = excluded.progress,
			message    = excluded.message,
			file_path  = excluded.file_path,
			url        = excluded.url,
			error      = excluded.error,
			updated_at = excluded.updated_at
	`, job.ID, string(job.Status), job.Progress, job.Message, filePath, url, job.Error, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: save job %s: %w", job.ID, err)
	}
	return nil
}

// GetJob loads a job snapshot.
func (db *DB) GetJob(id string) (*models.PublishJob, error) {
	var (
		job           models.PublishJob
		status        string
		filePath, url string
	)
	err := db.conn.QueryRow(`
		SELECT id, status, progress, message, file_path, url, error, created_at, updated_at
		FROM jobs WHERE id = ?
	`, id).Scan(&job.ID, &status, &job.Progress, &job.Message, &filePath, &url, &job.Error, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: job %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get job: %w", err)
	}
	job.Status = models.JobStatus(status)
	if filePath != "" || url != "" {
		job.Result = &models.JobResult{FilePath: filePath, URL: url}
	}
	return &job, nil
}

// PruneJobs deletes finished jobs last updated before the cutoff.
func (db *DB) PruneJobs(before time.Time) (int64, error) {
	res, err := db.conn.Exec(`DELETE FROM jobs WHERE status IN (?, ?) AND updated_at < ?`,
		string(models.JobCompleted), string(models.JobFailed), before)
	if err != nil {
		return 0, fmt.Errorf("index: prune jobs: %w", err)
	}
	return res.RowsAffected()
}
