// Package publish submits articles to the backend and tracks the resulting
// publish job until it finishes.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/hugopub/internal/apperr"
	"github.com/starford/hugopub/internal/document"
	"github.com/starford/hugopub/internal/models"
)

// DefaultInterval is the delay between status checks.
const DefaultInterval = time.Second

// JobAPI is the part of the backend the controller needs.
type JobAPI interface {
	Publish(ctx context.Context, req models.PublishRequest) (string, error)
	JobStatus(ctx context.Context, jobID string) (*models.PublishJob, error)
}

// RetryConfig bounds retries of failed status checks. The zero value
// disables retries: the first transport error ends polling.
type RetryConfig struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

func (c RetryConfig) backoff(attempt int) time.Duration {
	d := c.BackoffBase
	if d <= 0 {
		d = 500 * time.Millisecond
	}
	for i := 1; i < attempt; i++ {
		if c.BackoffMultiplier > 1 {
			d = time.Duration(float64(d) * c.BackoffMultiplier)
		}
		if c.MaxBackoff > 0 && d > c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	return d
}

// Options are per-publish choices.
type Options struct {
	TargetDir string
	Draft     bool
}

// JobFailedError is returned by Poll when the job ends in failed status.
type JobFailedError struct {
	JobID   string
	Message string
}

func (e *JobFailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("publish job %s failed", e.JobID)
	}
	return e.Message
}

// ProgressFunc receives every job snapshot seen while polling.
type ProgressFunc func(job models.PublishJob)

// Controller drives publish jobs.
type Controller struct {
	api      JobAPI
	interval time.Duration
	retry    RetryConfig
	logger   *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithInterval sets the status check interval.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithRetry enables bounded retries of status checks.
func WithRetry(rc RetryConfig) Option {
	return func(c *Controller) {
		c.retry = rc
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// NewController returns a controller polling every DefaultInterval.
func NewController(api JobAPI, opts ...Option) *Controller {
	c := &Controller{
		api:      api,
		interval: DefaultInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit validates doc and queues a publish job. No request is made for an
// empty body.
func (c *Controller) Submit(ctx context.Context, doc *document.Document, opts Options) (string, error) {
	if err := doc.Validate(); err != nil {
		return "", err
	}
	req := models.PublishRequest{
		Title:      doc.Title,
		Content:    doc.Body,
		Tags:       doc.Tags,
		Category:   doc.Category(),
		TargetDir:  opts.TargetDir,
		Draft:      opts.Draft,
		AutoFormat: !doc.Formatted,
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}

	id, err := c.api.Publish(ctx, req)
	if err != nil {
		return "", fmt.Errorf("publish: submit: %w", err)
	}
	c.logger.Info("publish job submitted", slog.String("job_id", id), slog.String("target_dir", opts.TargetDir))
	return id, nil
}

// Poll checks the job immediately and then again one interval after each
// response, until it reaches a terminal status or ctx is done. A failed job
// is returned along with a *JobFailedError.
func (c *Controller) Poll(ctx context.Context, jobID string, onProgress ProgressFunc) (*models.PublishJob, error) {
	failures := 0
	for {
		job, err := c.api.JobStatus(ctx, jobID)
		switch {
		case err == nil:
			failures = 0
			if !job.Status.Valid() {
				return nil, fmt.Errorf("publish: job %s: %w: unknown status %q", jobID, apperr.ErrTransport, job.Status)
			}
			if onProgress != nil {
				onProgress(*job)
			}
			switch job.Status {
			case models.JobCompleted:
				return job, nil
			case models.JobFailed:
				return job, &JobFailedError{JobID: jobID, Message: job.Error}
			}
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, apperr.ErrTransport) && failures < c.retry.MaxAttempts:
			failures++
			wait := c.retry.backoff(failures)
			c.logger.Warn("job status check failed, retrying",
				slog.String("job_id", jobID),
				slog.Int("attempt", failures),
				slog.Duration("backoff", wait),
				slog.String("error", err.Error()))
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		default:
			return nil, fmt.Errorf("publish: status %s: %w", jobID, err)
		}

		if err := sleep(ctx, c.interval); err != nil {
			return nil, err
		}
	}
}

// Publish submits doc, waits for the job and records the stored path on
// the document.
func (c *Controller) Publish(ctx context.Context, doc *document.Document, opts Options, onProgress ProgressFunc) (*models.JobResult, error) {
	id, err := c.Submit(ctx, doc, opts)
	if err != nil {
		return nil, err
	}
	job, err := c.Poll(ctx, id, onProgress)
	if err != nil {
		return nil, err
	}
	if job.Result == nil {
		return nil, fmt.Errorf("publish: job %s: %w: completed without result", id, apperr.ErrTransport)
	}
	doc.MarkPublished(job.Result)
	c.logger.Info("article published",
		slog.String("job_id", id),
		slog.String("file_path", job.Result.FilePath),
		slog.String("url", job.Result.URL))
	return job.Result, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
