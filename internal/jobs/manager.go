// Package jobs runs publish jobs in the background. A job formats the body,
// picks a title, writes a Hugo article and commits it to the content store.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/starford/hugopub/internal/apperr"
	"github.com/starford/hugopub/internal/formatter"
	"github.com/starford/hugopub/internal/frontmatter"
	"github.com/starford/hugopub/internal/index"
	"github.com/starford/hugopub/internal/models"
)

// Stage progress values reported while a job runs.
const (
	ProgressQueued     = 0
	ProgressFormatting = 10
	ProgressTitle      = 40
	ProgressWriting    = 60
	ProgressCommitting = 90
	ProgressDone       = 100
)

// ErrQueueFull is returned by Submit when no worker can take the job.
var ErrQueueFull = errors.New("jobs: queue full")

// Writer records an article in the content store.
type Writer interface {
	Save(path string, content []byte, message string) (string, error)
}

// Config controls the manager.
type Config struct {
	Workers    int
	QueueSize  int
	DefaultDir string
	Dirs       []string
	PublicURL  string
	Location   *time.Location
	// Retention is how long finished jobs are kept; zero keeps them forever.
	Retention time.Duration
}

// Option customises a Manager.
type Option func(*Manager)

// WithNotifier registers fn to receive every job snapshot.
func WithNotifier(fn func(models.PublishJob)) Option {
	return func(m *Manager) { m.notify = fn }
}

// WithWrittenHook registers fn to run after an article is committed.
func WithWrittenHook(fn func(path string, content []byte)) Option {
	return func(m *Manager) { m.written = fn }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

type task struct {
	id  string
	req models.PublishRequest
}

// Manager owns the job queue and the workers draining it.
type Manager struct {
	writer    Writer
	store     index.JobStore
	formatter formatter.Formatter
	cfg       Config
	logger    *slog.Logger

	queue chan task

	mu   sync.RWMutex
	live map[string]models.PublishJob

	notify  func(models.PublishJob)
	written func(string, []byte)
	now     func() time.Time
}

// NewManager creates a Manager. Call Run to start the workers.
func NewManager(writer Writer, store index.JobStore, f formatter.Formatter, cfg Config, logger *slog.Logger, opts ...Option) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	m := &Manager{
		writer: writer,
		store:     store,
		formatter: f,
		cfg:       cfg,
		logger:    logger,
		queue:     make(chan task, cfg.QueueSize),
		live:      make(map[string]models.PublishJob),
		now:       time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Validate checks a publish request, filling the default target dir.
func (m *Manager) Validate(req *models.PublishRequest) error {
	if req.TargetDir == "" {
		req.TargetDir = m.cfg.DefaultDir
	}
	req.TargetDir = strings.Trim(req.TargetDir, "/")
	content := strings.TrimSpace(req.Content)

	dirs := make([]any, len(m.cfg.Dirs))
	for i, d := range m.cfg.Dirs {
		dirs[i] = d
	}
	err := validation.Errors{
		"content":    validation.Validate(content, validation.Required.Error("content is required")),
		"target_dir": validation.Validate(req.TargetDir, validation.Required, validation.In(dirs...).Error("unknown target directory")),
	}.Filter()
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	return nil
}

// Submit validates req and queues a job for it.
func (m *Manager) Submit(req models.PublishRequest) (*models.PublishJob, error) {
	if err := m.Validate(&req); err != nil {
		return nil, err
	}

	now := m.now()
	job := models.PublishJob{
		ID:        uuid.New().String(),
		Status:    models.JobQueued,
		Progress:  ProgressQueued,
		Message:   "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.record(job)
	select {
	case m.queue <- task{id: job.ID, req: req}:
	default:
		job.Status = models.JobFailed
		job.Message = "failed"
		job.Error = ErrQueueFull.Error()
		m.record(job)
		return nil, ErrQueueFull
	}
	m.logger.Info("job queued", slog.String("job_id", job.ID), slog.String("target_dir", req.TargetDir))
	return &job, nil
}

// Get returns the latest snapshot of a job.
func (m *Manager) Get(id string) (*models.PublishJob, error) {
	m.mu.RLock()
	job, ok := m.live[id]
	m.mu.RUnlock()
	if ok {
		return &job, nil
	}
	return m.store.GetJob(id)
}

// Run prunes old jobs and drains the queue until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	if m.cfg.Retention > 0 {
		n, err := m.store.PruneJobs(m.now().Add(-m.cfg.Retention))
		if err != nil {
			m.logger.Warn("job prune failed", slog.String("error", err.Error()))
		} else if n > 0 {
			m.logger.Info("pruned jobs", slog.Int64("count", n))
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for range m.cfg.Workers {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case t := <-m.queue:
					m.process(ctx, t)
				}
			}
		})
	}
	return g.Wait()
}

func (m *Manager) process(ctx context.Context, t task) {
	job, _ := m.Get(t.id)
	if job == nil {
		job = &models.PublishJob{ID: t.id, CreatedAt: m.now()}
	}
	req := t.req
	log := m.logger.With(slog.String("job_id", t.id))

	advance := func(progress int, message string) {
		job.Status = models.JobRunning
		job.Progress = progress
		job.Message = message
		job.UpdatedAt = m.now()
		m.record(*job)
	}

	body := req.Content
	advance(ProgressFormatting, "formatting")
	if req.AutoFormat {
		formatted, err := m.formatter.Format(ctx, formatter.Input{
			Content:  req.Content,
			Title:    req.Title,
			Tags:     req.Tags,
			Category: req.Category,
		})
		if err != nil {
			log.Warn("auto format failed, keeping original content", slog.String("error", err.Error()))
		} else if strings.TrimSpace(formatted) != "" {
			body = formatted
		}
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		advance(ProgressTitle, "generating title")
		suggested, err := m.formatter.SuggestTitle(ctx, body)
		if err != nil || strings.TrimSpace(suggested) == "" {
			title = UntitledTitle(m.now().In(m.cfg.Location))
		} else {
			title = strings.TrimSpace(suggested)
		}
	}

	advance(ProgressWriting, "writing file")
	published := m.now().In(m.cfg.Location)
	fm := frontmatter.FrontMatter{
		Title: title,
		Date:  published.Format(time.RFC3339),
		Tags:  req.Tags,
	}
	if c := strings.TrimSpace(req.Category); c != "" {
		fm.Categories = []string{c}
	}
	content := []byte(frontmatter.Encode(fm, strings.TrimSpace(body)+"\n", frontmatter.WithDraft(req.Draft)))
	p := path.Join(req.TargetDir, Filename(published, title))

	advance(ProgressCommitting, "committing")
	if _, err := m.writer.Save(p, content, "Publish: "+title); err != nil {
		log.Error("publish failed", slog.String("path", p), slog.String("error", err.Error()))
		job.Status = models.JobFailed
		job.Message = "failed"
		job.Error = err.Error()
		job.UpdatedAt = m.now()
		m.record(*job)
		return
	}
	if m.written != nil {
		m.written(p, content)
	}

	job.Status = models.JobCompleted
	job.Progress = ProgressDone
	job.Message = "completed"
	job.Result = &models.JobResult{FilePath: p, URL: PermalinkURL(m.cfg.PublicURL, p)}
	job.UpdatedAt = m.now()
	m.record(*job)
	log.Info("job completed", slog.String("path", p))
}

// record stores the snapshot in memory and in the job store, then notifies.
func (m *Manager) record(job models.PublishJob) {
	m.mu.Lock()
	if job.Status.Terminal() {
		delete(m.live, job.ID)
	} else {
		m.live[job.ID] = job
	}
	m.mu.Unlock()

	if err := m.store.SaveJob(&job); err != nil {
		m.logger.Warn("save job failed", slog.String("job_id", job.ID), slog.String("error", err.Error()))
		if job.Status.Terminal() {
			m.mu.Lock()
			m.live[job.ID] = job
			m.mu.Unlock()
		}
	}
	if m.notify != nil {
		m.notify(job)
	}
}
