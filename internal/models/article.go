// Package models defines the domain and wire types for hugopub.
package models

import (
	"strings"
	"time"
)

// JobStatus is the lifecycle state of a publish job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether no further transitions can happen.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Valid reports whether s is one of the known states.
func (s JobStatus) Valid() bool {
	switch s {
	case JobQueued, JobRunning, JobCompleted, JobFailed:
		return true
	}
	return false
}

// JobResult is the outcome of a completed publish job.
type JobResult struct {
	FilePath string `json:"file_path"`
	URL      string `json:"url"`
}

// PublishJob is a snapshot of a server-side publish job.
type PublishJob struct {
	ID        string     `json:"id"`
	Status    JobStatus  `json:"status"`
	Progress  int        `json:"progress"`
	Message   string     `json:"message"`
	Result    *JobResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ArticleSummary is one row of the article browser.
type ArticleSummary struct {
	Name      string
	Path      string
	Directory string
	UpdatedAt *time.Time
}

// FileMeta describes a file in the content store.
type FileMeta struct {
	Path     string
	Size     int64
	Checksum string
	ModTime  time.Time
}

// Article is an indexed content file.
type Article struct {
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	Directory  string    `json:"directory"`
	Title      string    `json:"title"`
	Date       string    `json:"date"`
	Categories []string  `json:"categories"`
	Tags       []string  `json:"tags"`
	Checksum   string    `json:"checksum"`
	Size       int64     `json:"size"`
	UpdatedAt  time.Time `json:"updated_at"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp accepts the date shapes found in front matter and API
// responses. ok is false for empty or unrecognised input.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.Trim(strings.TrimSpace(s), `"'`)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
