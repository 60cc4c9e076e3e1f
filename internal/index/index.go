package index

import (
	"time"

	"github.com/starford/hugopub/internal/models"
)

// ArticleIndex defines the article metadata operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type ArticleIndex interface {
	UpsertArticle(a models.Article, body string) error
	DeleteArticle(path string) error
	GetArticle(path string) (*models.Article, error)
	ListArticles(dir string) ([]models.Article, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
}

// JobStore persists publish jobs.
type JobStore interface {
	SaveJob(job *models.PublishJob) error
	GetJob(id string) (*models.PublishJob, error)
	PruneJobs(before time.Time) (int64, error)
}

// Verify *DB satisfies both interfaces at compile time.
var (
	_ ArticleIndex = (*DB)(nil)
	_ JobStore     = (*DB)(nil)
)
