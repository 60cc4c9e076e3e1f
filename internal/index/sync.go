package index

import (
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/hugopub/internal/checksum"
	"github.com/starford/hugopub/internal/frontmatter"
	"github.com/starford/hugopub/internal/models"
	"github.com/starford/hugopub/internal/storage"
)

// Sync walks dir in the content repository and brings the index up to date:
//   - new/changed articles are parsed and upserted
//   - articles removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, dir string, logger *slog.Logger) error {
	metas, err := store.List(dir)
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data, m.ModTime); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if !within(p, dir) {
			continue
		}
		if _, ok := disk[p]; !ok {
			if err := db.DeleteArticle(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile parses data and upserts it; used after the backend writes an
// article so the listing is fresh without waiting for the watcher.
func IndexFile(db *DB, p string, data []byte) error {
	return indexFile(db, p, data, time.Now())
}

// indexFile parses data and upserts it into the DB.
func indexFile(db *DB, p string, data []byte, modTime time.Time) error {
	fm, body := frontmatter.Decode(string(data))
	a := models.Article{
		Path:       p,
		Name:       path.Base(p),
		Directory:  path.Dir(p),
		Title:      fm.Title,
		Date:       frontmatter.Field(string(data), "date"),
		Categories: fm.Categories,
		Tags:       fm.Tags,
		Checksum:   checksum.Sum(data),
		Size:       int64(len(data)),
		UpdatedAt:  modTime.UTC(),
	}
	return db.UpsertArticle(a, body)
}

func within(p, dir string) bool {
	if dir == "" || dir == "." {
		return true
	}
	return strings.HasPrefix(p, strings.TrimSuffix(dir, "/")+"/")
}
