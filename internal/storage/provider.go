// Package storage defines the content repository abstraction: a directory
// tree of articles and images, optionally versioned with git.
package storage

import "github.com/starford/hugopub/internal/models"

// Entry types reported by ReadDir.
const (
	TypeFile = "file"
	TypeDir  = "dir"
)

// Entry is one item of a single directory level.
type Entry struct {
	Name string
	Path string
	Type string
	Size int64
}

// Provider is the interface for content file operations. Paths are
// slash-separated and relative to the repository root.
type Provider interface {
	// List returns metadata for every .md file under dir, recursively.
	List(dir string) ([]models.FileMeta, error)
	// ReadDir returns the direct children of dir.
	ReadDir(dir string) ([]Entry, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}

// Store is a Provider whose mutations are recorded with a message. The
// returned revision is empty when nothing was recorded.
type Store interface {
	Provider
	Save(path string, content []byte, message string) (string, error)
	Remove(path, message string) (string, error)
}
