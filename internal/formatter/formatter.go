// Package formatter rewrites article bodies and suggests titles and tags.
package formatter

import (
	"context"
	"errors"
	"strings"
)

// ErrUnavailable is returned when the formatter cannot produce a suggestion.
var ErrUnavailable = errors.New("formatter unavailable")

// Input is the article context handed to Format.
type Input struct {
	Content  string
	Title    string
	Tags     []string
	Category string
}

// Formatter rewrites article content.
type Formatter interface {
	Format(ctx context.Context, in Input) (string, error)
	SuggestTitle(ctx context.Context, content string) (string, error)
	SuggestTags(ctx context.Context, content string, existing []string) ([]string, error)
}

// Passthrough leaves content untouched. It is used when no model endpoint
// is configured.
type Passthrough struct{}

var _ Formatter = Passthrough{}

// Format returns the content with surrounding whitespace trimmed.
func (Passthrough) Format(_ context.Context, in Input) (string, error) {
	return strings.TrimSpace(in.Content), nil
}

// SuggestTitle returns the first "# " heading of content.
func (Passthrough) SuggestTitle(_ context.Context, content string) (string, error) {
	for _, line := range strings.Split(content, "\n") {
		if t, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok && strings.TrimSpace(t) != "" {
			return strings.TrimSpace(t), nil
		}
	}
	return "", ErrUnavailable
}

// SuggestTags returns existing unchanged.
func (Passthrough) SuggestTags(_ context.Context, _ string, existing []string) ([]string, error) {
	return existing, nil
}

// New returns a Chat formatter when an API key is configured and
// Passthrough otherwise.
func New(cfg Config) Formatter {
	if cfg.Provider == ProviderPassthrough || cfg.APIKey == "" {
		return Passthrough{}
	}
	return NewChat(cfg)
}
