// Package articles keeps the browsable, filtered and paginated view of the
// articles stored in the content repository.
package articles

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/starford/hugopub/internal/models"
)

// DefaultPageSize is used when no page size is configured.
const DefaultPageSize = 20

// SortOrder selects the ordering of the view.
type SortOrder string

const (
	// ByDate orders newest first; articles without a date go last.
	ByDate SortOrder = "date"
	// ByName orders by file name, locale aware with numeric collation.
	ByName SortOrder = "name"
)

// ParseSortOrder maps user input to a SortOrder.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", ByDate:
		return ByDate, nil
	case ByName:
		return ByName, nil
	}
	return "", fmt.Errorf("articles: unknown sort order %q", s)
}

// Lister fetches the articles of one directory.
type Lister interface {
	ListArticles(ctx context.Context, dir string) ([]models.ArticleSummary, error)
}

// Page is one page of the current view.
type Page struct {
	Items []models.ArticleSummary
	// Total is the number of items after filtering.
	Total int
	Page  int
	Pages int
}

// Projection is a read-only cache of the article list. It is replaced
// wholesale on every load and never patched in place.
type Projection struct {
	pageSize int

	items []models.ArticleSummary
	query string
	dir   string
	order SortOrder
	page  int

	lister Lister
	dirs   []string
}

// New returns an empty projection with the given page size.
func New(pageSize int) *Projection {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Projection{pageSize: pageSize, order: ByDate, page: 1}
}

// Load fetches every directory concurrently and replaces the cached set.
// On error the previous set is kept.
func (p *Projection) Load(ctx context.Context, lister Lister, dirs ...string) error {
	results := make([][]models.ArticleSummary, len(dirs))

	g, gCtx := errgroup.WithContext(ctx)
	for i, dir := range dirs {
		g.Go(func() error {
			items, err := lister.ListArticles(gCtx, dir)
			if err != nil {
				return fmt.Errorf("articles: list %s: %w", dir, err)
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var all []models.ArticleSummary
	for _, r := range results {
		all = append(all, r...)
	}
	p.Replace(all)
	p.lister = lister
	p.dirs = append([]string(nil), dirs...)
	return nil
}

// Reload repeats the last successful Load.
func (p *Projection) Reload(ctx context.Context) error {
	if p.lister == nil {
		return fmt.Errorf("articles: reload before load")
	}
	return p.Load(ctx, p.lister, p.dirs...)
}

// Replace swaps the cached set and returns to the first page.
func (p *Projection) Replace(items []models.ArticleSummary) {
	p.items = append([]models.ArticleSummary(nil), items...)
	p.page = 1
}

// SetQuery filters by case-insensitive substring of the name.
func (p *Projection) SetQuery(q string) {
	p.query = strings.TrimSpace(q)
	p.page = 1
}

// SetDirectory limits the view to one repository directory such as
// "content/posts"; "" shows all.
func (p *Projection) SetDirectory(dir string) {
	p.dir = strings.Trim(strings.TrimSpace(dir), "/")
	p.page = 1
}

// SetSort changes the ordering.
func (p *Projection) SetSort(order SortOrder) {
	p.order = order
	p.page = 1
}

// SetPage moves to page n, clamped to the available pages.
func (p *Projection) SetPage(n int) {
	pages := pageCount(len(p.filtered()), p.pageSize)
	switch {
	case n < 1:
		n = 1
	case n > pages:
		n = pages
	}
	p.page = n
}

// CurrentPage returns the selected page number.
func (p *Projection) CurrentPage() int {
	return p.page
}

// View returns the current page.
func (p *Projection) View() Page {
	items := p.filtered()
	p.sortItems(items)

	pages := pageCount(len(items), p.pageSize)
	page := min(max(p.page, 1), pages)
	start := (page - 1) * p.pageSize
	end := min(start+p.pageSize, len(items))

	return Page{
		Items: items[start:end],
		Total: len(items),
		Page:  page,
		Pages: pages,
	}
}

func (p *Projection) filtered() []models.ArticleSummary {
	q := strings.ToLower(p.query)
	out := make([]models.ArticleSummary, 0, len(p.items))
	for _, it := range p.items {
		if p.dir != "" && it.Directory != p.dir {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(it.Name), q) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func (p *Projection) sortItems(items []models.ArticleSummary) {
	col := collate.New(language.Und, collate.Numeric)
	switch p.order {
	case ByName:
		sort.SliceStable(items, func(i, j int) bool {
			return col.CompareString(items[i].Name, items[j].Name) < 0
		})
	default:
		sort.SliceStable(items, func(i, j int) bool {
			ti, tj := timestamp(items[i]), timestamp(items[j])
			if !ti.Equal(tj) {
				return ti.After(tj)
			}
			return col.CompareString(items[i].Name, items[j].Name) < 0
		})
	}
}

// timestamp treats a missing date as the epoch.
func timestamp(s models.ArticleSummary) time.Time {
	if s.UpdatedAt == nil {
		return time.Unix(0, 0)
	}
	return *s.UpdatedAt
}

func pageCount(n, size int) int {
	if n == 0 {
		return 1
	}
	return (n + size - 1) / size
}
