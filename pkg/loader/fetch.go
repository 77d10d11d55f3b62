package loader

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/reqdb/pkg/debug"
	"github.com/vanderheijden86/reqdb/pkg/metrics"
	"github.com/vanderheijden86/reqdb/pkg/model"
)

// Fetcher is the subset of the REST client the loader needs.
type Fetcher interface {
	GetCatalogue(ctx context.Context, id int) (*model.Catalogue, error)
	ListExtraTypes(ctx context.Context) ([]model.ExtraType, error)
}

// Tree is a fully loaded catalogue plus the extra types its requirements
// reference.
type Tree struct {
	Catalogue  *model.Catalogue
	ExtraTypes []model.ExtraType
	LoadedAt   time.Time
}

// Headers returns the default extra-column headers: every known ExtraType
// keyed by id and titled by its title.
func (t *Tree) Headers() map[int]string {
	headers := make(map[int]string, len(t.ExtraTypes))
	for _, et := range t.ExtraTypes {
		title := et.Title
		if title == "" {
			title = fmt.Sprintf("Extra %d", et.ID)
		}
		headers[et.ID] = title
	}
	return headers
}

// FetchTree loads the catalogue and the ExtraType list concurrently. Either
// failure cancels the other request.
func FetchTree(ctx context.Context, f Fetcher, catalogueID int) (*Tree, error) {
	defer metrics.Timer(metrics.Fetch)()
	start := time.Now()

	var (
		cat   *model.Catalogue
		types []model.ExtraType
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := f.GetCatalogue(ctx, catalogueID)
		if err != nil {
			return fmt.Errorf("fetching catalogue %d: %w", catalogueID, err)
		}
		cat = c
		return nil
	})
	g.Go(func() error {
		t, err := f.ListExtraTypes(ctx)
		if err != nil {
			return fmt.Errorf("fetching extra types: %w", err)
		}
		types = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	Normalize(cat, func(msg string) { debug.Log("normalize: %s", msg) })
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalogue %d: %w", catalogueID, err)
	}
	ResolveExtraTypes(cat, types)

	debug.LogTiming("FetchTree", time.Since(start))
	return &Tree{Catalogue: cat, ExtraTypes: types, LoadedAt: time.Now()}, nil
}

// TreeFromCatalogue wraps a locally loaded catalogue. Extra types are
// collected from the types embedded in its extras.
func TreeFromCatalogue(c *model.Catalogue) *Tree {
	return &Tree{Catalogue: c, ExtraTypes: EmbeddedExtraTypes(c), LoadedAt: time.Now()}
}

// ResolveExtraTypes attaches the matching ExtraType to every extra that
// carries only an id. Extras referencing unknown types are left untouched.
func ResolveExtraTypes(c *model.Catalogue, types []model.ExtraType) {
	if c == nil || len(types) == 0 {
		return
	}
	byID := make(map[int]*model.ExtraType, len(types))
	for i := range types {
		byID[types[i].ID] = &types[i]
	}
	c.Walk(func(t *model.Topic, _ int) bool {
		for _, r := range t.Requirements {
			if r == nil {
				continue
			}
			for i := range r.Extras {
				e := &r.Extras[i]
				if e.ExtraType != nil {
					continue
				}
				if et, ok := byID[e.ExtraTypeID]; ok {
					cp := *et
					e.ExtraType = &cp
				}
			}
		}
		return true
	})
}

// EmbeddedExtraTypes returns the distinct ExtraTypes embedded in the
// catalogue's extras, in first-seen order.
func EmbeddedExtraTypes(c *model.Catalogue) []model.ExtraType {
	var out []model.ExtraType
	seen := make(map[int]bool)
	c.Walk(func(t *model.Topic, _ int) bool {
		for _, r := range t.Requirements {
			if r == nil {
				continue
			}
			for _, e := range r.Extras {
				if e.ExtraType == nil || seen[e.ExtraType.ID] {
					continue
				}
				seen[e.ExtraType.ID] = true
				out = append(out, *e.ExtraType)
			}
		}
		return true
	})
	return out
}
