package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/vanderheijden86/reqdb/pkg/debug"
	"github.com/vanderheijden86/reqdb/pkg/loader"
)

// LoadOptions configures Load.
type LoadOptions struct {
	// Fetcher serves API sources. Required when the source type is api.
	Fetcher loader.Fetcher
	// WarningHandler receives recoverable snapshot problems.
	WarningHandler func(string)
}

// Load reads the catalogue tree from source, dispatching to the reader for
// its type.
func Load(ctx context.Context, source DataSource, opts LoadOptions) (*loader.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { debug.LogTiming("datasource.Load("+string(source.Type)+")", time.Since(start)) }()

	switch source.Type {
	case SourceTypeAPI:
		if opts.Fetcher == nil {
			return nil, fmt.Errorf("api source %s: no client configured", source.Path)
		}
		return loader.FetchTree(ctx, opts.Fetcher, source.CatalogueID)

	case SourceTypeSQLite:
		reader, err := NewSQLiteReader(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, err)
		}
		defer reader.Close()

		cat, err := reader.LoadCatalogue()
		if err != nil {
			return nil, err
		}
		types, err := reader.LoadExtraTypes()
		if err != nil {
			return nil, err
		}
		return &loader.Tree{Catalogue: cat, ExtraTypes: types, LoadedAt: time.Now()}, nil

	case SourceTypeJSON, SourceTypeYAML:
		cat, err := loader.LoadCatalogueFromFileWithOptions(source.Path, loader.ParseOptions{
			WarningHandler: opts.WarningHandler,
		})
		if err != nil {
			return nil, err
		}
		return loader.TreeFromCatalogue(cat), nil

	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
}

// LoadBest discovers snapshots under dir, selects the freshest valid one and
// loads it.
func LoadBest(ctx context.Context, dir string, opts LoadOptions) (*loader.Tree, DataSource, error) {
	sources, err := DiscoverSources(DiscoveryOptions{
		Dir:                    dir,
		ValidateAfterDiscovery: true,
		Verbose:                debug.Enabled(),
		Logger:                 func(msg string) { debug.Log("%s", msg) },
	})
	if err != nil {
		return nil, DataSource{}, err
	}
	best, err := SelectBestSource(sources)
	if err != nil {
		return nil, DataSource{}, err
	}
	tree, err := Load(ctx, best, opts)
	if err != nil {
		return nil, best, err
	}
	return tree, best, nil
}
