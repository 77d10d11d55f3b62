package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/reqdb/internal/datasource"
	"github.com/vanderheijden86/reqdb/pkg/browse"
	"github.com/vanderheijden86/reqdb/pkg/client"
	"github.com/vanderheijden86/reqdb/pkg/config"
	"github.com/vanderheijden86/reqdb/pkg/debug"
	"github.com/vanderheijden86/reqdb/pkg/loader"
	"github.com/vanderheijden86/reqdb/pkg/metrics"
	"github.com/vanderheijden86/reqdb/pkg/rows"
	"github.com/vanderheijden86/reqdb/pkg/version"
)

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	keyColor = color.New(color.FgHiMagenta)
	warnText = color.New(color.FgYellow)
	errLabel = color.New(color.FgRed, color.Bold)
)

func errorText(err error) string {
	return errLabel.Sprint("Error:") + " " + err.Error()
}

// app carries the global flags and the configuration they resolve to.
type app struct {
	configPath  string
	apiURL      string
	token       string
	debug       bool
	showMetrics bool
	cpuProfile  string

	cfg         config.Config
	profileFile *os.File
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{cfg: config.DefaultConfig()}

	root := &cobra.Command{
		Use:     "reqdb",
		Short:   "Browse, filter and export ReqDB requirement catalogues",
		Version: version.Full(),
		Long: `reqdb loads a requirements catalogue from the ReqDB API or from a snapshot
file (JSON, YAML or SQLite), flattens it into one row per requirement and
lets you search, filter and export the selection as CSV, JSON, YAML,
Markdown or SQLite.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/reqdb/config.yaml)")
	pf.StringVar(&a.apiURL, "api", "", "ReqDB API base URL (overrides "+config.EnvAPI+")")
	pf.StringVar(&a.token, "token", "", "Bearer token for the API (overrides "+config.EnvToken+")")
	pf.BoolVar(&a.debug, "debug", false, "Log debug output to stderr")
	pf.BoolVar(&a.showMetrics, "metrics", false, "Print timing metrics to stderr on exit")
	pf.StringVar(&a.cpuProfile, "cpu-profile", "", "Write CPU profile to file")

	root.AddCommand(browseCmd(a))
	root.AddCommand(rowsCmd(a))
	root.AddCommand(exportCmd(a))
	root.AddCommand(diffCmd(a))
	root.AddCommand(sourcesCmd(a))

	// Backend administration
	root.AddCommand(cataloguesCmd(a))
	root.AddCommand(deleteCmd(a))
	root.AddCommand(moveTopicCmd(a))

	root.AddCommand(versionCmd())
	return root, a
}

func (a *app) setup() error {
	if a.debug {
		debug.SetEnabled(true)
	}
	if a.showMetrics {
		metrics.SetEnabled(true)
	}

	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFrom(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		a.cfg.API.BaseURL = a.apiURL
	}
	if a.token != "" {
		a.cfg.API.Token = a.token
	}
	debug.Logw("config resolved", "api", a.cfg.API.BaseURL, "order", a.cfg.Browse.Order)

	if a.cpuProfile != "" {
		f, err := os.Create(a.cpuProfile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		a.profileFile = f
	}
	return nil
}

// finish stops profiling and prints the metrics summary. It runs whether or
// not the command succeeded.
func (a *app) finish(w io.Writer) {
	if a.profileFile != nil {
		pprof.StopCPUProfile()
		a.profileFile.Close()
		a.profileFile = nil
	}
	if a.showMetrics {
		if err := metrics.WriteSummary(w); err != nil {
			fmt.Fprintf(w, "metrics: %v\n", err)
		}
	}
	debug.Sync()
}

func (a *app) client() *client.Client {
	return client.NewClient(a.cfg.API.BaseURL,
		client.WithToken(a.cfg.API.Token),
		client.WithTimeout(a.cfg.API.Timeout),
	)
}

// sourceFlags select where the catalogue comes from.
type sourceFlags struct {
	catalogue int
	file      string
	dir       string
}

func addSourceFlags(cmd *cobra.Command, s *sourceFlags) {
	cmd.Flags().IntVarP(&s.catalogue, "catalogue", "c", 0, "Load catalogue ID from the API")
	cmd.Flags().StringVarP(&s.file, "file", "f", "", "Load a snapshot file (.json, .yaml, .db)")
	cmd.Flags().StringVar(&s.dir, "dir", "", "Directory scanned for snapshots (default $"+datasource.EnvSnapshotDir+", then cwd)")
	cmd.MarkFlagsMutuallyExclusive("catalogue", "file")
	cmd.MarkFlagsMutuallyExclusive("catalogue", "dir")
	cmd.MarkFlagsMutuallyExclusive("file", "dir")
}

// resolveSource picks the API catalogue, the named file, or the freshest
// snapshot in the snapshot directory.
func (a *app) resolveSource(s sourceFlags) (datasource.DataSource, error) {
	switch {
	case s.file != "":
		return datasource.FileSource(s.file)
	case s.catalogue != 0:
		if a.cfg.API.BaseURL == "" {
			return datasource.DataSource{}, fmt.Errorf("no API configured: pass --api or set %s", config.EnvAPI)
		}
		return datasource.APISource(a.cfg.API.BaseURL, s.catalogue), nil
	default:
		sources, err := datasource.DiscoverSources(datasource.DiscoveryOptions{
			Dir:                    s.dir,
			ValidateAfterDiscovery: true,
			Verbose:                debug.Enabled(),
			Logger:                 func(msg string) { debug.Log("%s", msg) },
		})
		if err != nil {
			return datasource.DataSource{}, err
		}
		best, err := datasource.SelectBestSource(sources)
		if err != nil {
			return datasource.DataSource{}, fmt.Errorf("no snapshot found (pass --catalogue or --file): %w", err)
		}
		return best, nil
	}
}

// parseSourceArg accepts a snapshot path or api:<catalogue id>.
func (a *app) parseSourceArg(arg string) (datasource.DataSource, error) {
	if rest, ok := strings.CutPrefix(arg, "api:"); ok {
		var id int
		if _, err := fmt.Sscanf(rest, "%d", &id); err != nil || id <= 0 {
			return datasource.DataSource{}, fmt.Errorf("invalid catalogue id in %q", arg)
		}
		return a.resolveSource(sourceFlags{catalogue: id})
	}
	return datasource.FileSource(arg)
}

func (a *app) loadOptions(warn io.Writer) datasource.LoadOptions {
	return datasource.LoadOptions{
		Fetcher: a.client(),
		WarningHandler: func(msg string) {
			warnText.Fprintf(warn, "warning: %s\n", msg)
		},
	}
}

func (a *app) loadTree(ctx context.Context, src datasource.DataSource, warn io.Writer) (*loader.Tree, error) {
	tree, err := datasource.Load(ctx, src, a.loadOptions(warn))
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", src.Path, err)
	}
	return tree, nil
}

// headers returns the configured extra columns, or every extra type the tree
// knows when none are configured.
func (a *app) headers(tree *loader.Tree) map[int]string {
	if len(a.cfg.Browse.ExtraHeaders) > 0 {
		return a.cfg.Browse.ExtraHeaders
	}
	return tree.Headers()
}

func (a *app) flatten(tree *loader.Tree) (rows.Result, map[int]string, error) {
	order, err := rows.ParseOrder(a.cfg.Browse.Order)
	if err != nil {
		return rows.Result{}, nil, err
	}
	headers := a.headers(tree)
	res := rows.FlattenCatalogue(tree.Catalogue, rows.Options{Headers: headers, Order: order})
	return res, headers, nil
}

// filterFlags mirror the browse filters on the command line.
type filterFlags struct {
	search    string
	fields    []string
	tags      []string
	topics    []string
	sortByKey bool
}

func addFilterFlags(cmd *cobra.Command, f *filterFlags) {
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "Case-insensitive substring search")
	cmd.Flags().StringSliceVar(&f.fields, "fields", nil, "Fields searched (key,title,description,tags,topics)")
	cmd.Flags().StringSliceVarP(&f.tags, "tag", "t", nil, "Only rows with one of these tags (repeatable)")
	cmd.Flags().StringSliceVar(&f.topics, "topic", nil, "Only rows under one of these topic titles (repeatable)")
	cmd.Flags().BoolVar(&f.sortByKey, "sort", false, "Sort rows by key instead of tree order")
}

func (f filterFlags) state(res rows.Result, defaultFields []string) (browse.State, error) {
	st := browse.NewState(res)

	names := f.fields
	if len(names) == 0 {
		names = defaultFields
	}
	if len(names) > 0 {
		fields, err := browse.ParseFields(names)
		if err != nil {
			return st, err
		}
		st = st.WithSearchFields(fields...)
	}
	st = st.WithSearch(f.search).WithSortByKey(f.sortByKey)

	if len(f.tags) > 0 {
		sel, err := pickLabels(res.Tags, f.tags, "tag")
		if err != nil {
			return st, err
		}
		st = st.WithTags(sel)
	}
	if len(f.topics) > 0 {
		sel, err := pickLabels(res.Topics, f.topics, "topic")
		if err != nil {
			return st, err
		}
		st = st.WithTopics(sel)
	}
	return st, nil
}

func pickLabels(ix *rows.Index, labels []string, what string) (browse.Selection, error) {
	sel := browse.SelectNone()
	for _, l := range labels {
		if !ix.Contains(l) {
			return sel, fmt.Errorf("unknown %s %q", what, l)
		}
		if !sel.Has(l) {
			sel = sel.Toggle(l)
		}
	}
	return sel, nil
}
