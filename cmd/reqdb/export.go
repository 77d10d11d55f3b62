package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vanderheijden86/reqdb/pkg/browse"
	"github.com/vanderheijden86/reqdb/pkg/export"
	"github.com/vanderheijden86/reqdb/pkg/hooks"
	"github.com/vanderheijden86/reqdb/pkg/model"
)

func exportCmd(a *app) *cobra.Command {
	var src sourceFlags
	var filters filterFlags
	var format, outDir string
	var ids []int
	var noWizard, noHooks bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export selected requirements",
		Long: `Export requirements as CSV, JSON, YAML, Markdown or SQLite.

The selection is every row that passes the filters, or exactly the
requirement ids given with --select. JSON, YAML, Markdown and SQLite keep
the topic tree; topics without selected requirements are dropped. The file
is named ReqDB-Export.<ext>; --out - writes to stdout instead.

Without --format an interactive wizard asks for the format and destination
when stdin is a terminal.

Commands listed in .reqdb/hooks.yaml run before (pre-export) and after
(post-export) the file is written. They receive REQDB_EXPORT_PATH,
REQDB_EXPORT_FORMAT, REQDB_REQUIREMENT_COUNT, REQDB_CATALOGUE and
REQDB_TIMESTAMP in their environment.`,
		Example: `  reqdb export -f catalogue.json --format csv --tag urgent
  reqdb export -c 7 --format md --select 101,102 --out -
  reqdb export -c 7 --format sqlite --out ./exports`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := a.resolveSource(src)
			if err != nil {
				return err
			}
			tree, err := a.loadTree(cmd.Context(), source, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			res, headers, err := a.flatten(tree)
			if err != nil {
				return err
			}
			st, err := filters.state(res, a.cfg.Browse.SearchFields)
			if err != nil {
				return err
			}

			selected, err := selection(res.Rows, browse.Visible(res.Rows, st), ids)
			if err != nil {
				return err
			}
			if len(selected) == 0 {
				return export.ErrNoSelection
			}

			dest := exportDest{format: format, outDir: outDir}
			if err := a.resolveDest(&dest, len(selected), !noWizard && export.IsTerminal()); err != nil {
				return err
			}
			if dest.outDir == export.Stdout && dest.f.Binary() && isTerminal(cmd.OutOrStdout()) {
				return fmt.Errorf("refusing to write %s to a terminal; use --out or redirect stdout", dest.f.Label())
			}

			hookCtx := hooks.ExportContext{
				ExportPath:       dest.path(),
				ExportFormat:     string(dest.f),
				RequirementCount: len(selected),
				CatalogueTitle:   tree.Catalogue.Title,
				Timestamp:        time.Now(),
			}
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			hx, err := hooks.Prepare(wd, hookCtx, noHooks)
			if err != nil {
				return err
			}
			if hx != nil {
				if err := hx.BeforeExport(); err != nil {
					fmt.Fprint(cmd.ErrOrStderr(), hx.Summary())
					return err
				}
			}

			result, err := export.NewExporter().Export(cmd.Context(), export.Request{
				Format:     dest.f,
				Catalogue:  tree.Catalogue,
				ExtraTypes: tree.ExtraTypes,
				Rows:       res.Rows,
				Headers:    headers,
				Selected:   selected,
				OutDir:     dest.outDir,
				Stdout:     cmd.OutOrStdout(),
			})
			if err != nil {
				return err
			}

			if dest.outDir != export.Stdout {
				fmt.Fprintf(cmd.OutOrStdout(), "%s Exported %d requirements to %s\n", okMark, result.Requirements, result.Path)
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s Exported %d requirements (%d bytes, %s)\n", okMark, result.Requirements, result.Bytes, result.MIME)
			}

			if hx != nil {
				hookCtx.ExportPath = result.Path
				hookCtx.RequirementCount = result.Requirements
				hx.SetExport(hookCtx)
				postErr := hx.AfterExport()
				fmt.Fprint(cmd.ErrOrStderr(), hx.Summary())
				return postErr
			}
			return nil
		},
	}

	addSourceFlags(cmd, &src)
	addFilterFlags(cmd, &filters)
	cmd.Flags().StringVar(&format, "format", "", "Export format: md, csv, json, yaml, sqlite")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", `Output directory, or "-" for stdout (default from config)`)
	cmd.Flags().IntSliceVar(&ids, "select", nil, "Export exactly these requirement ids")
	cmd.Flags().BoolVar(&noWizard, "no-wizard", false, "Never prompt; fall back to the configured default format")
	cmd.Flags().BoolVar(&noHooks, "no-hooks", false, "Skip the hooks in .reqdb/hooks.yaml")
	cmd.MarkFlagsMutuallyExclusive("select", "search")
	cmd.MarkFlagsMutuallyExclusive("select", "tag")
	cmd.MarkFlagsMutuallyExclusive("select", "topic")
	return cmd
}

// selection returns the ids to export: the explicit ids when given, otherwise
// every visible row.
func selection(all, visible []model.Row, ids []int) (map[int]struct{}, error) {
	if len(ids) == 0 {
		out := make(map[int]struct{}, len(visible))
		for _, r := range visible {
			out[r.ID] = struct{}{}
		}
		return out, nil
	}

	known := make(map[int]struct{}, len(all))
	for _, r := range all {
		known[r.ID] = struct{}{}
	}
	out := export.IDSet(ids...)
	for id := range out {
		if _, ok := known[id]; !ok {
			return nil, fmt.Errorf("requirement %d is not in the catalogue", id)
		}
	}
	return out, nil
}

type exportDest struct {
	format string
	outDir string
	f      export.Format
}

// path is where the export will land, or "-" for stdout.
func (d exportDest) path() string {
	if d.outDir == export.Stdout {
		return export.Stdout
	}
	dir := d.outDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, d.f.Filename())
}

// resolveDest fills in the format and directory from flags, the wizard or the
// config defaults, in that order.
func (a *app) resolveDest(d *exportDest, n int, interactive bool) error {
	if d.outDir == "" {
		d.outDir = a.cfg.Export.OutputDir
	}
	if d.format != "" {
		f, err := export.ParseFormat(d.format)
		if err != nil {
			return err
		}
		d.f = f
		return nil
	}

	def, err := export.ParseFormat(a.cfg.Export.DefaultFormat)
	if err != nil {
		def = export.FormatMarkdown
	}
	if !interactive {
		d.f = def
		return nil
	}

	answers, err := export.NewWizard(export.WizardConfig{Format: def, OutputDir: d.outDir}, n).Run()
	if err != nil {
		if errors.Is(err, export.ErrWizardCanceled) {
			return err
		}
		return fmt.Errorf("export wizard: %w", err)
	}
	d.f = answers.Format
	d.outDir = answers.OutputDir
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
