package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/reqdb/internal/datasource"
)

func diffCmd(a *app) *cobra.Command {
	var fields []string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Compare two catalogue versions",
		Long: `Compare two catalogue versions by requirement key. Each side is a snapshot
path or api:<catalogue id>.`,
		Example: `  reqdb diff yesterday.json today.json
  reqdb diff ReqDB-Export.sqlite api:7 --fields title,description`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			older, err := a.parseSourceArg(args[0])
			if err != nil {
				return err
			}
			newer, err := a.parseSourceArg(args[1])
			if err != nil {
				return err
			}

			opts := datasource.DefaultDiffOptions()
			opts.CompareFields = fields
			opts.MaxDifferences = limit

			d, err := datasource.CompareSources(cmd.Context(), older, newer, opts, a.loadOptions(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			}
			fmt.Fprint(out, d.Summary())
			if !d.HasChanges() {
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&fields, "fields", nil, "Fields compared: title,description,tags,topic,extras (default all)")
	cmd.Flags().IntVar(&limit, "limit", 100, "Stop after this many field differences (0 = unlimited)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the diff as JSON")
	return cmd
}

func sourcesCmd(a *app) *cobra.Command {
	var dir string
	var all bool

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List snapshot files found in the snapshot directory",
		Long: `List the catalogue snapshots reqdb would pick up without --file or
--catalogue, freshest first. The one marked * is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := datasource.DiscoverSources(datasource.DiscoveryOptions{
				Dir:                    dir,
				ValidateAfterDiscovery: true,
				IncludeInvalid:         all,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(sources) == 0 {
				fmt.Fprintln(out, "No snapshots found")
				return nil
			}
			best, bestErr := datasource.SelectBestSource(sources)

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "\tTYPE\tPATH\tREQUIREMENTS\tMODIFIED\tSTATUS")
			for _, s := range sources {
				mark := ""
				if bestErr == nil && s.Path == best.Path {
					mark = "*"
				}
				status := "ok"
				if !s.Valid {
					status = warnText.Sprint(s.ValidationError)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					mark, s.Type, s.Path, s.RequirementCount, s.ModTime.Format(time.DateTime), status)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory to scan (default $"+datasource.EnvSnapshotDir+", then cwd)")
	cmd.Flags().BoolVar(&all, "all", false, "Include snapshots that failed validation")
	return cmd
}
