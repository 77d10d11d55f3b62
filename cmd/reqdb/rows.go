package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/reqdb/internal/datasource"
	"github.com/vanderheijden86/reqdb/pkg/browse"
	"github.com/vanderheijden86/reqdb/pkg/model"
)

func rowsCmd(a *app) *cobra.Command {
	var src sourceFlags
	var filters filterFlags
	var asJSON bool
	var fts string

	cmd := &cobra.Command{
		Use:   "rows",
		Short: "Print the flattened requirement rows",
		Long: `Print one line per requirement with its key, title, topic chain and tags.
The same filters as the browser apply: --search, --tag, --topic and --sort.

--fts matches every word against a SQLite snapshot's search index.`,
		Example: `  reqdb rows -f catalogue.json --tag urgent
  reqdb rows -c 7 --search mfa --fields title,description --json
  reqdb rows -f ReqDB-Export.sqlite --fts "password policy"`,
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
			res, _, err := a.flatten(tree)
			if err != nil {
				return err
			}
			st, err := filters.state(res, a.cfg.Browse.SearchFields)
			if err != nil {
				return err
			}
			visible := browse.Visible(res.Rows, st)

			if fts != "" {
				visible, err = ftsFilter(source, fts, visible)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeRowsJSON(out, visible)
			}
			writeRowsTable(out, visible)
			fmt.Fprintf(out, "\n%d of %d requirements\n", len(visible), len(res.Rows))
			return nil
		},
	}

	addSourceFlags(cmd, &src)
	addFilterFlags(cmd, &filters)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print rows as JSON")
	cmd.Flags().StringVar(&fts, "fts", "", "Full-text query (SQLite snapshots only)")
	return cmd
}

// ftsFilter keeps the rows whose requirement matches query in the snapshot's
// full-text index.
func ftsFilter(source datasource.DataSource, query string, in []model.Row) ([]model.Row, error) {
	if source.Type != datasource.SourceTypeSQLite {
		return nil, fmt.Errorf("--fts needs a SQLite snapshot, got %s", source.Type)
	}
	reader, err := datasource.NewSQLiteReader(source)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	ids, err := reader.SearchRequirements(query)
	if err != nil {
		return nil, err
	}
	hit := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		hit[id] = struct{}{}
	}
	out := in[:0:0]
	for _, r := range in {
		if _, ok := hit[r.ID]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func writeRowsJSON(w io.Writer, rs []model.Row) error {
	if rs == nil {
		rs = []model.Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rs)
}

func writeRowsTable(w io.Writer, rs []model.Row) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tTITLE\tTOPIC\tTAGS")
	for _, r := range rs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			keyColor.Sprint(r.Key),
			oneLine(r.Title),
			r.Breadcrumb(),
			strings.Join(r.Tags, ","),
		)
	}
	tw.Flush()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
