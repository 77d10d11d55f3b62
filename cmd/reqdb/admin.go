package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/reqdb/pkg/client"
	"github.com/vanderheijden86/reqdb/pkg/export"
	"github.com/vanderheijden86/reqdb/pkg/loader"
	"github.com/vanderheijden86/reqdb/pkg/model"
)

func cataloguesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "catalogues",
		Short: "List the catalogues on the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := a.client().ListCatalogues(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list catalogues: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(cats) == 0 {
				fmt.Fprintln(out, "No catalogues found")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tDESCRIPTION")
			for _, c := range cats {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", keyColor.Sprint(c.ID), oneLine(c.Title), shorten(oneLine(c.Description), 60))
			}
			return tw.Flush()
		},
	}
}

func deleteCmd(a *app) *cobra.Command {
	var force, yes bool

	cmd := &cobra.Command{
		Use:   "delete <kind> <id>",
		Short: "Delete a catalogue, topic, requirement, tag or other entity",
		Long: `Delete an entity on the backend. kind is one of: ` + kindList() + `.

--force also removes dependent rows (for example a topic's requirements).
Without --yes the deletion is confirmed interactively.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseEntityKind(args[0])
			if err != nil {
				return err
			}
			id, err := parseID(args[1])
			if err != nil {
				return err
			}

			if !yes {
				if !export.IsTerminal() {
					return fmt.Errorf("refusing to delete %s %d without --yes", kind, id)
				}
				confirmed := false
				prompt := huh.NewConfirm().
					Title(fmt.Sprintf("Delete %s %d?", kind, id)).
					Affirmative("Delete").
					Negative("Cancel").
					Value(&confirmed)
				if err := prompt.Run(); err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Canceled")
					return nil
				}
			}

			if err := a.client().Delete(cmd.Context(), kind, id, force); err != nil {
				if client.IsNotFound(err) {
					return fmt.Errorf("%s %d not found", kind, id)
				}
				return fmt.Errorf("failed to delete %s %d: %w", kind, id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %s %d\n", okMark, kind, id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Also delete dependent entities")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func moveTopicCmd(a *app) *cobra.Command {
	var catalogueID int

	cmd := &cobra.Command{
		Use:   "move-topic <topic-id> <parent-id|root>",
		Short: "Move a topic under another parent",
		Long: `Re-parent a topic. The move is checked against the catalogue first and
rejected if the topic would end up below itself.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			topicID, err := parseID(args[0])
			if err != nil {
				return err
			}
			var parent *int
			if !strings.EqualFold(args[1], "root") {
				p, err := parseID(args[1])
				if err != nil {
					return err
				}
				parent = &p
			}

			c := a.client()
			cat, err := c.GetCatalogue(cmd.Context(), catalogueID)
			if err != nil {
				return fmt.Errorf("failed to load catalogue %d: %w", catalogueID, err)
			}
			if err := loader.CheckParent(cat, topicID, parent); err != nil {
				return err
			}

			var parentValue any
			if parent != nil {
				parentValue = *parent
			}
			if err := c.Update(cmd.Context(), model.KindTopic, topicID, map[string]any{"parentId": parentValue}); err != nil {
				return fmt.Errorf("failed to move topic %d: %w", topicID, err)
			}

			target := "the top level"
			if parent != nil {
				target = "topic " + strconv.Itoa(*parent)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Moved topic %d to %s\n", okMark, topicID, target)
			return nil
		},
	}

	cmd.Flags().IntVarP(&catalogueID, "catalogue", "c", 0, "Catalogue containing the topic")
	_ = cmd.MarkFlagRequired("catalogue")
	return cmd
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func kindList() string {
	kinds := model.AllKinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ", ")
}

func shorten(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
