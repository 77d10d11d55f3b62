package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/reqdb/internal/datasource"
	"github.com/vanderheijden86/reqdb/pkg/browse"
	"github.com/vanderheijden86/reqdb/pkg/debug"
	"github.com/vanderheijden86/reqdb/pkg/loader"
	"github.com/vanderheijden86/reqdb/pkg/rows"
	"github.com/vanderheijden86/reqdb/pkg/ui"
	"github.com/vanderheijden86/reqdb/pkg/watcher"
)

// EnvAutoClose quits the TUI after the given number of milliseconds. Used
// by automated tests.
const EnvAutoClose = "REQDB_TUI_AUTOCLOSE_MS"

func browseCmd(a *app) *cobra.Command {
	var src sourceFlags
	var watch bool

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Open the interactive requirements browser",
		Long: `Open the interactive browser on a catalogue. Rows can be searched, filtered
by tag and topic, marked and exported without leaving the terminal.

With --watch the snapshot file is reloaded whenever it changes; search,
filters and marks survive the reload.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := a.resolveSource(src)
			if err != nil {
				return err
			}
			opts, err := a.browseOptions(source, cmd)
			if err != nil {
				return err
			}

			if watch {
				if !source.IsFile() {
					return fmt.Errorf("--watch needs a snapshot file, not an API catalogue")
				}
				w, err := watcher.NewWatcher(source.Path, watcher.WithOnError(func(err error) {
					debug.Log("watcher: %v", err)
				}))
				if err != nil {
					return err
				}
				if err := w.Start(); err != nil {
					return err
				}
				defer w.Stop()
				opts.Watcher = w
			}

			theme := ui.ThemeFor(lipgloss.DefaultRenderer(), a.cfg.UI.Theme)
			return runTUIProgram(ui.NewModel(opts, theme))
		},
	}

	addSourceFlags(cmd, &src)
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload when the snapshot file changes")
	return cmd
}

func (a *app) browseOptions(source datasource.DataSource, cmd *cobra.Command) (ui.Options, error) {
	order, err := rows.ParseOrder(a.cfg.Browse.Order)
	if err != nil {
		return ui.Options{}, err
	}
	fields, err := browse.ParseFields(a.cfg.Browse.SearchFields)
	if err != nil {
		return ui.Options{}, err
	}
	var headers map[int]string
	if len(a.cfg.Browse.ExtraHeaders) > 0 {
		headers = a.cfg.Browse.ExtraHeaders
	}

	// Warnings would scribble over the alt screen; they go to the debug log.
	loadOpts := a.loadOptions(cmd.ErrOrStderr())
	loadOpts.WarningHandler = func(msg string) { debug.Log("load warning: %s", msg) }

	return ui.Options{
		Source: source.String(),
		Load: func(ctx context.Context) (*loader.Tree, error) {
			return datasource.Load(ctx, source, loadOpts)
		},
		Order:        order,
		Headers:      headers,
		SearchFields: fields,
		OutDir:       a.cfg.Export.OutputDir,
	}, nil
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	if ms, err := strconv.Atoi(os.Getenv(EnvAutoClose)); err == nil && ms > 0 {
		go func() {
			timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
			defer timer.Stop()

			select {
			case <-runDone:
				return
			case <-timer.C:
			}
			p.Quit()
		}()
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
