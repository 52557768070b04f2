package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pesio-ai/be-approval-chains/internal/app"
	"github.com/pesio-ai/be-approval-chains/internal/orggraph"
)

// relintSource reloads the graph and re-lints it so directory problems show
// up in the log as soon as the file is saved.
type relintSource struct {
	app *app.App
}

func (s relintSource) Reload() error {
	if err := s.app.Source.Reload(); err != nil {
		return err
	}
	report, err := lintDirectory(s.app)
	if err != nil {
		return err
	}
	fallbacks := 0
	for _, row := range report.Rows {
		if row.Fallback {
			fallbacks++
		}
	}
	ev := s.app.Log.Info().
		Int("chains", len(report.Rows)).
		Int("fallback_chains", fallbacks)
	if len(report.Dangling) > 0 {
		ev = ev.Strs("dangling_reports_to", report.Dangling)
	}
	ev.Msg("directory re-linted")
	return nil
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reload the org graph whenever the directory file changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if a.Source == nil {
				return fmt.Errorf("watch needs a directory file (--directory or APPROVAL_DIRECTORY_FILE)")
			}
			reloader, err := orggraphReloader(a)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- reloader.Run(ctx)
			}()
			a.Log.Info().Str("path", a.Source.Path).Msg("watching directory file")

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-quit:
				a.Log.Info().Msg("shutting down watcher")
			case err := <-done:
				return err
			}
			cancel()
			err = <-done
			reloads, fails := reloader.Counts()
			a.Log.Info().Int("reloads", reloads).Int("failed_reloads", fails).Msg("watcher stopped")
			return err
		},
	}
}

func orggraphReloader(a *app.App) (*orggraph.Reloader, error) {
	return orggraph.NewReloader(relintSource{app: a}, a.Source.Path, a.Config.Directory.ReloadDebounce, a.Log)
}
