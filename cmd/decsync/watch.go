package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/openmined/decsync/internal/collection"
	"github.com/openmined/decsync/internal/watch"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func init() {
	rootCmd.AddCommand(newWatchCmd())
}

func newWatchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print collection metadata whenever a peer updates it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			catalog := newCatalog(cfg)
			if err := catalog.Check(); err != nil {
				return err
			}

			w := watch.New(cfg.DecSyncDir)
			w.SetDebounceTimeout(debounce)
			w.FilterPaths(func(path string) bool {
				_, ok := watch.RefreshTarget(cfg.DecSyncDir, path)
				return !ok
			})

			// changes made while listing are delivered after the listing
			err = runWatch(cmd.Context(), w, func() error {
				collections, err := catalog.All(cmd.Context())
				if err != nil {
					return err
				}
				for _, c := range collections {
					printCollection(cmd.OutOrStdout(), c)
				}
				return nil
			}, func(path string) {
				remoteID, ok := watch.RefreshTarget(cfg.DecSyncDir, path)
				if !ok {
					return
				}
				coll, err := catalog.Get(remoteID)
				if err != nil {
					slog.Warn("refresh failed", "collection", remoteID, "error", err)
					return
				}
				printCollection(cmd.OutOrStdout(), coll)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 250*time.Millisecond, "wait this long after the last change before refreshing")
	return cmd
}

// runWatch starts w, then runs initial, then delivers changed paths to
// onChange until ctx is done. Events raised while initial runs are queued.
func runWatch(ctx context.Context, w *watch.Watcher, initial func() error, onChange func(path string)) error {
	g, ctx := errgroup.WithContext(ctx)

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	if initial != nil {
		if err := initial(); err != nil {
			w.Stop()
			return err
		}
	}

	g.Go(func() error {
		for event := range w.Events() {
			onChange(event.Path())
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		w.Stop()
		return ctx.Err()
	})

	return g.Wait()
}

func printCollection(out io.Writer, c *collection.Collection) {
	peer := c.Peer
	if peer == "" {
		peer = "-"
	}
	fmt.Fprintf(out, "%s %s name=%q color=%q peer=%s\n",
		gray.Render(time.Now().Format(time.TimeOnly)), cyan.Render(c.RemoteID), c.DisplayName, c.Color, peer)
}
