package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/openmined/decsync/internal/collection"
	"github.com/openmined/decsync/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newCollectionsCmd())
}

func newCatalog(cfg *config.Config, opts ...collection.Option) *collection.Catalog {
	opts = append([]collection.Option{collection.WithLogger(slog.Default())}, opts...)
	return collection.New(cfg.DecSyncDir, cfg.DeviceID, opts...)
}

func newCollectionsCmd() *cobra.Command {
	var all bool
	var format string

	cmd := &cobra.Command{
		Use:   "collections [calendars|contacts|feeds]",
		Short: "List collections with their resolved names",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			catalog := newCatalog(cfg, collection.WithIncludeDeleted(all))
			if err := catalog.Check(); err != nil {
				return err
			}

			var collections []*collection.Collection
			if len(args) == 1 {
				t, err := collection.ParseSyncType(args[0])
				if err != nil {
					return err
				}
				collections, err = catalog.List(cmd.Context(), t)
				if err != nil {
					return err
				}
			} else {
				collections, err = catalog.All(cmd.Context())
				if err != nil {
					return err
				}
			}

			if format != formatText {
				if collections == nil {
					collections = []*collection.Collection{}
				}
				return writeStructured(cmd.OutOrStdout(), format, collections)
			}

			if len(collections) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), gray.Render("no collections found in "+cfg.DecSyncDir))
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "REMOTE ID\tNAME\tCOLOR\tPEER")
			for _, c := range collections {
				name := c.DisplayName
				if c.Deleted {
					name += " (deleted)"
				}
				peer := c.Peer
				if peer == "" {
					peer = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", cyan.Render(c.RemoteID), name, c.Color, gray.Render(peer))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "include collections marked as deleted")
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or yaml")
	return cmd
}
