package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "info <type>/<collection>",
		Short: "Print the resolved metadata of a collection",
		Example: `  decsync info calendars/work
  decsync info contacts/friends --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			coll, err := newCatalog(cfg).Get(args[0])
			if err != nil {
				return err
			}

			if format != formatText {
				return writeStructured(cmd.OutOrStdout(), format, coll)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", bold.Render("Collection"), cyan.Render(coll.RemoteID))
			if coll.Peer != "" {
				fmt.Fprintf(out, "%s %s (%s)\n", bold.Render("Peer"), coll.Peer, coll.LastStored.Format("2006-01-02T15:04:05Z07:00"))
			} else {
				fmt.Fprintf(out, "%s %s\n", bold.Render("Peer"), gray.Render("none, using defaults"))
			}
			keys := make([]string, 0, len(coll.Info))
			for k := range coll.Info {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "  %s = %s\n", k, coll.Info[k])
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or yaml")
	return cmd
}
