package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/openmined/decsync/internal/collection"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newItemsCmd())
}

func newItemsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "items <type>/<collection>",
		Short: "List the stored entries of a collection from its latest peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			items, err := newCatalog(cfg).Items(args[0])
			if err != nil && items == nil {
				return err
			}
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), red.Render("warning: ")+err.Error())
			}

			if format != formatText {
				if items == nil {
					items = []*collection.Item{}
				}
				return writeStructured(cmd.OutOrStdout(), format, items)
			}

			if len(items) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), gray.Render("no items in "+args[0]))
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "REMOTE ID\tKEY\tSIZE\tPREVIEW")
			for _, it := range items {
				key := it.Key
				if key == "" {
					key = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", cyan.Render(it.RemoteID), key,
					humanize.Bytes(uint64(len(it.Payload))), gray.Render(preview(it.Payload, 40)))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or yaml")
	return cmd
}

// preview returns the first line of s cut to n runes.
func preview(s string, n int) string {
	s, _, _ = strings.Cut(s, "\n")
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "…"
	}
	return s
}
