package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newPeersCmd())
}

type peerRow struct {
	Device     string `json:"device" yaml:"device"`
	LastStored string `json:"last_stored,omitempty" yaml:"last_stored,omitempty"`
	Own        bool   `json:"own" yaml:"own"`
	Latest     bool   `json:"latest" yaml:"latest"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newPeersCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "peers <type>/<collection>",
		Short: "List the devices of a collection and their last update",
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

			catalog := newCatalog(cfg)
			if _, err := catalog.Get(args[0]); err != nil {
				return err
			}
			markers, err := catalog.Peers(args[0])
			if err != nil {
				return err
			}
			latest, found, err := catalog.Latest(args[0])
			if err != nil {
				return err
			}

			rows := make([]peerRow, 0, len(markers))
			for _, m := range markers {
				row := peerRow{
					Device: m.ID,
					Own:    m.ID == cfg.DeviceID,
					Latest: found && m.ID == latest.ID,
				}
				if m.Readable() {
					row.LastStored = m.LastStored.Format("2006-01-02T15:04:05Z07:00")
				} else {
					row.Error = m.Err.Error()
				}
				rows = append(rows, row)
			}

			if format != formatText {
				return writeStructured(cmd.OutOrStdout(), format, rows)
			}

			if len(rows) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), gray.Render("no devices in "+args[0]))
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DEVICE\tLAST UPDATE\t")
			for i, row := range rows {
				when := red.Render("unreadable")
				if row.Error == "" {
					when = humanize.Time(markers[i].LastStored)
				}
				note := ""
				switch {
				case row.Own:
					note = gray.Render("(this device)")
				case row.Latest:
					note = green.Render("(latest)")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", row.Device, when, note)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or yaml")
	return cmd
}

