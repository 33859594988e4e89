package main

import (
	"fmt"

	"github.com/openmined/decsync/internal/decsync"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newCheckCmd())
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the DecSync directory has a supported version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			if err := decsync.CheckInfo(afero.NewOsFs(), cfg.DecSyncDir); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s (device %s)\n", green.Render("ok"), cfg.DecSyncDir, cfg.DeviceID)
			return err
		},
	}
}
