package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/openmined/decsync/internal/config"
	"github.com/openmined/decsync/internal/decsync"
	"github.com/openmined/decsync/internal/utils"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	errSameDir    = errors.New("decsync directory unchanged")
	errDirMissing = errors.New("decsync directory does not exist")
	errNoDir      = errors.New("no decsync directory given, pass --dir <path>")
)

func init() {
	rootCmd.AddCommand(newConfigureCmd())
}

func newConfigureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure --dir <path>",
		Short: "Select the DecSync directory and save it to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dirFlag := cmd.Flag("dir")
			if dirFlag == nil || !dirFlag.Changed || dirFlag.Value.String() == "" {
				return errNoDir
			}

			cfg, err := readConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			// compare against the saved directory, not the --dir override
			oldDir := ""
			if saved, err := config.LoadFromFile(cfg.Path); err == nil {
				oldDir = saved.DecSyncDir
			} else if !errors.Is(err, os.ErrNotExist) {
				return err
			}
			newDir, err := utils.ResolvePath(dirFlag.Value.String())
			if err != nil {
				return err
			}
			if oldDir != "" {
				if resolved, err := utils.ResolvePath(oldDir); err == nil && resolved == newDir {
					return fmt.Errorf("%w: %s", errSameDir, newDir)
				}
			}
			if !utils.DirExists(newDir) {
				return fmt.Errorf("%w: %s", errDirMissing, newDir)
			}
			if err := decsync.CheckInfo(afero.NewOsFs(), newDir); err != nil {
				return err
			}

			cfg.DecSyncDir = newDir
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			slog.Info("decsync directory configured", "dir", cfg.DecSyncDir, "device", cfg.DeviceID, "config", cfg.Path)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", green.Render("saved"), cfg.Path)
			return err
		},
	}
}
