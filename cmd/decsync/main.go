package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/openmined/decsync/internal/config"
	"github.com/openmined/decsync/internal/utils"
	"github.com/openmined/decsync/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	home, _        = os.UserHomeDir()
	configFileName = "config"
	logLevel       = new(slog.LevelVar)
)

var rootCmd = &cobra.Command{
	Use:           "decsync",
	Short:         "Read DecSync collections and their metadata",
	Version:       version.Detailed(),
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			logLevel.Set(slog.LevelDebug)
		}
	},
}

func init() {
	addPersistentFlags(rootCmd)
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "decsync config file")
	cmd.PersistentFlags().StringP("dir", "d", "", "DecSync directory")
	cmd.PersistentFlags().String("app", config.DefaultAppName, "application name used to derive the device id")
	cmd.PersistentFlags().String("device", "", "local device id (derived from hostname, user and app when empty)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
}

func main() {
	logLevel.Set(slog.LevelInfo)
	logger, closer := utils.NewLogger(utils.LogOptions{
		Level:      logLevel,
		File:       config.DefaultLogFilePath,
		MaxSizeMB:  10,
		MaxBackups: 3,
	})
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, red.Render("Error: ")+err.Error())
		closer.Close()
		os.Exit(1)
	}
}

// readConfig merges the config file, environment and flags without validating.
func readConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()

	configPath := resolveConfigPath(cmd)
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !enoent && !notFound {
			return nil, fmt.Errorf("config read '%s': %w", configPath, err)
		}
	}

	v.SetEnvPrefix("DECSYNC")
	v.AutomaticEnv()
	_ = v.BindEnv("decsync_dir", "DECSYNC_DIR")
	_ = v.BindEnv("app_name", "DECSYNC_APP")
	_ = v.BindEnv("device_id", "DECSYNC_DEVICE")

	for key, flag := range map[string]string{
		"decsync_dir": "dir",
		"app_name":    "app",
		"device_id":   "device",
	} {
		if f := cmd.Flag(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	if v.GetString("app_name") == "" {
		v.Set("app_name", config.DefaultAppName)
	}

	return &config.Config{
		Path:       configPath,
		DecSyncDir: v.GetString("decsync_dir"),
		AppName:    v.GetString("app_name"),
		DeviceID:   v.GetString("device_id"),
	}, nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := readConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrNoDecSyncDir) {
			return nil, fmt.Errorf("%w: run `decsync configure <dir>` or pass --dir", err)
		}
		return nil, err
	}
	slog.Debug("config", "path", cfg.Path, "dir", cfg.DecSyncDir, "device", cfg.DeviceID)
	return cfg, nil
}

func defaultConfigCandidates() []string {
	return []string{
		filepath.Join(home, ".decsync", configFileName+".json"),
		filepath.Join(home, ".config", "decsync", configFileName+".json"),
	}
}
