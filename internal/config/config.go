package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/gofrs/flock"
	"github.com/openmined/decsync/internal/decsync"
	"github.com/openmined/decsync/internal/utils"
)

var (
	home, _            = os.UserHomeDir()
	DefaultConfigPath  = filepath.Join(home, ".decsync", "config.json")
	DefaultLogFilePath = filepath.Join(home, ".decsync", "logs", "decsync.log")
	DefaultAppName     = "decsync"
)

var ErrNoDecSyncDir = errors.New("decsync directory not set")

// Config holds the settings that must survive restarts: where the DecSync
// directory lives and which device this process writes as.
type Config struct {
	DecSyncDir string `json:"decsync_dir"`
	AppName    string `json:"app_name"`
	DeviceID   string `json:"device_id"`
	Path       string `json:"-"`
}

// Validate normalizes paths and fills defaults. The device id is derived
// from the app name when unset.
func (c *Config) Validate() error {
	if c.DecSyncDir == "" {
		return ErrNoDecSyncDir
	}

	dir, err := utils.ResolvePath(c.DecSyncDir)
	if err != nil {
		return fmt.Errorf("decsync dir: %w", err)
	}
	if !utils.DirExists(dir) {
		return fmt.Errorf("decsync dir %s: not a directory", dir)
	}
	c.DecSyncDir = dir

	if c.AppName == "" {
		c.AppName = DefaultAppName
	}

	if c.DeviceID == "" {
		id, err := decsync.DeviceID(c.AppName)
		if err != nil {
			return fmt.Errorf("device id: %w", err)
		}
		c.DeviceID = id
	}

	if c.Path != "" {
		path, err := utils.ResolvePath(c.Path)
		if err != nil {
			return fmt.Errorf("config path: %w", err)
		}
		c.Path = path
	}

	return nil
}

// Save writes the config to c.Path. Concurrent writers are serialized with a
// lock file next to the config.
func (c *Config) Save() error {
	if c.Path == "" {
		return errors.New("config path not set")
	}
	if err := utils.EnsureParent(c.Path); err != nil {
		return err
	}

	lock := flock.New(c.Path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock config: %w", err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	tmp := c.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.Path)
}

func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.Path = path
	return &cfg, nil
}
