package decsync

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
)

// SupportedVersion is the only DecSync directory version this module reads.
const SupportedVersion = 1

var (
	ErrInvalidInfo        = errors.New("invalid .decsync-info")
	ErrUnsupportedVersion = errors.New("unsupported decsync version")
)

type dirInfo struct {
	Version *int `json:"version"`
}

// CheckInfo validates the .decsync-info file of a DecSync directory.
// A missing file is accepted as the supported version; nothing is written.
func CheckInfo(fsys afero.Fs, dir string) error {
	path := filepath.Join(dir, decsyncInfoFile)

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	var info dirInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidInfo, path, err)
	}
	if info.Version == nil {
		return fmt.Errorf("%w: %s: no version", ErrInvalidInfo, path)
	}
	if *info.Version != SupportedVersion {
		return fmt.Errorf("%w: %s: version %d", ErrUnsupportedVersion, path, *info.Version)
	}

	return nil
}
