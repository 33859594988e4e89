package decsync

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

func TestCheckInfo(t *testing.T) {
	fsys := afero.NewOsFs()

	t.Run("missing", func(t *testing.T) {
		assert.NoError(t, CheckInfo(fsys, t.TempDir()))
	})

	t.Run("supported", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, decsyncInfoFile), `{"version": 1}`)
		assert.NoError(t, CheckInfo(fsys, dir))
	})

	t.Run("invalid json", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, decsyncInfoFile), `{"version":`)
		assert.ErrorIs(t, CheckInfo(fsys, dir), ErrInvalidInfo)
	})

	t.Run("no version", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, decsyncInfoFile), `{}`)
		assert.ErrorIs(t, CheckInfo(fsys, dir), ErrInvalidInfo)
	})

	t.Run("unsupported", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, decsyncInfoFile), `{"version": 2}`)
		assert.ErrorIs(t, CheckInfo(fsys, dir), ErrUnsupportedVersion)
	})
}
