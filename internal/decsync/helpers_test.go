package decsync

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeMarker(t *testing.T, root, device, ts string) {
	t.Helper()
	writeFile(t, NewLayout(root).MarkerPath(device), ts)
}

func writeEntry(t *testing.T, root, device, entity string, lines ...string) {
	t.Helper()
	writeFile(t, NewLayout(root).EntryPath(device, entity), strings.Join(lines, "\n")+"\n")
}

var (
	errOpenDenied = errors.New("open denied")
	errReadFailed = errors.New("read failed")
)

// faultyFs fails Open with openErr when set. Otherwise files it opens fail
// every read after the first.
type faultyFs struct {
	afero.Fs
	openErr error
}

func (f faultyFs) Open(name string) (afero.File, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	file, err := f.Fs.Open(name)
	if err != nil {
		return nil, err
	}
	return &faultyFile{File: file}, nil
}

type faultyFile struct {
	afero.File
	reads int
}

func (f *faultyFile) Read(p []byte) (int, error) {
	f.reads++
	if f.reads > 1 {
		return 0, errReadFailed
	}
	return f.File.Read(p)
}
