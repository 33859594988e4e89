package decsync

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Resolver picks the most recently active peer of a collection and reads its
// snapshots. It never writes to the DecSync tree and keeps no state between
// calls, so results always reflect what is on disk at call time.
type Resolver struct {
	fs     afero.Fs
	logger *slog.Logger
}

type Option func(*Resolver)

// WithFs sets the filesystem used for listing and reading. Defaults to the OS filesystem.
func WithFs(fsys afero.Fs) Option {
	return func(r *Resolver) {
		r.fs = fsys
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		fs:     afero.NewOsFs(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Snapshot is the key/value state loaded from one snapshot entry.
type Snapshot struct {
	Values  map[string]string
	Skipped []*RecordError
}

// Resolution is the outcome of resolving an entity's metadata.
type Resolution struct {
	// Peer is the device the values were loaded from; empty when Found is false.
	Peer       string
	Found      bool
	LastStored time.Time
	Values     map[string]string
	// Skipped is the number of snapshot lines that failed to parse.
	Skipped int
	// Err is a recoverable error hit while scanning or reading.
	Err error
}

// ScanPeers lists the device directories under <root>/info in directory
// order, each with its parsed last-update marker. A missing info directory
// yields no peers.
func (r *Resolver) ScanPeers(root string) ([]PeerMarker, error) {
	layout := NewLayout(root)

	entries, err := afero.ReadDir(r.fs, layout.InfoDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list devices in %s: %w", layout.InfoDir(), err)
	}

	markers := make([]PeerMarker, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		device, err := DecodeSegment(name)
		if err != nil {
			r.logger.Warn("skipping device directory", "dir", name, "error", err)
			continue
		}

		markers = append(markers, readMarker(r.fs, device, layout.MarkerPath(device)))
	}

	return markers, nil
}

// FindLatestPeer returns the device other than ownDevice whose marker holds
// the greatest timestamp. Devices without a readable marker never win.
func (r *Resolver) FindLatestPeer(root, ownDevice string) (PeerMarker, bool) {
	markers, err := r.ScanPeers(root)
	if err != nil {
		r.logger.Warn("peer scan failed", "root", root, "error", err)
		return PeerMarker{}, false
	}

	candidates := excludeDevice(markers, ownDevice)
	for _, m := range candidates {
		if m.Readable() {
			continue
		}
		var merr *MarkerError
		if errors.As(m.Err, &merr) && errors.Is(merr.Err, ErrMarkerMissing) {
			r.logger.Debug("peer has no marker", "device", m.ID, "path", m.Path)
		} else {
			r.logger.Warn("peer marker unreadable", "device", m.ID, "path", m.Path, "error", m.Err)
		}
	}

	return pickLatest(candidates)
}

// excludeDevice drops the local device from the candidate list.
func excludeDevice(markers []PeerMarker, device string) []PeerMarker {
	out := make([]PeerMarker, 0, len(markers))
	for _, m := range markers {
		if m.ID != device {
			out = append(out, m)
		}
	}
	return out
}

// pickLatest returns the readable marker with the greatest timestamp.
// Comparison is strictly greater-than, so the first one seen wins ties.
func pickLatest(markers []PeerMarker) (PeerMarker, bool) {
	var best PeerMarker
	found := false
	for _, m := range markers {
		if !m.Readable() {
			continue
		}
		if !found || m.LastStored.After(best.LastStored) {
			best = m
			found = true
		}
	}
	return best, found
}

// LoadSnapshot reads a JSON-lines snapshot entry into a key/value mapping.
// Later lines overwrite earlier ones for the same key. Malformed lines,
// including those with a null value, are logged and skipped without touching
// keys already loaded. A missing file yields an empty snapshot. On a read error the values accumulated so far
// are returned together with the error.
func (r *Resolver) LoadSnapshot(path string) (Snapshot, error) {
	snap := Snapshot{Values: make(map[string]string)}

	err := r.readLines(path, func(lineNum int, line []byte) {
		rec, err := ParseRecord(line)
		if err != nil {
			snap.Skipped = append(snap.Skipped, &RecordError{Line: lineNum, Err: err})
			r.logger.Warn("skipping snapshot line", "path", path, "line", lineNum, "error", err)
			return
		}
		snap.Values[rec.Key] = rec.Value
	})
	return snap, err
}

// readLines calls fn for every non-blank line of the file at path. A missing
// file has no lines.
func (r *Resolver) readLines(path string, fn func(lineNum int, line []byte)) error {
	f, err := r.fs.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	for lineNum := 1; ; lineNum++ {
		line, readErr := reader.ReadBytes('\n')

		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			fn(lineNum, trimmed)
		}

		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read snapshot %s: %w", path, readErr)
		}
	}
}

// Resolve finds the latest peer under root, loads its snapshot of entity and
// fills keys missing from it with defaults. defaults is not modified.
func (r *Resolver) Resolve(root, ownDevice, entity string, defaults map[string]string) Resolution {
	res := Resolution{Values: make(map[string]string, len(defaults))}

	peer, ok := r.FindLatestPeer(root, ownDevice)
	if ok {
		res.Peer = peer.ID
		res.Found = true
		res.LastStored = peer.LastStored

		snap, err := r.LoadSnapshot(NewLayout(root).EntryPath(peer.ID, entity))
		if err != nil {
			r.logger.Warn("snapshot read incomplete", "device", peer.ID, "entity", entity, "error", err)
			res.Err = err
		}
		for k, v := range snap.Values {
			res.Values[k] = v
		}
		res.Skipped = len(snap.Skipped)
	}

	for k, v := range defaults {
		if _, exists := res.Values[k]; !exists {
			res.Values[k] = v
		}
	}

	return res
}

// ResolveMetadata is Resolve reduced to its values.
func (r *Resolver) ResolveMetadata(root, ownDevice, entity string, defaults map[string]string) map[string]string {
	return r.Resolve(root, ownDevice, entity, defaults).Values
}
