package decsync

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/afero"
)

var (
	ErrMarkerMissing  = errors.New("marker missing")
	ErrEmptyTimestamp = errors.New("empty timestamp")
	ErrBadTimestamp   = errors.New("unparsable timestamp")
)

// Epoch is the timestamp assigned to devices without a readable marker.
var Epoch = time.Unix(0, 0).UTC()

// Timestamps are UTC. Zone-less values are what DecSync writers produce.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// MarkerError carries enough context for callers to report an unreadable marker.
type MarkerError struct {
	Device string
	Path   string
	Err    error
}

func (e *MarkerError) Error() string {
	return fmt.Sprintf("marker %s (device %s): %v", e.Path, e.Device, e.Err)
}

func (e *MarkerError) Unwrap() error {
	return e.Err
}

// PeerMarker is a device directory together with its last-update marker.
type PeerMarker struct {
	ID         string
	Path       string
	LastStored time.Time
	// Err is a *MarkerError when the marker could not be read or parsed.
	Err error
}

func (p PeerMarker) Readable() bool {
	return p.Err == nil
}

// ParseTimestamp parses an ISO-8601 timestamp, tolerating surrounding
// whitespace and JSON quotes.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.Trim(strings.TrimSpace(s), `"`)
	if s == "" {
		return Epoch, ErrEmptyTimestamp
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return Epoch, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
}

func readMarker(fsys afero.Fs, device, path string) PeerMarker {
	marker := PeerMarker{ID: device, Path: path, LastStored: Epoch}

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = ErrMarkerMissing
		}
		marker.Err = &MarkerError{Device: device, Path: path, Err: err}
		return marker
	}

	ts, err := ParseTimestamp(string(data))
	if err != nil {
		marker.Err = &MarkerError{Device: device, Path: path, Err: err}
		return marker
	}

	marker.LastStored = ts
	return marker
}
