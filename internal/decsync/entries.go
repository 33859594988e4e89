package decsync

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Entry is one key/value pair stored for an entity by a device.
type Entry struct {
	// Path holds the decoded segments of the entity id.
	Path  []string
	Key   string
	Value string
}

// EntityID joins the entry path with "/".
func (e Entry) EntityID() string {
	return strings.Join(e.Path, "/")
}

// Entries is the content of a device's stored entries.
type Entries struct {
	Entries []Entry
	Skipped []*RecordError
}

// Entities lists the entity ids stored by device below root, in lexical path
// order. The info entity is not included.
func (r *Resolver) Entities(root, device string) ([][]string, error) {
	base := filepath.Join(NewLayout(root).StoredEntriesDir(), EncodeSegment(device))

	if ok, err := afero.DirExists(r.fs, base); err != nil || !ok {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", base, err)
		}
		return nil, nil
	}

	var entities [][]string
	err := afero.Walk(r.fs, base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == base {
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		encoded := strings.Split(filepath.ToSlash(rel), "/")
		if len(encoded) == 1 && encoded[0] == EncodeSegment(InfoEntity) {
			return nil
		}

		segments := make([]string, 0, len(encoded))
		for _, seg := range encoded {
			dec, err := DecodeSegment(seg)
			if err != nil {
				r.logger.Warn("skipping stored entry", "path", path, "error", err)
				return nil
			}
			segments = append(segments, dec)
		}
		entities = append(entities, segments)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list stored entries in %s: %w", base, err)
	}
	return entities, nil
}

// LoadEntries reads every stored entry of device below root except the info
// entity. Keys may be null. Lines that fail to parse, including null values,
// are logged and skipped. Files that fail to read are logged and the walk
// continues; the first such error is returned with the entries read.
func (r *Resolver) LoadEntries(root, device string) (Entries, error) {
	var out Entries

	entities, err := r.Entities(root, device)
	if err != nil {
		return out, err
	}

	layout := NewLayout(root)
	var firstErr error
	for _, segments := range entities {
		path := layout.SegmentsPath(device, segments)
		err := r.readLines(path, func(lineNum int, line []byte) {
			rec, err := ParseEntryRecord(line)
			if err != nil {
				out.Skipped = append(out.Skipped, &RecordError{Line: lineNum, Err: err})
				r.logger.Warn("skipping stored entry line", "path", path, "line", lineNum, "error", err)
				return
			}
			out.Entries = append(out.Entries, Entry{Path: segments, Key: rec.Key, Value: rec.Value})
		})
		if err != nil {
			r.logger.Warn("stored entry read incomplete", "path", path, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return out, firstErr
}
