package decsync

import (
	"path/filepath"
)

const (
	infoDir          = "info"
	storedEntriesDir = "stored-entries"
	markerFile       = "last-stored-entry"
	decsyncInfoFile  = ".decsync-info"

	// InfoEntity is the entity holding a collection's static metadata (name, color, ...).
	InfoEntity = "info"
)

// Layout maps device and entity identifiers to paths below a collection root.
//
//	<root>/info/<device>/last-stored-entry
//	<root>/stored-entries/<device>/<entity...>
type Layout struct {
	Root string
}

func NewLayout(root string) Layout {
	return Layout{Root: root}
}

func (l Layout) InfoDir() string {
	return filepath.Join(l.Root, infoDir)
}

func (l Layout) StoredEntriesDir() string {
	return filepath.Join(l.Root, storedEntriesDir)
}

func (l Layout) MarkerPath(device string) string {
	return filepath.Join(l.InfoDir(), EncodeSegment(device), markerFile)
}

// EntryPath returns the snapshot file of entity as stored by device.
// Entity ids may contain "/" separated segments; each one is encoded.
func (l Layout) EntryPath(device, entity string) string {
	return l.SegmentsPath(device, splitEntity(entity))
}

// SegmentsPath is EntryPath for an entity id already split into segments.
func (l Layout) SegmentsPath(device string, segments []string) string {
	parts := []string{l.StoredEntriesDir(), EncodeSegment(device)}
	for _, seg := range segments {
		parts = append(parts, EncodeSegment(seg))
	}
	return filepath.Join(parts...)
}

// CollectionRoot returns the root of a collection inside a DecSync directory.
func CollectionRoot(dir, syncType, collection string) string {
	return filepath.Join(dir, EncodeSegment(syncType), EncodeSegment(collection))
}

// IsMetadataPath reports whether a path relative to a collection root, split
// into encoded segments, is a file that can change the collection's resolved
// metadata: a device marker or a device's info snapshot.
func IsMetadataPath(segments []string) bool {
	if len(segments) != 3 {
		return false
	}
	switch segments[0] {
	case infoDir:
		return segments[2] == markerFile
	case storedEntriesDir:
		return segments[2] == EncodeSegment(InfoEntity)
	}
	return false
}
