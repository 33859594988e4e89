package watch

import (
	"path/filepath"
	"strings"

	"github.com/openmined/decsync/internal/collection"
	"github.com/openmined/decsync/internal/decsync"
)

// RefreshTarget maps a changed file below dir to the remote id of the
// collection whose metadata it can affect.
//
//	<dir>/<type>/<collection>/info/<device>/last-stored-entry
//	<dir>/<type>/<collection>/stored-entries/<device>/info
func RefreshTarget(dir, path string) (string, bool) {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 5 || !decsync.IsMetadataPath(parts[2:]) {
		return "", false
	}

	typ, err := decsync.DecodeSegment(parts[0])
	if err != nil {
		return "", false
	}
	t, err := collection.ParseSyncType(typ)
	if err != nil || string(t) != typ {
		return "", false
	}
	name, err := decsync.DecodeSegment(parts[1])
	if err != nil {
		return "", false
	}

	return collection.RemoteID(t, name), true
}
