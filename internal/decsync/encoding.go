package decsync

import (
	"net/url"
	"strings"
)

// EncodeSegment percent-encodes an identifier for use as a single path segment.
// Path separators are escaped, and a leading "." becomes "%2E" so that encoded
// names never collide with hidden or relative directory entries.
func EncodeSegment(s string) string {
	enc := url.PathEscape(s)
	if strings.HasPrefix(enc, ".") {
		enc = "%2E" + enc[1:]
	}
	return enc
}

// DecodeSegment reverses EncodeSegment.
func DecodeSegment(s string) (string, error) {
	return url.PathUnescape(s)
}

// splitEntity splits a "/" separated entity id into non-empty segments.
func splitEntity(entity string) []string {
	parts := strings.Split(entity, "/")
	segments := parts[:0]
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}
