package collection

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// SyncType is the top-level DecSync directory a collection lives in.
type SyncType string

const (
	Calendars SyncType = "calendars"
	Contacts  SyncType = "contacts"
	Feeds     SyncType = "feeds"
)

const remoteIDSep = "/"

var (
	ErrUnknownSyncType = errors.New("unknown sync type")
	ErrInvalidRemoteID = errors.New("invalid remote id")
	ErrNotFound        = errors.New("collection not found")
)

// SyncTypes is the set of sync types exposed as collections.
var SyncTypes = mapset.NewSet(Calendars, Contacts, Feeds)

var mimeTypes = map[SyncType][]string{
	Calendars: {"text/calendar", "application/x-vnd.akonadi.calendar.event", "application/x-vnd.akonadi.calendar.todo"},
	Contacts:  {"text/directory", "text/vcard"},
	Feeds:     {"application/rss+xml"},
}

func ParseSyncType(s string) (SyncType, error) {
	t := SyncType(strings.ToLower(strings.TrimSpace(s)))
	if !SyncTypes.Contains(t) {
		return "", fmt.Errorf("%w: %q", ErrUnknownSyncType, s)
	}
	return t, nil
}

// MimeTypes returns the content types of items in collections of this type.
// The first one is the type of the items themselves.
func (t SyncType) MimeTypes() []string {
	return slices.Clone(mimeTypes[t])
}

// OrderedSyncTypes returns SyncTypes in a stable order.
func OrderedSyncTypes() []SyncType {
	types := SyncTypes.ToSlice()
	slices.Sort(types)
	return types
}

// Collection is a DecSync collection with its resolved metadata.
type Collection struct {
	Type        SyncType          `json:"type" yaml:"type"`
	Name        string            `json:"name" yaml:"name"`
	RemoteID    string            `json:"remote_id" yaml:"remote_id"`
	DisplayName string            `json:"display_name" yaml:"display_name"`
	Color       string            `json:"color,omitempty" yaml:"color,omitempty"`
	Deleted     bool              `json:"deleted" yaml:"deleted"`
	ReadOnly    bool              `json:"read_only" yaml:"read_only"`
	MimeTypes   []string          `json:"mime_types" yaml:"mime_types"`
	Peer        string            `json:"peer,omitempty" yaml:"peer,omitempty"`
	LastStored  time.Time         `json:"last_stored,omitempty" yaml:"last_stored,omitempty"`
	Info        map[string]string `json:"info" yaml:"info"`
}

// RemoteID joins a sync type and collection name, e.g. "calendars/work".
func RemoteID(t SyncType, name string) string {
	return string(t) + remoteIDSep + name
}

// ParseRemoteID splits a remote id at its first separator. The collection
// name may itself contain separators.
func ParseRemoteID(id string) (SyncType, string, error) {
	typ, name, ok := strings.Cut(id, remoteIDSep)
	if !ok || name == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRemoteID, id)
	}
	t, err := ParseSyncType(typ)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrInvalidRemoteID, err)
	}
	return t, name, nil
}
