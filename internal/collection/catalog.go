package collection

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/openmined/decsync/internal/decsync"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// Catalog enumerates the collections of a DecSync directory on behalf of the
// local device and resolves their metadata from the most recent peer.
type Catalog struct {
	dir            string
	device         string
	fs             afero.Fs
	logger         *slog.Logger
	resolver       *decsync.Resolver
	includeDeleted bool
	concurrency    int
}

type Option func(*Catalog)

func WithFs(fsys afero.Fs) Option {
	return func(c *Catalog) {
		c.fs = fsys
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// WithIncludeDeleted keeps collections whose info marks them as deleted.
func WithIncludeDeleted(include bool) Option {
	return func(c *Catalog) {
		c.includeDeleted = include
	}
}

// WithConcurrency bounds how many collections are resolved at once.
func WithConcurrency(n int) Option {
	return func(c *Catalog) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func New(dir, device string, opts ...Option) *Catalog {
	c := &Catalog{
		dir:         dir,
		device:      device,
		fs:          afero.NewOsFs(),
		logger:      slog.Default(),
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.resolver = decsync.NewResolver(decsync.WithFs(c.fs), decsync.WithLogger(c.logger))
	return c
}

func (c *Catalog) Dir() string {
	return c.dir
}

func (c *Catalog) Device() string {
	return c.device
}

// Check validates the DecSync directory version.
func (c *Catalog) Check() error {
	return decsync.CheckInfo(c.fs, c.dir)
}

// Root returns the on-disk root of a collection.
func (c *Catalog) Root(t SyncType, name string) string {
	return decsync.CollectionRoot(c.dir, string(t), name)
}

// Names lists the collection names of a sync type in directory order.
func (c *Catalog) Names(t SyncType) ([]string, error) {
	typeDir := filepath.Join(c.dir, decsync.EncodeSegment(string(t)))

	entries, err := afero.ReadDir(c.fs, typeDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s collections: %w", t, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name, err := decsync.DecodeSegment(entry.Name())
		if err != nil {
			c.logger.Warn("skipping collection directory", "type", t, "dir", entry.Name(), "error", err)
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// Get resolves a single collection by remote id. Deleted collections are
// returned regardless of WithIncludeDeleted.
func (c *Catalog) Get(remoteID string) (*Collection, error) {
	t, name, err := ParseRemoteID(remoteID)
	if err != nil {
		return nil, err
	}

	ok, err := afero.DirExists(c.fs, c.Root(t, name))
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", remoteID, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, remoteID)
	}

	return c.resolve(t, name), nil
}

// Peers returns the device markers of a collection in directory order.
func (c *Catalog) Peers(remoteID string) ([]decsync.PeerMarker, error) {
	t, name, err := ParseRemoteID(remoteID)
	if err != nil {
		return nil, err
	}
	return c.resolver.ScanPeers(c.Root(t, name))
}

// Latest returns the peer the metadata of a collection is resolved from.
func (c *Catalog) Latest(remoteID string) (decsync.PeerMarker, bool, error) {
	t, name, err := ParseRemoteID(remoteID)
	if err != nil {
		return decsync.PeerMarker{}, false, err
	}
	peer, ok := c.resolver.FindLatestPeer(c.Root(t, name), c.device)
	return peer, ok, nil
}

// List resolves every collection of a sync type, sorted by remote id.
func (c *Catalog) List(ctx context.Context, t SyncType) ([]*Collection, error) {
	names, err := c.Names(t)
	if err != nil {
		return nil, err
	}

	resolved := make([]*Collection, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			resolved[i] = c.resolve(t, name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	collections := make([]*Collection, 0, len(resolved))
	for _, coll := range resolved {
		if coll.Deleted && !c.includeDeleted {
			c.logger.Debug("skipping deleted collection", "collection", coll.RemoteID)
			continue
		}
		collections = append(collections, coll)
	}

	slices.SortFunc(collections, func(a, b *Collection) int {
		return strings.Compare(a.RemoteID, b.RemoteID)
	})
	return collections, nil
}

// All lists the collections of every sync type.
func (c *Catalog) All(ctx context.Context) ([]*Collection, error) {
	var all []*Collection
	for _, t := range OrderedSyncTypes() {
		collections, err := c.List(ctx, t)
		if err != nil {
			return nil, err
		}
		all = append(all, collections...)
	}
	return all, nil
}

func (c *Catalog) resolve(t SyncType, name string) *Collection {
	remoteID := RemoteID(t, name)
	res := c.resolver.Resolve(c.Root(t, name), c.device, decsync.InfoEntity, map[string]string{
		"name": name,
	})
	if res.Skipped > 0 || res.Err != nil {
		c.logger.Warn("collection info incomplete", "collection", remoteID, "peer", res.Peer, "skipped", res.Skipped, "error", res.Err)
	}

	return &Collection{
		Type:        t,
		Name:        name,
		RemoteID:    remoteID,
		DisplayName: res.Values["name"],
		Color:       res.Values["color"],
		Deleted:     res.Values["deleted"] == "true",
		ReadOnly:    true,
		MimeTypes:   t.MimeTypes(),
		Peer:        res.Peer,
		LastStored:  res.LastStored,
		Info:        res.Values,
	}
}
