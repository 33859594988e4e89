package collection

// Item is one stored entry of a collection, as read from the latest peer.
type Item struct {
	// RemoteID is the entity path joined with "/", e.g. "resources/<uid>".
	RemoteID string `json:"remote_id" yaml:"remote_id"`
	Key      string `json:"key,omitempty" yaml:"key,omitempty"`
	MimeType string `json:"mime_type" yaml:"mime_type"`
	Payload  string `json:"payload" yaml:"payload"`
}

// Items lists the stored entries of a collection from the peer its metadata
// is resolved from. A collection without a readable peer has no items.
// Entries that failed to read are logged; the items read so far are returned
// together with the first read error.
func (c *Catalog) Items(remoteID string) ([]*Item, error) {
	coll, err := c.Get(remoteID)
	if err != nil {
		return nil, err
	}
	if coll.Peer == "" {
		return nil, nil
	}

	entries, err := c.resolver.LoadEntries(c.Root(coll.Type, coll.Name), coll.Peer)
	if len(entries.Skipped) > 0 {
		c.logger.Warn("collection items incomplete", "collection", remoteID, "peer", coll.Peer, "skipped", len(entries.Skipped))
	}

	mime := ""
	if types := coll.Type.MimeTypes(); len(types) > 0 {
		mime = types[0]
	}

	items := make([]*Item, 0, len(entries.Entries))
	for _, e := range entries.Entries {
		items = append(items, &Item{
			RemoteID: e.EntityID(),
			Key:      e.Key,
			MimeType: mime,
			Payload:  e.Value,
		})
	}
	c.logger.Debug("collection items", "collection", remoteID, "count", len(items))
	return items, err
}
