// Package decsync reads DecSync directories without modifying them.
//
// A DecSync collection root holds one directory per synchronizing device:
//
//	<root>/info/<device>/last-stored-entry      # ISO-8601 UTC timestamp
//	<root>/stored-entries/<device>/<entity>     # JSON lines: [stamp, key, value, ...]
//
// The Resolver picks the device with the most recent last-stored-entry,
// ignoring the local device, and loads that device's snapshot of an entity.
// Missing files and malformed content degrade to less data, never to a
// failure of the whole lookup.
package decsync
