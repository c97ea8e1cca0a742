// Package kvkeys defines the key schema for the Redis layer this
// bridge uses as a cross-goroutine cache: the per-zone now-playing
// snapshot a reattaching admin client can read without going through
// a zone goroutine (see internal/snapshot). Keys live in a flat
// "prefix:id" namespace; every key format string is centralized here
// rather than inlined at call sites.
package kvkeys

// ZoneSnapshot caches the last outbound-event-derived playback
// snapshot for a zone.
func ZoneSnapshot(zoneID string) string { return "zone:snapshot:" + zoneID }
