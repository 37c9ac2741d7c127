// Package settings exposes database-backed runtime toggles through an
// atomically swapped in-memory snapshot, so hot paths never query the
// database to read a flag.
package settings

import (
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"
)

// snapshot holds one immutable generation of runtime settings.
type snapshot struct {
	refreshedAt time.Time
	values      map[string]json.RawMessage
}

// current stores the latest snapshot atomically.
var current atomic.Value // stores snapshot

// init seeds an empty snapshot so readers never see a nil map.
func init() {
	current.Store(snapshot{values: map[string]json.RawMessage{}})
}

// Store replaces the in-memory settings snapshot. Values are copied so
// callers may reuse their buffers.
func Store(refreshedAt time.Time, values map[string]json.RawMessage) {
	next := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		if v == nil {
			next[key] = nil
			continue
		}
		copied := make([]byte, len(v))
		copy(copied, v)
		next[key] = copied
	}

	current.Store(snapshot{
		refreshedAt: refreshedAt.UTC(),
		values:      next,
	})
}

// RefreshedAt returns when the snapshot was last replaced.
func RefreshedAt() time.Time {
	return load().refreshedAt
}

// Value returns a copy of the raw JSON value for a settings key.
func Value(key string) (json.RawMessage, bool) {
	snap := load()
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false
	}
	val, ok := snap.values[key]
	if !ok {
		return nil, false
	}
	if val == nil {
		return nil, true
	}
	copied := make([]byte, len(val))
	copy(copied, val)
	return copied, true
}

// load returns the current snapshot with safe defaults.
func load() snapshot {
	v := current.Load()
	snap, ok := v.(snapshot)
	if !ok {
		return snapshot{values: map[string]json.RawMessage{}}
	}
	if snap.values == nil {
		return snapshot{refreshedAt: snap.refreshedAt, values: map[string]json.RawMessage{}}
	}
	return snap
}
