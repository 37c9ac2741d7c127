package settings

import (
	"encoding/json"
)

// Runtime setting keys and their defaults.
const (
	// SyncPausedKey toggles rejection of inbound sync events.
	SyncPausedKey = "SYNC_PAUSED"
	// CacheEnabledKey toggles chart cache reads.
	CacheEnabledKey = "CACHE_ENABLED"
	// DefaultSyncPaused is the fallback sync pause state.
	DefaultSyncPaused = false
	// DefaultCacheEnabled is the fallback cache read state.
	DefaultCacheEnabled = true
)

// SyncPaused reports whether inbound sync events are currently rejected.
func SyncPaused() bool {
	return boolValue(SyncPausedKey, DefaultSyncPaused)
}

// CacheEnabled reports whether chart cache reads are active.
func CacheEnabled() bool {
	return boolValue(CacheEnabledKey, DefaultCacheEnabled)
}

// boolValue reads a boolean from the settings snapshot with a fallback.
func boolValue(key string, fallback bool) bool {
	raw, ok := Value(key)
	if !ok || len(raw) == 0 {
		return fallback
	}
	var value bool
	if errDecode := json.Unmarshal(raw, &value); errDecode != nil {
		return fallback
	}
	return value
}
