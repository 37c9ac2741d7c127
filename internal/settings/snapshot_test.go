package settings

import (
	"encoding/json"
	"testing"
	"time"
)

func resetSnapshot(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		Store(time.Time{}, nil)
	})
}

func TestDefaultsWithEmptySnapshot(t *testing.T) {
	resetSnapshot(t)
	Store(time.Time{}, nil)

	if SyncPaused() {
		t.Fatal("sync must not be paused by default")
	}
	if !CacheEnabled() {
		t.Fatal("cache must be enabled by default")
	}
}

func TestStoredTogglesWin(t *testing.T) {
	resetSnapshot(t)
	Store(time.Now(), map[string]json.RawMessage{
		SyncPausedKey:   json.RawMessage(`true`),
		CacheEnabledKey: json.RawMessage(`false`),
	})

	if !SyncPaused() {
		t.Fatal("expected sync paused")
	}
	if CacheEnabled() {
		t.Fatal("expected cache disabled")
	}
}

func TestMalformedValueFallsBackToDefault(t *testing.T) {
	resetSnapshot(t)
	Store(time.Now(), map[string]json.RawMessage{
		SyncPausedKey: json.RawMessage(`"maybe"`),
	})

	if SyncPaused() {
		t.Fatal("malformed value must fall back to default")
	}
}

func TestValueCopiesAreIsolated(t *testing.T) {
	resetSnapshot(t)
	Store(time.Now(), map[string]json.RawMessage{"color": json.RawMessage(`"blue"`)})

	first, ok := Value("color")
	if !ok {
		t.Fatal("expected stored value")
	}
	first[1] = 'X'

	second, _ := Value("color")
	if string(second) != `"blue"` {
		t.Fatalf("mutating a returned value must not affect the snapshot: %s", second)
	}
}
