// Package cache computes chart result caching with content-based keys and
// table-dependency invalidation.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/paulsanswrk/dashboard-sync/internal/tables"
)

// Key computes the deterministic cache key for a chart's query fingerprint:
// SHA-256 over the chart ID and the canonical JSON of params. Canonical means
// object keys are sorted at every nesting level, so key insertion order in
// params never changes the result.
func Key(chartID string, params any) (string, error) {
	canonical, errCanonical := canonicalJSON(params)
	if errCanonical != nil {
		return "", fmt.Errorf("cache: fingerprint params: %w", errCanonical)
	}
	sum := sha256.Sum256([]byte(chartID + ":" + canonical))
	return hex.EncodeToString(sum[:]), nil
}

// canonicalJSON renders params as JSON with sorted object keys. The round trip
// through map[string]any relies on encoding/json emitting map keys sorted.
func canonicalJSON(params any) (string, error) {
	raw, errMarshal := json.Marshal(params)
	if errMarshal != nil {
		return "", errMarshal
	}
	var decoded any
	if errUnmarshal := json.Unmarshal(raw, &decoded); errUnmarshal != nil {
		return "", errUnmarshal
	}
	out, errEncode := json.Marshal(decoded)
	if errEncode != nil {
		return "", errEncode
	}
	return string(out), nil
}

// tableRefPattern matches table references after FROM/JOIN, with an optional
// schema qualifier.
var tableRefPattern = regexp.MustCompile(`(?i)\b(?:from|join)\s+(?:"?[a-zA-Z_][a-zA-Z0-9_]*"?\.)?"?([a-zA-Z_][a-zA-Z0-9_]*)"?`)

// SourceTablesFromSQL statically extracts the registry tables a chart query
// reads. Only allow-listed registry tables are reported; anything else in the
// query text (aliases, subquery names) is ignored.
func SourceTablesFromSQL(sqlText string) []string {
	matches := tableRefPattern.FindAllStringSubmatch(sqlText, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, match := range matches {
		name := strings.ToLower(match[1])
		if !tables.IsKnownTable(name) {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
