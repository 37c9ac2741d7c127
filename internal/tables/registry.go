// Package tables holds the static registry of syncable tables: how source-system
// table names map onto target tables, and which isolation strategy scopes each
// target table to a tenant.
package tables

import (
	"regexp"
	"sort"
)

// Strategy identifies how a table's rows are scoped to a tenant.
type Strategy string

// Isolation strategies.
const (
	// StrategyDirect filters rows on the table's own tenant_id column.
	StrategyDirect Strategy = "direct"
	// StrategyDevice joins through the device-ownership junction table.
	StrategyDevice Strategy = "device"
	// StrategyParent joins through a parent table's tenant_id.
	StrategyParent Strategy = "parent"
	// StrategyGlobal applies no tenant filter; shared reference data.
	StrategyGlobal Strategy = "global"
)

// Classification describes the isolation strategy for one target table.
type Classification struct {
	Strategy    Strategy // Isolation strategy.
	JoinColumn  string   // Column joined to the device junction (device strategy).
	ParentTable string   // Parent table name (parent strategy).
	ForeignKey  string   // Column referencing the parent's id (parent strategy).
}

// classifications maps every syncable target table to its isolation strategy.
var classifications = map[string]Classification{
	"work_orders":    {Strategy: StrategyDirect},
	"sites":          {Strategy: StrategyDirect},
	"projects":       {Strategy: StrategyDirect},
	"device_tenants": {Strategy: StrategyDirect},

	"devices":         {Strategy: StrategyDevice, JoinColumn: "id"},
	"alarms":          {Strategy: StrategyDevice, JoinColumn: "device_id"},
	"device_readings": {Strategy: StrategyDevice, JoinColumn: "device_id"},

	"work_order_items": {Strategy: StrategyParent, ParentTable: "work_orders", ForeignKey: "work_order_id"},
	"site_contacts":    {Strategy: StrategyParent, ParentTable: "sites", ForeignKey: "site_id"},

	"countries":     {Strategy: StrategyGlobal},
	"device_models": {Strategy: StrategyGlobal},
	"time_zones":    {Strategy: StrategyGlobal},
}

// sourceToTarget maps source-system table names onto target tables. Source names
// not present here are not syncable and must be skipped by callers.
var sourceToTarget = map[string]string{
	"service_orders":       "work_orders",
	"service_order_lines":  "work_order_items",
	"locations":            "sites",
	"location_contacts":    "site_contacts",
	"equipment":            "devices",
	"equipment_tenants":    "device_tenants",
	"equipment_alerts":     "alarms",
	"equipment_readings":   "device_readings",
	"equipment_categories": "device_models",
	"projects":             "projects",
	"countries":            "countries",
	"time_zones":           "time_zones",
}

// identifierPattern is the strict shape allowed for SQL identifiers taken from
// inbound payloads. Anything else is rejected before SQL construction.
var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Classify returns the isolation strategy for a target table. Unknown tables
// default to the direct tenant_id filter.
func Classify(tableName string) Classification {
	if c, ok := classifications[tableName]; ok {
		return c
	}
	return Classification{Strategy: StrategyDirect}
}

// IsKnownTable reports whether a target table is present in the registry.
func IsKnownTable(tableName string) bool {
	_, ok := classifications[tableName]
	return ok
}

// IsGlobal reports whether a target table holds shared reference data.
func IsGlobal(tableName string) bool {
	return Classify(tableName).Strategy == StrategyGlobal
}

// MapSourceToTarget resolves a source-system table name to its target table.
// ok is false when the source table is not syncable.
func MapSourceToTarget(sourceTableName string) (string, bool) {
	target, ok := sourceToTarget[sourceTableName]
	return target, ok
}

// ValidIdentifier reports whether name is safe to interpolate into SQL text as a
// column identifier.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// TargetTables returns all registry target tables in sorted order.
func TargetTables() []string {
	out := make([]string, 0, len(classifications))
	for name := range classifications {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
