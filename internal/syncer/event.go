// Package syncer ingests change events from the source system, applies them
// idempotently to the target store and fans out the downstream consistency
// work: column tracking, view regeneration, cache invalidation and push
// logging.
package syncer

import (
	"fmt"

	"github.com/google/uuid"
)

// Event operation kinds accepted from the source system.
const (
	// OpInsert is a single-row insert.
	OpInsert = "INSERT"
	// OpUpdate is a single-row update.
	OpUpdate = "UPDATE"
	// OpDelete is a single-row delete.
	OpDelete = "DELETE"
	// OpFullSync replaces a tenant's rows in one table, batched by offset.
	OpFullSync = "FULL_SYNC"
	// OpMultiTableSync resyncs several tables in one event.
	OpMultiTableSync = "MULTI_TABLE_SYNC"
	// OpTest is a connectivity check with no side effects.
	OpTest = "TEST"
)

// Batch carries one slice of a FULL_SYNC resync.
type Batch struct {
	Offset int              `json:"offset"` // Row offset of this slice; offset 0 clears first.
	Data   []map[string]any `json:"data"`   // Rows to upsert.
}

// TablePayload carries one table's rows inside a MULTI_TABLE_SYNC event.
type TablePayload struct {
	Data          []map[string]any `json:"data"`           // Rows to upsert.
	ClearExisting *bool            `json:"clear_existing"` // Clear tenant rows first; defaults to true.
}

// Event is the inbound webhook body.
type Event struct {
	Operation string                  `json:"operation"` // One of the Op* kinds.
	Table     string                  `json:"table"`     // Source table name for single-table operations.
	TenantID  string                  `json:"tenant_id"` // Tenant UUID.
	Data      map[string]any          `json:"data"`      // Row payload for single-row operations.
	OldData   map[string]any          `json:"old_data"`  // Previous row payload, when provided.
	Batch     *Batch                  `json:"batch"`     // FULL_SYNC batch.
	Tables    map[string]TablePayload `json:"tables"`    // MULTI_TABLE_SYNC payloads by source table.
	SyncID    string                  `json:"sync_id"`   // Idempotency/correlation token.
}

// ValidationError reports a malformed event. No side effects occur for events
// that fail validation.
type ValidationError struct {
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "syncer: invalid event: " + e.Reason
}

// invalid builds a ValidationError.
func invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Validate checks structural requirements per operation kind.
func (e *Event) Validate() error {
	switch e.Operation {
	case OpTest:
		return nil
	case OpInsert, OpUpdate, OpDelete, OpFullSync, OpMultiTableSync:
	default:
		return invalid("unknown operation %q", e.Operation)
	}

	if _, errParse := uuid.Parse(e.TenantID); errParse != nil {
		return invalid("tenant_id must be a UUID")
	}

	switch e.Operation {
	case OpInsert, OpUpdate:
		if e.Table == "" {
			return invalid("table is required for %s", e.Operation)
		}
		if len(e.Data) == 0 {
			return invalid("data is required for %s", e.Operation)
		}
		if _, ok := rowID(e.Data); !ok {
			return invalid("data.id is required for %s", e.Operation)
		}
	case OpDelete:
		if e.Table == "" {
			return invalid("table is required for DELETE")
		}
		if _, ok := e.deleteID(); !ok {
			return invalid("data.id or old_data.id is required for DELETE")
		}
	case OpFullSync:
		if e.Table == "" {
			return invalid("table is required for FULL_SYNC")
		}
		if e.Batch == nil {
			return invalid("batch is required for FULL_SYNC")
		}
		if e.Batch.Offset < 0 {
			return invalid("batch.offset must not be negative")
		}
	case OpMultiTableSync:
		if len(e.Tables) == 0 {
			return invalid("tables is required for MULTI_TABLE_SYNC")
		}
	}
	return nil
}

// deleteID returns the row ID targeted by a DELETE event.
func (e *Event) deleteID() (any, bool) {
	if id, ok := rowID(e.Data); ok {
		return id, true
	}
	return rowID(e.OldData)
}

// rowID extracts the primary id from a row payload.
func rowID(row map[string]any) (any, bool) {
	if row == nil {
		return nil, false
	}
	id, ok := row["id"]
	if !ok || id == nil {
		return nil, false
	}
	if s, isString := id.(string); isString && s == "" {
		return nil, false
	}
	return id, true
}
