package syncer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/paulsanswrk/dashboard-sync/internal/cache"
	"github.com/paulsanswrk/dashboard-sync/internal/pushlog"
	"github.com/paulsanswrk/dashboard-sync/internal/tables"
	"github.com/paulsanswrk/dashboard-sync/internal/views"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Result summarizes how one event was processed.
type Result struct {
	Received    bool              // Always true for accepted events.
	Skipped     bool              // Event referenced only unmapped tables.
	Test        bool              // Event was a connectivity check.
	Counts      map[string]int    // Rows applied per affected target table.
	TableErrors map[string]string // Per-table failures (MULTI_TABLE_SYNC only).
	Duration    time.Duration     // Wall time spent applying the event.
}

// affectedTables lists target tables with nonzero applied rows, sorted.
func (r *Result) affectedTables() []string {
	out := make([]string, 0, len(r.Counts))
	for table, count := range r.Counts {
		if count > 0 {
			out = append(out, table)
		}
	}
	sort.Strings(out)
	return out
}

// Pipeline applies inbound events and schedules downstream consistency work.
type Pipeline struct {
	db         *gorm.DB
	viewgen    *views.Generator
	cache      *cache.Engine
	pushes     *pushlog.Log
	dispatcher *Dispatcher
}

// NewPipeline constructs a sync Pipeline.
func NewPipeline(db *gorm.DB, viewgen *views.Generator, cacheEngine *cache.Engine, pushes *pushlog.Log, dispatcher *Dispatcher) *Pipeline {
	return &Pipeline{
		db:         db,
		viewgen:    viewgen,
		cache:      cacheEngine,
		pushes:     pushes,
		dispatcher: dispatcher,
	}
}

// Dispatcher exposes the pipeline's task dispatcher so callers can await
// background completion.
func (p *Pipeline) Dispatcher() *Dispatcher {
	return p.dispatcher
}

// Process validates and applies one event. The primary data write completes
// before any downstream work is scheduled; downstream tasks run in the
// background and never fail the event. A ValidationError is returned for
// malformed events before any side effect.
func (p *Pipeline) Process(ctx context.Context, event *Event) (*Result, error) {
	start := time.Now()
	if event == nil {
		return nil, invalid("empty event")
	}
	if errValidate := event.Validate(); errValidate != nil {
		return nil, errValidate
	}

	res := &Result{Received: true, Counts: map[string]int{}}
	if event.Operation == OpTest {
		res.Test = true
		res.Duration = time.Since(start)
		return res, nil
	}

	// firstRows keeps one observed row per table so downstream view
	// regeneration can read the pushed column names.
	firstRows := map[string]map[string]any{}

	switch event.Operation {
	case OpInsert, OpUpdate:
		target, ok := tables.MapSourceToTarget(event.Table)
		if !ok {
			p.markSkipped(event, res)
			break
		}
		if _, errUpsert := upsertRows(ctx, p.db, target, []map[string]any{event.Data}); errUpsert != nil {
			return nil, errUpsert
		}
		res.Counts[target] = 1
		firstRows[target] = event.Data

	case OpDelete:
		target, ok := tables.MapSourceToTarget(event.Table)
		if !ok {
			p.markSkipped(event, res)
			break
		}
		id, _ := event.deleteID()
		if errDelete := deleteRow(ctx, p.db, target, id); errDelete != nil {
			return nil, errDelete
		}
		res.Counts[target] = 1
		if len(event.Data) > 0 {
			firstRows[target] = event.Data
		} else if len(event.OldData) > 0 {
			firstRows[target] = event.OldData
		}

	case OpFullSync:
		target, ok := tables.MapSourceToTarget(event.Table)
		if !ok {
			p.markSkipped(event, res)
			break
		}
		if event.Batch.Offset == 0 {
			if errClear := clearTenantRows(ctx, p.db, target, event.TenantID); errClear != nil {
				return nil, errClear
			}
		}
		applied, errUpsert := upsertRows(ctx, p.db, target, event.Batch.Data)
		if errUpsert != nil {
			return nil, errUpsert
		}
		res.Counts[target] = applied
		if len(event.Batch.Data) > 0 {
			firstRows[target] = event.Batch.Data[0]
		}

	case OpMultiTableSync:
		res.TableErrors = map[string]string{}
		p.applyMultiTable(ctx, event, res, firstRows)
		if len(res.Counts) == 0 && len(res.TableErrors) == 0 {
			res.Skipped = true
		}

	default:
		return nil, invalid("unknown operation %q", event.Operation)
	}

	p.dispatchDownstream(event, res, firstRows)
	res.Duration = time.Since(start)
	return res, nil
}

// applyMultiTable applies each table of a MULTI_TABLE_SYNC independently; one
// table's failure is recorded and does not abort its siblings.
func (p *Pipeline) applyMultiTable(ctx context.Context, event *Event, res *Result, firstRows map[string]map[string]any) {
	sources := make([]string, 0, len(event.Tables))
	for source := range event.Tables {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	for _, source := range sources {
		payload := event.Tables[source]
		target, ok := tables.MapSourceToTarget(source)
		if !ok {
			log.WithField("tenant", event.TenantID).Infof("skipping unmapped source table %s", source)
			continue
		}

		clear := payload.ClearExisting == nil || *payload.ClearExisting
		if clear {
			if errClear := clearTenantRows(ctx, p.db, target, event.TenantID); errClear != nil {
				res.TableErrors[target] = errClear.Error()
				continue
			}
		}

		applied, errUpsert := upsertRows(ctx, p.db, target, payload.Data)
		if errUpsert != nil {
			res.TableErrors[target] = errUpsert.Error()
			continue
		}
		res.Counts[target] = applied
		if len(payload.Data) > 0 {
			firstRows[target] = payload.Data[0]
		}
	}
}

// markSkipped flags an event referencing an unmapped source table. Skips are
// not errors; they are logged and acknowledged.
func (p *Pipeline) markSkipped(event *Event, res *Result) {
	res.Skipped = true
	log.WithField("tenant", event.TenantID).Infof("skipping unmapped source table %s", event.Table)
}

// dispatchDownstream schedules the three independent consistency tasks for
// every affected table: column/view maintenance, cache invalidation and the
// push log append. Failures are logged by the dispatcher and never surface to
// the event's caller.
func (p *Pipeline) dispatchDownstream(event *Event, res *Result, firstRows map[string]map[string]any) {
	affected := res.affectedTables()
	if len(affected) == 0 {
		return
	}

	tenantID := event.TenantID
	for _, table := range affected {
		row := firstRows[table]
		if len(row) == 0 {
			continue
		}
		tableName := table
		cols := columnsOf(row)
		p.dispatcher.Dispatch(fmt.Sprintf("views:%s:%s", tenantID, tableName), func(taskCtx context.Context) error {
			return p.viewgen.RegenerateIfNeeded(taskCtx, tenantID, tableName, cols)
		})
	}

	counts := make(map[string]int, len(res.Counts))
	for table, count := range res.Counts {
		counts[table] = count
	}
	p.dispatcher.Dispatch("cache-invalidate:"+tenantID, func(taskCtx context.Context) error {
		invalidated, errInvalidate := p.cache.InvalidateForTables(taskCtx, tenantID, affected)
		if errInvalidate != nil {
			return errInvalidate
		}
		if invalidated > 0 {
			log.WithField("tenant", tenantID).Infof("invalidated %d cached chart results", invalidated)
		}
		return nil
	})
	p.dispatcher.Dispatch("pushlog:"+tenantID, func(taskCtx context.Context) error {
		return p.pushes.Append(taskCtx, tenantID, event.SyncID, affected, counts)
	})
}
