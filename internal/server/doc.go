// Package server provides HTTP routing, middleware, the on-demand sync
// trigger, and the interval scheduler.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// # Trigger Surfaces
//
// [SyncHandler] exposes POST /sync for manual runs and GET /sync/status for
// ledger counts. [Scheduler] fires the same engine on a fixed interval. Both
// surfaces share one state machine; an overlapping manual and scheduled run
// is tolerated and costs at most duplicate transfer work, since each run
// re-diffs the catalog against the ledger and object writes are idempotent
// overwrites.
package server
