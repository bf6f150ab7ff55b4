// Package tasks orchestrates the Drive → object store sync with real-time progress reporting.
//
// # Core Operations
//
// The [Engine] interface defines two operations:
//
//  1. [Engine.Run] : One bounded sync pass
//     - Collects asset references from the catalog
//     - Diffs them against the processed-file ledger
//     - Downloads and uploads up to the per-run cap, strictly sequentially
//     - Commits successes to the ledger in one batch
//
//  2. [Engine.Migrate] : One-shot batch migration
//     - No cap; processes the entire backlog
//     - Two phases (thumbnails, then videos) for operator-visible progress
//     - Commits the ledger incrementally after each asset
//
// # Idempotency
//
// An asset is committed to the ledger only after both its download and its
// upload succeed. A failed asset is simply absent from the ledger and is
// retried in full on the next run, indistinguishable from a never-seen
// asset. Object keys are deterministic, so re-uploading after an interrupted
// run overwrites the same object harmlessly.
//
// # Progress Reporting
//
// Operations emit [ProgressUpdate] values via channels for non-blocking
// status reporting to CLI/HTTP layers.
package tasks
