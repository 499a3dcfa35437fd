// Package tasks runs long catalog operations with real-time progress reporting.
//
// # Bulk export
//
// [BulkExport] writes an outline for every lesson using a worker pool. Cover downloads
// share one rate limiter across workers so the image host sees a bounded request rate.
// One failed lesson does not stop the others, and a manifest summarizing the run is
// written to the output directory.
//
// # Progress Reporting
//
// Operations send [ProgressUpdate] values on an optional channel. Sends never block: an
// update is dropped when the channel is full.
package tasks
