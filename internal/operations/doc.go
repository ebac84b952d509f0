// Package operations runs the asynchronous full-report pipeline.
//
// A report job executes five steps over one dataset: summary statistics
// first, then outlier detection, correlation analysis and the trend chart
// concurrently, and finally the export step that assembles the XLSX workbook
// and summary CSV. The three middle steps are independent of each other and
// only depend on the loaded table, so they run under an errgroup.
//
// Core components:
//
// Step: one unit of work with Validate and Execute over the shared
// ReportState.
//
// Pipeline: fixed step graph for a report run. Every step transition is
// reported through a ProgressSink, which the web layer connects to the
// WebSocket hub.
//
// JobQueue: bounded worker pool with an in-memory JobStore. Workers recover
// from panics and jobs move through pending, running and completed or
// failed.
package operations
