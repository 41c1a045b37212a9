// Package eventstore keeps an append-only ledger of build events in SQLite.
//
// Every build run appends build_started, one task_finished per task,
// artifact_written per assembled jar, docs_generated and build_finished.
// History and Summarize fold the ledger into per-build summaries.
package eventstore
