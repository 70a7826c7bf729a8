// Package journal is a SQLite-backed append-only log of dispatched actions.
//
// Only the input stream is persisted: each entry records the session it
// belongs to, its logical sequence number, the action kind and arguments,
// and the graph tick the action produced. Selector nodes and their values
// are never stored; they are rebuilt by replaying the journal.
//
// Entry ids are content-addressed (payload.EntryID), so appending the same
// entry twice is a no-op. Every read is ordered by seq ASC, id ASC.
//
// The database runs in WAL mode with synchronous=NORMAL, a 5 second busy
// timeout and foreign keys enforced.
package journal
