// Package journal keeps a SQLite record of pipeline runs and the
// classification calls made during them.
//
// The journal is diagnostic only. Resumption is driven by the output CSV,
// never by this database, so deleting the journal loses history but not
// progress. Schema changes ship as embedded goose migrations.
package journal
