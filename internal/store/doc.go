// Package store provides SQLite-backed compilation history for jamc.
//
// Every successful pass can be recorded as a run:
//   - Runs: run ID (UUIDv7), input path, canonical output hash, max tier
//     level and the jdata flag
//   - Conditions: the named-condition table
//   - Activities: the activity registry with each activity's guard
//   - Call edges: the call graph's edges
//   - Exports: the validated export list
//
// Child rows carry a seq column holding their position in the pass, and all
// reads order by it, so a run reads back in the order it was compiled.
//
// # Database Configuration
//
// Connections are opened in WAL mode with synchronous=NORMAL, a 5 second busy
// timeout and foreign keys enforced. Schema changes after the initial schema
// are numbered migrations tracked in PRAGMA user_version; Open applies the
// missing ones.
//
// The output hash is ir.OutputHash over the canonical JSON of the output.
package store
