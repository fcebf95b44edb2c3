// Package ir provides the data products of the JAMScript pre-compilation
// pass: compiled condition descriptors, activity records, call-graph edges,
// export/import entries and the pass output itself.
//
// This package contains type definitions and their canonical encoding only.
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - JCond values are immutable once built; combining returns a new value
//   - All JSON tags use snake_case
//   - Slices are emitted in source order so outputs hash deterministically
package ir
