// Package agg consolidates sharded npy array files into a zarr container:
// it plans chunk geometry from a byte budget, creates resizable datasets
// with replace-on-rerun semantics, decomposes record arrays into per-field
// datasets and appends shards in deterministic filename order.
package agg

import "errors"

var (
	// ErrUnsupportedRank marks a sample array whose rank the chunk planner
	// cannot handle (scalars have no growable dimension).
	ErrUnsupportedRank = errors.New("agg: unsupported array rank")

	// ErrShapeMismatch marks a shard whose dtype or trailing shape disagrees
	// with the schema inferred from the first shard.
	ErrShapeMismatch = errors.New("agg: shard schema mismatch")

	// ErrNoShards marks a shard pattern that matched no files.
	ErrNoShards = errors.New("agg: no shards matched pattern")

	// ErrCardinalityMismatch marks paired shard families with differing
	// shard counts.
	ErrCardinalityMismatch = errors.New("agg: paired shard families differ in count")
)
