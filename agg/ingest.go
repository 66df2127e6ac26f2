package agg

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"gocloud.dev/blob"

	"github.com/vcfzarr/vcfzarr/npy"
	"github.com/vcfzarr/vcfzarr/zarr"
)

// Layout selects the physical layout for record-typed shard families.
type Layout int

const (
	// LayoutGroup stores one dataset per record field under a group node.
	LayoutGroup Layout = iota
	// LayoutTable stores the whole record family as a single dataset with a
	// compound element type.
	LayoutTable
)

// Options configures an aggregation run.
type Options struct {
	// ByteBudget is the target chunk size in bytes (default 131072).
	ByteBudget int
	// WidthHint caps the second chunk dimension (default 10).
	WidthHint int
	// Compressor configures chunk compression; nil stores raw chunks.
	Compressor *zarr.CompressorConfig
	// Filters configures pre-compression filters; per-dataset pruning drops
	// filters the dtype cannot carry.
	Filters []zarr.FilterConfig
	// Observer receives progress events; nil means no reporting.
	Observer Observer
}

const (
	DefaultByteBudget = 131072
	DefaultWidthHint  = 10
)

func (o Options) withDefaults() Options {
	if o.ByteBudget == 0 {
		o.ByteBudget = DefaultByteBudget
	}
	if o.WidthHint == 0 {
		o.WidthHint = DefaultWidthHint
	}
	if o.Observer == nil {
		o.Observer = NopObserver{}
	}
	return o
}

// appender abstracts the flat and group append paths.
type appender interface {
	Append(ctx context.Context, a *npy.Array) error
}

// DiscoverShards expands pattern and returns the matching shard paths in
// lexicographic order. Callers name shards so that lexicographic order
// equals intended append order (zero-padded region offsets).
func DiscoverShards(pattern string) ([]string, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid shard pattern %q: %w", pattern, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Ingest aggregates the shard family matching pattern into a target named
// name under parent. The first shard supplies the schema; the target is
// created fresh (replacing any prior node) and every shard is appended in
// sorted filename order. Returns the total rows loaded.
//
// If reading or appending a shard fails, Ingest aborts immediately and the
// target keeps the rows committed so far: a valid but incomplete state.
// Recovery is re-running the whole target, which replaces it.
func Ingest(ctx context.Context, bucket *blob.Bucket, pattern, parent, name string, layout Layout, opts Options) (int, error) {
	opts = opts.withDefaults()

	shards, err := DiscoverShards(pattern)
	if err != nil {
		return 0, err
	}
	if len(shards) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoShards, pattern)
	}

	// The first shard is read twice: once here for schema inference, again
	// in the append loop. Shards can be large and holding one across target
	// setup is not worth the bookkeeping.
	sample, err := npy.ReadFile(shards[0])
	if err != nil {
		return 0, fmt.Errorf("target %s: %w", name, err)
	}

	target, err := planTarget(ctx, bucket, parent, name, sample, layout, opts)
	if err != nil {
		return 0, err
	}

	targetPath := zarr.JoinPath(parent, name)
	total := 0
	for _, shard := range shards {
		a, err := npy.ReadFile(shard)
		if err != nil {
			return total, fmt.Errorf("target %s: %w", targetPath, err)
		}
		if a.Rows() == 0 {
			continue
		}
		if err := target.Append(ctx, a); err != nil {
			return total, fmt.Errorf("shard %s: %w", shard, err)
		}
		total += a.Rows()
		opts.Observer.ShardLoaded(targetPath, shard, a.Rows())
	}

	opts.Observer.TargetDone(targetPath, total)
	return total, nil
}

func planTarget(ctx context.Context, bucket *blob.Bucket, parent, name string, sample *npy.Array, layout Layout, opts Options) (appender, error) {
	if sample.DType.IsRecord() && layout == LayoutGroup {
		g, err := PlanGroup(ctx, bucket, parent, name, sample, opts.ByteBudget, opts.WidthHint, opts.Compressor, opts.Filters)
		if err != nil {
			return nil, err
		}
		for _, col := range g.Columns() {
			opts.Observer.DatasetCreated(col.Path(), col.Chunks())
		}
		return g, nil
	}

	itemSize, err := sample.ItemSize()
	if err != nil {
		return nil, fmt.Errorf("target %s: %w", name, err)
	}
	chunks, err := PlanChunks(itemSize, sample.Shape, opts.ByteBudget, opts.WidthHint)
	if err != nil {
		return nil, fmt.Errorf("target %s: %w", name, err)
	}

	col, err := OpenOrReplace(ctx, bucket, parent, name, sample.DType, sample.TrailingShape(), chunks, opts.Compressor, opts.Filters)
	if err != nil {
		return nil, err
	}
	opts.Observer.DatasetCreated(col.Path(), col.Chunks())
	return col, nil
}
