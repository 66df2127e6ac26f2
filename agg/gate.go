package agg

import (
	"context"
	"fmt"

	"gocloud.dev/blob"

	"github.com/vcfzarr/vcfzarr/zarr"
)

// SamplesDataset is the auxiliary dataset name holding the ordered sample
// identifiers under the target group.
const SamplesDataset = "samples"

// ValidatePairedCardinality fails when two paired shard families have
// different shard counts. Paired families are concatenated row-for-row, so
// a count mismatch means the extractions do not line up and aggregation
// must not start.
func ValidatePairedCardinality(variants, calldata int) error {
	if variants != calldata {
		return fmt.Errorf("%w: %d variants shards vs %d calldata shards",
			ErrCardinalityMismatch, variants, calldata)
	}
	return nil
}

// AttachSamples writes the ordered sample identifiers as a fixed-width
// string dataset under parent, replacing any prior value. Identifiers are
// padded with NUL bytes to the longest identifier's width.
func AttachSamples(ctx context.Context, bucket *blob.Bucket, parent string, samples []string) error {
	width := 1
	for _, s := range samples {
		if len(s) > width {
			width = len(s)
		}
	}

	rows := len(samples)
	chunk := rows
	if chunk < 1 {
		chunk = 1
	}

	path := zarr.JoinPath(parent, SamplesDataset)
	if err := zarr.DeleteNode(ctx, bucket, path); err != nil {
		return fmt.Errorf("samples: %w", err)
	}

	dtype := zarr.DType{Type: fmt.Sprintf("|S%d", width)}
	ds, err := zarr.Create(ctx, bucket, path, dtype, []int{rows}, []int{chunk}, nil, nil)
	if err != nil {
		return fmt.Errorf("samples: %w", err)
	}

	data := make([]byte, rows*width)
	for i, s := range samples {
		copy(data[i*width:(i+1)*width], s)
	}
	if err := ds.WriteSlice(ctx, 0, rows, data); err != nil {
		return fmt.Errorf("samples: %w", err)
	}
	return nil
}

// AttachProvenance merges provenance attributes onto the node at parent.
func AttachProvenance(ctx context.Context, bucket *blob.Bucket, parent string, attrs map[string]interface{}) error {
	if err := zarr.RequireGroup(ctx, bucket, parent); err != nil {
		return err
	}
	return zarr.WriteAttrs(ctx, bucket, parent, attrs)
}
