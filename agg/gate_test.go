package agg_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	"github.com/vcfzarr/vcfzarr/agg"
	"github.com/vcfzarr/vcfzarr/zarr"
)

func TestValidatePairedCardinality(t *testing.T) {
	require.NoError(t, agg.ValidatePairedCardinality(5, 5))
	require.NoError(t, agg.ValidatePairedCardinality(0, 0))

	err := agg.ValidatePairedCardinality(5, 4)
	require.ErrorIs(t, err, agg.ErrCardinalityMismatch)
	require.ErrorContains(t, err, "5 variants shards vs 4 calldata shards")
}

func TestAttachSamples(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	require.NoError(t, agg.AttachSamples(ctx, bucket, "", []string{"NA00001", "NA00002", "X"}))

	ds, err := zarr.Open(ctx, bucket, "samples")
	require.NoError(t, err)
	require.Equal(t, []int{3}, ds.Shape())
	require.Equal(t, zarr.DType{Type: "|S7"}, ds.DType())

	got, err := ds.ReadSlice(ctx, 0, 3)
	require.NoError(t, err)
	require.Equal(t, []byte("NA00001NA00002X\x00\x00\x00\x00\x00\x00"), got)
}

func TestAttachSamplesReplacesPriorValue(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	require.NoError(t, agg.AttachSamples(ctx, bucket, "", []string{"A", "B", "C"}))
	require.NoError(t, agg.AttachSamples(ctx, bucket, "", []string{"D"}))

	ds, err := zarr.Open(ctx, bucket, "samples")
	require.NoError(t, err)
	require.Equal(t, []int{1}, ds.Shape())

	got, err := ds.ReadSlice(ctx, 0, 1)
	require.NoError(t, err)
	require.Equal(t, []byte("D"), got)
}

func TestAttachProvenance(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	require.NoError(t, agg.AttachProvenance(ctx, bucket, "out",
		map[string]interface{}{"source_pattern": "shards/{array_type}*.npy"}))

	attrs, err := zarr.ReadAttrs(ctx, bucket, "out")
	require.NoError(t, err)
	require.Equal(t, "shards/{array_type}*.npy", attrs["source_pattern"])
}
