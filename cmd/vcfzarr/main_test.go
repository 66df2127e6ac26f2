package main

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"

	"github.com/vcfzarr/vcfzarr/agg"
	"github.com/vcfzarr/vcfzarr/npy"
	"github.com/vcfzarr/vcfzarr/zarr"
)

var testVariantDType = zarr.DType{Fields: []zarr.Field{
	{Name: "pos", Type: "<i4"},
	{Name: "qual", Type: "<f4"},
}}

func variantShard(positions ...int32) *npy.Array {
	data := make([]byte, len(positions)*8)
	for i, pos := range positions {
		binary.LittleEndian.PutUint32(data[i*8:], uint32(pos))
		binary.LittleEndian.PutUint32(data[i*8+4:], math.Float32bits(float32(pos)/10))
	}
	return &npy.Array{DType: testVariantDType, Shape: []int{len(positions)}, Data: data}
}

func calldataShard(rows int) *npy.Array {
	data := make([]byte, rows*2)
	for i := range data {
		data[i] = byte(i % 3)
	}
	return &npy.Array{DType: zarr.DType{Type: "|i1"}, Shape: []int{rows, 2}, Data: data}
}

func TestRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	shards := filepath.Join(dir, "shards")
	require.NoError(t, os.MkdirAll(shards, 0o755))

	write := func(name string, a *npy.Array) {
		require.NoError(t, npy.WriteFile(filepath.Join(shards, name), a))
	}
	write("variants.00000.npy", variantShard(100, 101, 102))
	write("variants.00001.npy", variantShard(200, 201))
	write("calldata.00000.npy", calldataShard(3))
	write("calldata.00001.npy", calldataShard(2))

	samplesPath := filepath.Join(dir, "samples.txt")
	require.NoError(t, os.WriteFile(samplesPath, []byte("NA00001\nNA00002\n"), 0o644))

	out := filepath.Join(dir, "out.zarr")
	cfg := defaultConfig()
	cfg.Pattern = filepath.Join(shards, "{array_type}.*.npy")
	cfg.Output = out
	cfg.Shuffle = true
	cfg.Checksum = true
	cfg.Samples = samplesPath
	require.NoError(t, cfg.validate())

	require.NoError(t, run(ctx, zerolog.Nop(), cfg))

	bucket, err := blob.OpenBucket(ctx, "file://"+filepath.ToSlash(out))
	require.NoError(t, err)
	defer bucket.Close()

	pos, err := zarr.Open(ctx, bucket, "variants/pos")
	require.NoError(t, err)
	require.Equal(t, []int{5}, pos.Shape())
	raw, err := pos.ReadSlice(ctx, 0, 5)
	require.NoError(t, err)
	want := []int32{100, 101, 102, 200, 201}
	for i, w := range want {
		require.Equal(t, w, int32(binary.LittleEndian.Uint32(raw[i*4:])))
	}

	calldata, err := zarr.Open(ctx, bucket, "calldata")
	require.NoError(t, err)
	require.Equal(t, []int{5, 2}, calldata.Shape())

	samples, err := zarr.Open(ctx, bucket, agg.SamplesDataset)
	require.NoError(t, err)
	require.Equal(t, []int{2}, samples.Shape())

	attrs, err := zarr.ReadAttrs(ctx, bucket, "")
	require.NoError(t, err)
	require.Equal(t, cfg.Pattern, attrs["source_pattern"])
	require.EqualValues(t, 5, attrs["variant_rows"])
	require.Equal(t, "vcfzarr", attrs["created_by"])
}

func TestRunRejectsShardCountMismatch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	shards := filepath.Join(dir, "shards")
	require.NoError(t, os.MkdirAll(shards, 0o755))

	require.NoError(t, npy.WriteFile(filepath.Join(shards, "variants.00000.npy"), variantShard(1)))
	require.NoError(t, npy.WriteFile(filepath.Join(shards, "variants.00001.npy"), variantShard(2)))
	require.NoError(t, npy.WriteFile(filepath.Join(shards, "calldata.00000.npy"), calldataShard(1)))

	cfg := defaultConfig()
	cfg.Pattern = filepath.Join(shards, "{array_type}.*.npy")
	cfg.Output = filepath.Join(dir, "out.zarr")

	err := run(ctx, zerolog.Nop(), cfg)
	require.ErrorIs(t, err, agg.ErrCardinalityMismatch)

	// The gate fires before any dataset is written.
	bucket, err := blob.OpenBucket(ctx, "file://"+filepath.ToSlash(filepath.Join(dir, "out.zarr")))
	require.NoError(t, err)
	defer bucket.Close()
	_, err = zarr.Open(ctx, bucket, "variants/pos")
	require.ErrorIs(t, err, zarr.ErrNotFound)
}
