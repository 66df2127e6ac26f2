package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vcfzarr/vcfzarr/zarr"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig([]string{
		"-pattern", "shards/{array_type}*.npy",
		"-output", "out.zarr",
	})
	require.NoError(t, err)
	require.Equal(t, 131072, cfg.ChunkBytes)
	require.Equal(t, 10, cfg.ChunkWidth)
	require.Equal(t, "gzip", cfg.Compression)
	require.Equal(t, -1, cfg.ScaleOffset)
	require.False(t, cfg.VariantsOnly)
}

func TestLoadConfigYAMLWithFlagOverride(t *testing.T) {
	path := writeFile(t, "config.yaml", ""+
		"pattern: shards/{array_type}*.npy\n"+
		"output: out.zarr\n"+
		"chunk_bytes: 65536\n"+
		"compression: zstd\n"+
		"shuffle: true\n"+
		"variants_only: true\n")

	cfg, err := loadConfig([]string{"-config", path, "-compression", "snappy", "-chunk-bytes", "4096"})
	require.NoError(t, err)
	require.Equal(t, "shards/{array_type}*.npy", cfg.Pattern)
	require.Equal(t, "snappy", cfg.Compression, "flag must win over file value")
	require.Equal(t, 4096, cfg.ChunkBytes, "flag must win over file value")
	require.Equal(t, 10, cfg.ChunkWidth, "unset flag keeps the default")
	require.True(t, cfg.Shuffle)
	require.True(t, cfg.VariantsOnly)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	_, err := loadConfig([]string{"-output", "out.zarr"})
	require.ErrorContains(t, err, "pattern")

	_, err = loadConfig([]string{"-pattern", "x*", "-output", "o", "-compression", "blosc"})
	require.ErrorContains(t, err, "unsupported compression")

	_, err = loadConfig([]string{"-pattern", "x*", "-output", "o", "-chunk-bytes", "-1"})
	require.ErrorContains(t, err, "chunk-bytes")
}

func TestConfigFilters(t *testing.T) {
	cfg := &Config{ScaleOffset: 2, Shuffle: true, Checksum: true}
	filters := cfg.filters()
	require.Equal(t, []zarr.FilterConfig{
		{ID: zarr.FilterScaleOffset},
		{ID: zarr.FilterShuffle},
		{ID: zarr.FilterFletcher32},
	}, filters)

	cfg = &Config{ScaleOffset: -1}
	require.Empty(t, cfg.filters())
}

func TestConfigCompressor(t *testing.T) {
	cfg := &Config{Compression: "none"}
	require.Nil(t, cfg.compressor())

	cfg = &Config{Compression: "gzip", CompressionLevel: 4}
	require.Equal(t, &zarr.CompressorConfig{ID: "gzip", Level: 4}, cfg.compressor())
}
