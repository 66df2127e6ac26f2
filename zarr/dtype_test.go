package zarr_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vcfzarr/vcfzarr/zarr"
)

func TestTypeSize(t *testing.T) {
	tests := []struct {
		input      string
		expectedSz int
		expectErr  bool
	}{
		{"<f4", 4, false},
		{"<i8", 8, false},
		{"|b1", 1, false},
		{"|S12", 12, false},
		{"<u2", 2, false},
		{">f4", 0, true}, // big-endian should fail
		{"x2", 0, true},  // invalid encoding
		{"<x4", 0, true}, // unknown kind
		{"<i", 0, true},  // incomplete size
		{"<i0", 0, true}, // zero size
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			sz, err := zarr.TypeSize(tt.input)

			if tt.expectErr {
				if err == nil {
					t.Errorf("expected error for input %q, but got nil", tt.input)
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error for input %q: %v", tt.input, err)
				}
				if sz != tt.expectedSz {
					t.Errorf("expected size %d, got %d", tt.expectedSz, sz)
				}
			}
		})
	}
}

func TestDTypeItemSize(t *testing.T) {
	record := zarr.DType{Fields: []zarr.Field{
		{Name: "pos", Type: "<i4"},
		{Name: "qual", Type: "<f4"},
		{Name: "genotype", Type: "|i1", Shape: []int{3, 2}},
	}}

	sz, err := record.ItemSize()
	require.NoError(t, err)
	require.Equal(t, 4+4+6, sz)

	off, err := record.FieldOffset(2)
	require.NoError(t, err)
	require.Equal(t, 8, off)

	flat := zarr.DType{Type: "<i8"}
	sz, err = flat.ItemSize()
	require.NoError(t, err)
	require.Equal(t, 8, sz)
}

func TestDTypeJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		dtype zarr.DType
	}{
		{"primitive", zarr.DType{Type: "<f4"}},
		{"record", zarr.DType{Fields: []zarr.Field{
			{Name: "pos", Type: "<i4"},
			{Name: "ref", Type: "|S1"},
			{Name: "depth", Type: "<i2", Shape: []int{4}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.dtype)
			require.NoError(t, err)

			var got zarr.DType
			require.NoError(t, json.Unmarshal(data, &got))
			require.True(t, got.Equal(tt.dtype), "got %s, want %s", got, tt.dtype)
		})
	}
}

func TestDTypeJSONRejectsBadDescr(t *testing.T) {
	for _, input := range []string{
		`">f4"`,                 // big-endian
		`[]`,                    // empty record
		`[["pos"]]`,             // missing typestr
		`[[3, "<i4"]]`,          // non-string name
		`[["pos", "<i4", "x"]]`, // non-list shape
	} {
		var d zarr.DType
		if err := json.Unmarshal([]byte(input), &d); err == nil {
			t.Errorf("expected error decoding %s", input)
		}
	}
}
