package zarr

import "testing"

func TestGridShape(t *testing.T) {
	tests := []struct {
		shape, chunks, expected []int
	}{
		{[]int{10, 2}, []int{5, 2}, []int{2, 1}},
		{[]int{11, 2}, []int{5, 2}, []int{3, 1}},
		{[]int{0, 4}, []int{32, 2}, []int{0, 2}},
		{[]int{7}, []int{32}, []int{1}},
	}

	for _, tt := range tests {
		got := GridShape(tt.shape, tt.chunks)
		if len(got) != len(tt.expected) {
			t.Fatalf("GridShape(%v, %v) = %v, want %v", tt.shape, tt.chunks, got, tt.expected)
		}
		for i := range got {
			if got[i] != tt.expected[i] {
				t.Errorf("GridShape(%v, %v) = %v, want %v", tt.shape, tt.chunks, got, tt.expected)
			}
		}
	}
}

func TestChunkKey(t *testing.T) {
	tests := []struct {
		indices   []int
		separator string
		expected  string
	}{
		{[]int{1, 4}, ".", "1.4"},
		{[]int{0, 0, 0}, ".", "0.0.0"},
		{[]int{10}, ".", "10"},
		{[]int{1, 2}, "/", "1/2"},
		{[]int{}, ".", "0"},
	}

	for _, tt := range tests {
		got := ChunkKey(tt.indices, tt.separator)
		if got != tt.expected {
			t.Errorf("ChunkKey(%v, %q) = %q, want %q", tt.indices, tt.separator, got, tt.expected)
		}
	}
}

func TestIterateGridEmptyRange(t *testing.T) {
	calls := 0
	err := iterateGrid([]int{0, 0}, []int{2, 0}, func([]int) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("iterateGrid failed: %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no calls for an empty range, got %d", calls)
	}
}
