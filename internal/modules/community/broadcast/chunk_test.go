package broadcast

import (
	"reflect"
	"testing"
)

func TestChunk(t *testing.T) {
	seq := func(n int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	tests := []struct {
		name  string
		items int
		size  int
		want  []int
	}{
		{"empty", 0, 100, nil},
		{"one short chunk", 3, 100, []int{3}},
		{"exact multiple", 200, 100, []int{100, 100}},
		{"remainder", 250, 100, []int{100, 100, 50}},
		{"small size", 5, 2, []int{2, 2, 1}},
		{"zero means ceiling", 150, 0, []int{100, 50}},
		{"clamped to ceiling", 150, 500, []int{100, 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := seq(tt.items)
			chunks := Chunk(items, tt.size)
			var sizes []int
			var flat []int
			for _, c := range chunks {
				sizes = append(sizes, len(c))
				flat = append(flat, c...)
			}
			if !reflect.DeepEqual(sizes, tt.want) {
				t.Errorf("sizes = %v, want %v", sizes, tt.want)
			}
			if tt.items > 0 && !reflect.DeepEqual(flat, items) {
				t.Error("chunks do not cover items exactly once in order")
			}
		})
	}
}

func TestChunkIsolatesCapacity(t *testing.T) {
	chunks := Chunk([]int{1, 2, 3, 4}, 2)
	chunks[0] = append(chunks[0], 99)
	if chunks[1][0] != 3 {
		t.Error("appending to a chunk overwrote its neighbour")
	}
}
