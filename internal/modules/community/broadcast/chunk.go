package broadcast

import "github.com/nn1-dev/club-api/internal/pkg/mail"

// Chunk splits items into consecutive groups of at most n, preserving order.
// n outside 1..mail.MaxBatch is treated as mail.MaxBatch.
func Chunk[T any](items []T, n int) [][]T {
	if n <= 0 || n > mail.MaxBatch {
		n = mail.MaxBatch
	}
	if len(items) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+n-1)/n)
	for start := 0; start < len(items); start += n {
		end := min(start+n, len(items))
		out = append(out, items[start:end:end])
	}
	return out
}
