// Package stats provides statistical helpers for graph metrics.
package stats

// Percentile returns the p-th percentile of a slice sorted in ascending
// order, using the nearest-rank index p*n/100. Returns 0 for an empty slice.
func Percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
