package util

import (
	"math"
	"sort"

	"golang.org/x/exp/constraints"
)

// Avg calculates the average of all values in the given array
func Avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < len(values); i++ {
		sum += values[i]
	}
	return sum / (float64(len(values)))
}

// Coerce returns a value that is at least min and at most max, otherwise equal to value
func Coerce[T constraints.Ordered](value T, min T, max T) T {
	if value > max {
		return max
	}
	if value < min {
		return min
	}
	return value
}

// Round rounds the given value to the given number of decimal places
func Round(value float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(value*factor) / factor
}

// RoundPtr rounds the given value, passing nil through
func RoundPtr(value *float64, decimals int) *float64 {
	if value == nil {
		return nil
	}
	result := Round(*value, decimals)
	return &result
}

// Percentile calculates the q-th percentile (0 <= q <= 1) of the given values,
// linearly interpolating between the closest ranks.
// Returns nil if values is empty.
func Percentile(values []float64, q float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	q = Coerce(q, 0, 1)
	position := q * float64(len(sorted)-1)
	lower := int(math.Floor(position))
	upper := int(math.Ceil(position))
	if lower == upper {
		result := sorted[lower]
		return &result
	}
	fraction := position - float64(lower)
	result := sorted[lower] + fraction*(sorted[upper]-sorted[lower])
	return &result
}

// Median calculates the median of the given values, nil if values is empty
func Median(values []float64) *float64 {
	return Percentile(values, 0.5)
}

// UpdateExponentialAvg applies exponential smoothing with the given alpha
func UpdateExponentialAvg(oldAvg float64, alpha float64, newValue float64) float64 {
	return alpha*newValue + (1-alpha)*oldAvg
}

// Ptr returns a pointer to the given value
func Ptr[T any](value T) *T {
	return &value
}

// ValueOr dereferences value, falling back to def if it is nil
func ValueOr[T any](value *T, def T) T {
	if value == nil {
		return def
	}
	return *value
}

// FirstNonNil returns the first non-nil value of the given list
func FirstNonNil[T any](values ...*T) *T {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
