package util

import (
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

func SortedKeys[T constraints.Ordered, K any](input map[T]K) []T {
	result := make([]T, 0, len(input))
	for k := range input {
		result = append(result, k)
	}
	slices.Sort(result)
	return result
}

// Last returns the last element of the given slice, ok is false if it is empty
func Last[T any](s []T) (last T, ok bool) {
	if len(s) == 0 {
		return last, false
	}
	return s[len(s)-1], true
}
