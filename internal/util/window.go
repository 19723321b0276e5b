package util

import "github.com/asecurityteam/rolling"

func CreateRollingWindow(size int) *rolling.PointPolicy {
	return rolling.NewPointPolicy(rolling.NewWindow(size))
}

// RollingWindow keeps the last size points of a series.
// Buckets of a point policy that were never written hold zero values,
// so the number of appended points is tracked separately.
type RollingWindow struct {
	policy   *rolling.PointPolicy
	size     int
	appended int
}

func NewRollingWindow(size int) *RollingWindow {
	return &RollingWindow{
		policy: CreateRollingWindow(size),
		size:   size,
	}
}

func (w *RollingWindow) Append(value float64) {
	w.policy.Append(value)
	if w.appended < w.size {
		w.appended++
	}
}

// Len is the number of points currently held by the window
func (w *RollingWindow) Len() int {
	return w.appended
}

// Avg returns the average of the points in the window, ok is false if it is empty
func (w *RollingWindow) Avg() (avg float64, ok bool) {
	if w.appended == 0 {
		return 0, false
	}
	return w.policy.Reduce(rolling.Sum) / float64(w.appended), true
}

// CountAtLeast counts the points that are >= threshold, threshold must be > 0
func (w *RollingWindow) CountAtLeast(threshold float64) int {
	return int(w.policy.Reduce(func(window rolling.Window) float64 {
		result := 0.0
		for _, bucket := range window {
			for _, value := range bucket {
				if value >= threshold {
					result++
				}
			}
		}
		return result
	}))
}
