package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRollingWindow_AvgOfPartiallyFilledWindow(t *testing.T) {
	// GIVEN
	window := NewRollingWindow(5)
	window.Append(40)
	window.Append(50)

	// WHEN
	avg, ok := window.Avg()

	// THEN
	assert.True(t, ok)
	assert.Equal(t, 45.0, avg)
	assert.Equal(t, 2, window.Len())
}

func TestRollingWindow_AvgDropsOldestValue(t *testing.T) {
	// GIVEN
	window := NewRollingWindow(2)
	window.Append(10)
	window.Append(10)
	window.Append(30)

	// WHEN
	avg, ok := window.Avg()

	// THEN
	assert.True(t, ok)
	assert.Equal(t, 20.0, avg)
	assert.Equal(t, 2, window.Len())
}

func TestRollingWindow_AvgOfEmptyWindow(t *testing.T) {
	// GIVEN
	window := NewRollingWindow(5)

	// WHEN
	_, ok := window.Avg()

	// THEN
	assert.False(t, ok)
}

func TestRollingWindow_CountAtLeast(t *testing.T) {
	// GIVEN
	window := NewRollingWindow(4)
	window.Append(0)
	window.Append(5)
	window.Append(3)

	// WHEN
	count := window.CountAtLeast(3)

	// THEN
	assert.Equal(t, 2, count)
}
