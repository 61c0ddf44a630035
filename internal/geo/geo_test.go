package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineMiles(t *testing.T) {
	// Austin (30.2672, -97.7431) to Dallas (32.7767, -96.7970) ≈ 182mi.
	d := HaversineMiles(Point(30.2672, -97.7431), Point(32.7767, -96.7970))
	assert.InDelta(t, 182, d, 5, "Austin-Dallas should be ~182mi")

	// Same point should be 0.
	assert.InDelta(t, 0, HaversineMiles(Point(30.0, -97.0), Point(30.0, -97.0)), 0.001)
}

func TestHaversineMiles_Symmetric(t *testing.T) {
	a := Point(30.2672, -97.7431)
	b := Point(29.7604, -95.3698) // Houston
	assert.InDelta(t, HaversineMiles(a, b), HaversineMiles(b, a), 1e-9)
}
