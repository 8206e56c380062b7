package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultEnforcesMinimumThreeHops(t *testing.T) {
	c := Default()
	assert.Equal(t, 3, c.MinHops)
}

func TestHopRangeByMode(t *testing.T) {
	c := Default()

	min, max := c.HopRange(ModeFast)
	assert.Equal(t, 2, min)
	assert.Equal(t, 2, max)

	min, max = c.HopRange(ModeAdaptive)
	assert.Equal(t, 3, min)
	assert.Equal(t, 3, max)

	min, max = c.HopRange(ModeMix)
	assert.Equal(t, 4, min)
	assert.Equal(t, 5, max)
}
