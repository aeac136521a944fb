package reactorcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClockSimulationAdvance(t *testing.T) {
	c := NewClock(ClockSimulation)
	c.Start(1000)

	assert.Equal(t, Tick(1000), c.Ticks())

	c.Advance(500)
	now := c.Now()
	assert.Equal(t, Tick(1500), now.SinceEpoch)
	assert.Equal(t, Tick(500), now.Raw)
}

func TestClockSimulationStartResets(t *testing.T) {
	c := NewClock(ClockSimulation)
	c.Advance(100)
	c.Start(0)
	assert.Equal(t, Tick(0), c.Ticks())
}

func TestClockRealTimeAdvancesMonotonically(t *testing.T) {
	c := NewClock(ClockRealTime)
	first := c.Now()
	second := c.Now()
	assert.GreaterOrEqual(t, int64(second.SinceEpoch), int64(first.SinceEpoch))
}

func TestClockSteadyIgnoresAdvance(t *testing.T) {
	c := NewClock(ClockSteady)
	c.Advance(1000) // no-op for non-simulation clocks
	now := c.Now()
	assert.Greater(t, int64(now.SinceEpoch), int64(0))
}

func TestClockSteadyRawIsMonotonic(t *testing.T) {
	c := NewClock(ClockSteady)
	first := c.Now()
	second := c.Now()
	assert.GreaterOrEqual(t, int64(second.Raw), int64(first.Raw))
	assert.GreaterOrEqual(t, int64(first.Raw), int64(0))
}

func TestClockType(t *testing.T) {
	c := NewClock(ClockSteady)
	assert.Equal(t, ClockSteady, c.Type())
}
