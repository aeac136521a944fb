package reactorcore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrorsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrCapacityExceeded,
		ErrOverrun,
		ErrQueueEmpty,
		ErrReactorAlreadyRunning,
		ErrReactorStopped,
		ErrReentrantRun,
		ErrFDOutOfRange,
		ErrFDAlreadyRegistered,
		ErrFDNotRegistered,
		ErrPollerClosed,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				assert.True(t, errors.Is(a, b))
				continue
			}
			assert.False(t, errors.Is(a, b), "sentinel %d must not equal sentinel %d", i, j)
		}
	}
}
