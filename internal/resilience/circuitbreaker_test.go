package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreakerAllowsCallsWhileClosed(t *testing.T) {
	cb := New(3, 5*time.Second)
	assert.True(t, cb.Allow())

	cb.RecordSuccess()
	assert.True(t, cb.Allow())
	assert.Equal(t, Closed, cb.State())
}

func TestCircuitBreakerOpensAtFailureThreshold(t *testing.T) {
	cb := New(3, 5*time.Second)

	cb.RecordFailure()
	cb.RecordFailure()
	assert.True(t, cb.Allow(), "should still allow calls below threshold")

	cb.RecordFailure()
	assert.False(t, cb.Allow(), "should block once threshold is reached")
	assert.Equal(t, Open, cb.State())
}

func TestCircuitBreakerRecoversAfterTimeout(t *testing.T) {
	cb := New(2, 100*time.Millisecond)

	cb.RecordFailure()
	cb.RecordFailure()
	assert.False(t, cb.Allow())

	time.Sleep(150 * time.Millisecond)

	assert.True(t, cb.Allow(), "should allow a test call once recovery timeout elapses")
	cb.RecordSuccess()
	assert.True(t, cb.Allow())
	assert.Equal(t, Closed, cb.State())
}
