package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	assert.True(t, b.Allow("fiserv"))
	b.RecordFailure("fiserv")
	b.RecordFailure("fiserv")
	assert.Equal(t, BreakerClosed, b.State("fiserv"))
	assert.True(t, b.Allow("fiserv"))

	b.RecordFailure("fiserv")
	assert.Equal(t, BreakerOpen, b.State("fiserv"))
	assert.False(t, b.Allow("fiserv"))
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	b.RecordFailure("paytm")
	b.RecordFailure("paytm")
	b.RecordSuccess("paytm")
	b.RecordFailure("paytm")
	b.RecordFailure("paytm")
	assert.Equal(t, BreakerClosed, b.State("paytm"))
}

func TestBreakerHalfOpenClosesAfterSuccesses(t *testing.T) {
	b := NewBreaker(1, 5*time.Millisecond)

	b.RecordFailure("razorpay")
	assert.False(t, b.Allow("razorpay"))

	time.Sleep(10 * time.Millisecond)
	assert.True(t, b.Allow("razorpay"))
	assert.Equal(t, BreakerHalfOpen, b.State("razorpay"))

	b.RecordSuccess("razorpay")
	b.RecordSuccess("razorpay")
	assert.Equal(t, BreakerClosed, b.State("razorpay"))
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker(1, 5*time.Millisecond)

	b.RecordFailure("fiserv")
	time.Sleep(10 * time.Millisecond)
	assert.True(t, b.Allow("fiserv"))

	b.RecordFailure("fiserv")
	assert.Equal(t, BreakerOpen, b.State("fiserv"))
	assert.False(t, b.Allow("fiserv"))
}

func TestBreakerTracksConnectorsIndependently(t *testing.T) {
	b := NewBreaker(1, time.Minute)

	b.RecordFailure("fiserv")
	assert.False(t, b.Allow("fiserv"))
	assert.True(t, b.Allow("paytm"))
}

func TestBreakerDefaults(t *testing.T) {
	b := NewBreaker(0, 0)
	for i := 0; i < 4; i++ {
		b.RecordFailure("x")
	}
	assert.Equal(t, BreakerClosed, b.State("x"))
	b.RecordFailure("x")
	assert.Equal(t, BreakerOpen, b.State("x"))
}
