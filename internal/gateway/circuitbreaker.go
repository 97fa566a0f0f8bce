package gateway

import (
	"sync"
	"time"
)

// BreakerState is one connector's health-gate state.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

const defaultHalfOpenSuccesses = 2

// connectorHealth tracks one connector's recent outcomes.
type connectorHealth struct {
	state                BreakerState
	consecutiveFailures  int
	consecutiveSuccesses int
	openUntil            time.Time
}

// Breaker keeps unhealthy connectors from receiving traffic. Transport-level
// failures and 5xx replies count against a connector; after the threshold
// the circuit opens and flows fail fast with connector_unavailable until the
// cooldown passes and probe traffic closes it again.
type Breaker struct {
	mu               sync.Mutex
	connectors       map[string]*connectorHealth
	failureThreshold int
	cooldown         time.Duration
	halfOpenTarget   int
}

// NewBreaker builds a breaker. Non-positive settings fall back to five
// failures and a thirty second cooldown.
func NewBreaker(failureThreshold int, cooldown time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		connectors:       make(map[string]*connectorHealth),
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		halfOpenTarget:   defaultHalfOpenSuccesses,
	}
}

func (b *Breaker) health(connector string) *connectorHealth {
	h, ok := b.connectors[connector]
	if !ok {
		h = &connectorHealth{state: BreakerClosed}
		b.connectors[connector] = h
	}
	return h
}

// Allow reports whether the connector may receive a call. An open circuit
// whose cooldown has passed transitions to half-open and admits probes.
func (b *Breaker) Allow(connector string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := b.health(connector)
	switch h.state {
	case BreakerClosed, BreakerHalfOpen:
		return true
	case BreakerOpen:
		if time.Now().After(h.openUntil) {
			h.state = BreakerHalfOpen
			h.consecutiveSuccesses = 0
			return true
		}
		return false
	}
	return true
}

// RecordFailure counts one failed call against the connector.
func (b *Breaker) RecordFailure(connector string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := b.health(connector)
	switch h.state {
	case BreakerClosed:
		h.consecutiveFailures++
		if h.consecutiveFailures >= b.failureThreshold {
			h.state = BreakerOpen
			h.openUntil = time.Now().Add(b.cooldown)
		}
	case BreakerHalfOpen:
		h.state = BreakerOpen
		h.openUntil = time.Now().Add(b.cooldown)
		h.consecutiveFailures = 0
		h.consecutiveSuccesses = 0
	}
}

// RecordSuccess counts one successful call for the connector.
func (b *Breaker) RecordSuccess(connector string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := b.health(connector)
	switch h.state {
	case BreakerClosed:
		h.consecutiveFailures = 0
	case BreakerHalfOpen:
		h.consecutiveSuccesses++
		if h.consecutiveSuccesses >= b.halfOpenTarget {
			h.state = BreakerClosed
			h.consecutiveFailures = 0
			h.consecutiveSuccesses = 0
		}
	}
}

// State returns the connector's current circuit state without transitioning
// it.
func (b *Breaker) State(connector string) BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.connectors[connector]
	if !ok {
		return BreakerClosed
	}
	return h.state
}
