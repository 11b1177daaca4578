package limiter

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	fails        int
	lastFailure  time.Time
	blockedUntil time.Time
}

// Memory is an in-process limiter with the same semantics as PG.
type Memory struct {
	mu     sync.Mutex
	policy Policy
	now    func() time.Time
	state  map[string]*counter
}

// NewMemory constructs an in-memory limiter. A nil clock means time.Now.
func NewMemory(p Policy, now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{policy: p, now: now, state: make(map[string]*counter)}
}

func key(username string, ipHash []byte) string { return username + "\x00" + string(ipHash) }

// Allow reports whether (username, ip) is currently unblocked.
func (m *Memory) Allow(_ context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.state[key(username, ipHash)]
	if !ok {
		return true, 0, nil
	}
	if now := m.now(); c.blockedUntil.After(now) {
		return false, c.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

// Success forgets (username, ip).
func (m *Memory) Success(_ context.Context, username string, ipHash []byte) error {
	m.mu.Lock()
	delete(m.state, key(username, ipHash))
	m.mu.Unlock()
	return nil
}

// Failure counts a failed attempt and blocks once the policy threshold is reached.
func (m *Memory) Failure(_ context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	k := key(username, ipHash)
	c, ok := m.state[k]
	if !ok {
		c = &counter{}
		m.state[k] = c
	}
	if now.Sub(c.lastFailure) > m.policy.Window {
		c.fails = 0
	}
	c.fails++
	c.lastFailure = now
	if c.fails >= m.policy.MaxFails {
		c.blockedUntil = now.Add(m.policy.BlockFor)
		return true, m.policy.BlockFor, nil
	}
	return false, 0, nil
}
