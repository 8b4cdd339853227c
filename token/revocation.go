package token

import (
	"sync"
	"time"
)

// Revocations remembers the jti of access tokens invalidated by logout until
// they would have expired anyway.
type Revocations struct {
	revoked map[string]time.Time
	mu      sync.RWMutex
	nowFunc func() time.Time
}

func NewRevocations(now func() time.Time) *Revocations {
	if now == nil {
		now = time.Now
	}
	return &Revocations{
		revoked: make(map[string]time.Time),
		nowFunc: now,
	}
}

func (c *Revocations) Add(jti string, exp time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked[jti] = exp
	c.cleanupLocked()
}

func (c *Revocations) IsRevoked(jti string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.revoked[jti]
	return exists
}

// cleanupLocked drops entries whose token has expired; callers hold mu.
func (c *Revocations) cleanupLocked() {
	now := c.nowFunc()
	for jti, exp := range c.revoked {
		if now.After(exp) {
			delete(c.revoked, jti)
		}
	}
}
