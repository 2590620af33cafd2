package iam

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/forbearing/surrealkv-core/types"
)

// SessionCache holds recently authenticated sessions keyed by token, the
// generalization of the teacher's package-level sessionCache
// (forbearing-gst/authn/jwt/jwt.go) from one fixed TTL to a per-session
// expiry driven by each session's own Exp.
//
// It is an optimization only: a cache miss always falls back to full
// verification through VerifyToken, it never becomes a second source of
// truth for whether a session is valid.
type SessionCache struct {
	lru *lru.LRU[string, *types.Session]
}

// NewSessionCache creates a cache with a fixed upper TTL; callers evict
// early via Remove when a session is explicitly logged out.
func NewSessionCache(maxEntries int, ttl time.Duration) *SessionCache {
	return &SessionCache{lru: lru.NewLRU[string, *types.Session](maxEntries, nil, ttl)}
}

func (c *SessionCache) Get(token string) (*types.Session, bool) {
	s, ok := c.lru.Get(token)
	if !ok {
		return nil, false
	}
	if s.Expired(nowFunc()) {
		c.lru.Remove(token)
		return nil, false
	}
	return s, true
}

func (c *SessionCache) Put(s *types.Session) {
	c.lru.Add(s.Token, s)
}

func (c *SessionCache) Remove(token string) {
	c.lru.Remove(token)
}
