package iam

import (
	"context"
	"sync"

	"github.com/forbearing/surrealkv-core/catalog"
)

// AccessCache memoizes access-method lookups across Signin/Signup calls, per
// the §3.3 supplement's "repeated signins against the same access method
// don't re-parse": unlike catalog.View's own cache (explicitly scoped to a
// single statement's View, discarded with it), this cache is meant to
// outlive any one Signin/Signup call, the way original_source's
// session-scoped expression cache outlives a single request. A sync.Map is
// enough here since entries are looked up far more often than invalidated.
type AccessCache struct {
	m sync.Map // accessCacheKey -> *catalog.AccessMethodDefinition
}

func NewAccessCache() *AccessCache { return &AccessCache{} }

type accessCacheKey struct {
	level  any
	ns, db string
	name   string
	gen    uint64
}

// Get returns the access method definition for (level,ns,db,name), reusing a
// previously cached definition when the scope's generation counter hasn't
// moved since it was cached, and falling through to view.GetAccess (and
// caching the result) otherwise.
func (c *AccessCache) Get(ctx context.Context, view *catalog.View, level any, ns, db, name string) (*catalog.AccessMethodDefinition, error) {
	gen, err := view.GetAccessGen(ctx, level, ns, db)
	if err != nil {
		return nil, err
	}
	key := accessCacheKey{level: level, ns: ns, db: db, name: name, gen: gen}
	if v, ok := c.m.Load(key); ok {
		return v.(*catalog.AccessMethodDefinition), nil
	}

	def, err := view.GetAccess(ctx, level, ns, db, name)
	if err != nil {
		return nil, err
	}
	c.m.Store(key, def)
	return def, nil
}

// getAccess resolves an access method through deps.AccessCache when one is
// configured, falling back to an uncached deps.View.GetAccess otherwise
// (e.g. in tests that construct Deps directly without a cache).
func getAccess(ctx context.Context, deps Deps, level any, ns, db, name string) (*catalog.AccessMethodDefinition, error) {
	if deps.AccessCache != nil {
		return deps.AccessCache.Get(ctx, deps.View, level, ns, db, name)
	}
	return deps.View.GetAccess(ctx, level, ns, db, name)
}
