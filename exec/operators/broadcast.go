package operators

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/forbearing/surrealkv-core/exec"
	"github.com/forbearing/surrealkv-core/metrics"
)

type broadcastState int32

const (
	broadcastIdle broadcastState = iota
	broadcastProducing
	broadcastComplete
	broadcastErrored
)

func (s broadcastState) String() string {
	switch s {
	case broadcastIdle:
		return "idle"
	case broadcastProducing:
		return "producing"
	case broadcastComplete:
		return "complete"
	case broadcastErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// BroadcastSource implements §4.6.5: wraps an inner ExecOperator to make it
// run-once, consume-many for a subquery bound to a parameter read by
// multiple downstream operators. Exactly one producer goroutine ever runs;
// every consumer gets its own cursor into the shared, append-only cache.
type BroadcastSource struct {
	Inner exec.ExecOperator

	mu      sync.Mutex
	state   atomic.Int32
	cache   []exec.ValueBatch
	err     error
	watch   chan struct{} // closed-and-replaced on every cache append or terminal transition
	started bool
}

func NewBroadcastSource(inner exec.ExecOperator) *BroadcastSource {
	b := &BroadcastSource{Inner: inner}
	b.watch = make(chan struct{})
	return b
}

// Execute returns a fresh consumer cursor; the shared producer is started at
// most once, on the first call across all consumers.
func (b *BroadcastSource) Execute(ctx context.Context) (exec.BatchIterator, error) {
	b.ensureStarted(ctx)
	return &broadcastConsumer{source: b}, nil
}

func (b *BroadcastSource) ensureStarted(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		if metrics.BroadcastCacheHit != nil {
			metrics.BroadcastCacheHit.Inc()
		}
		return
	}
	b.started = true
	b.state.Store(int32(broadcastProducing))
	b.mu.Unlock()

	if metrics.BroadcastCacheMiss != nil {
		metrics.BroadcastCacheMiss.Inc()
	}
	go b.produce(ctx)
}

func (b *BroadcastSource) produce(ctx context.Context) {
	it, err := b.Inner.Execute(ctx)
	if err != nil {
		b.finish(err)
		return
	}
	defer it.Close()

	for it.Next(ctx) {
		b.append(it.Batch())
	}
	if err := it.Err(); err != nil {
		b.finish(err)
		return
	}
	b.finish(nil)
}

func (b *BroadcastSource) append(batch exec.ValueBatch) {
	b.mu.Lock()
	b.cache = append(b.cache, batch)
	old := b.watch
	b.watch = make(chan struct{})
	b.mu.Unlock()
	close(old)
}

func (b *BroadcastSource) finish(err error) {
	b.mu.Lock()
	b.err = err
	if err != nil {
		b.state.Store(int32(broadcastErrored))
	} else {
		b.state.Store(int32(broadcastComplete))
	}
	old := b.watch
	b.watch = make(chan struct{})
	b.mu.Unlock()
	close(old)
}

func (b *BroadcastSource) snapshot() ([]exec.ValueBatch, broadcastState, error, <-chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cache, broadcastState(b.state.Load()), b.err, b.watch
}

// broadcastConsumer is one caller's cursor into the shared cache, per
// §4.6.5's per-consumer `position`.
type broadcastConsumer struct {
	source *BroadcastSource
	pos    int
	cur    exec.ValueBatch
	err    error
}

func (c *broadcastConsumer) Next(ctx context.Context) bool {
	for {
		cache, state, err, watch := c.source.snapshot()
		if c.pos < len(cache) {
			c.cur = cache[c.pos]
			c.pos++
			return true
		}
		switch state {
		case broadcastErrored:
			c.err = err
			return false
		case broadcastComplete:
			return false
		default:
			select {
			case <-watch:
				continue
			case <-ctx.Done():
				c.err = ctx.Err()
				return false
			}
		}
	}
}

func (c *broadcastConsumer) Batch() exec.ValueBatch { return c.cur }
func (c *broadcastConsumer) Err() error             { return c.err }
func (c *broadcastConsumer) Close()                 {}
