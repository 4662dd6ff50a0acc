package bridge

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Registry maps correlation ids to pending response slots.
//
// Slots are isolated per key: registering or resolving one id never blocks
// on another. A slot is resolved at most once and removed when it is.
type Registry struct {
	slots sync.Map // id -> *Pending
	count atomic.Int64
	now   func() time.Time
}

// Pending is a slot waiting for the value posted under its id
type Pending struct {
	id      string
	created time.Time
	done    chan struct{}
	value   any
}

var (
	defaultRegistry *Registry
	registryOnce    sync.Once
)

// DefaultRegistry returns the process-wide registry
func DefaultRegistry() *Registry {
	registryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{now: time.Now}
}

// Register creates the slot for id
func (r *Registry) Register(id string) (*Pending, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	p := &Pending{
		id:      id,
		created: r.now(),
		done:    make(chan struct{}),
	}
	if _, loaded := r.slots.LoadOrStore(id, p); loaded {
		return nil, ErrDuplicateID
	}
	r.count.Add(1)
	return p, nil
}

// Resolve delivers value to the slot for id and removes it. It reports
// false, and does nothing else, when no slot exists.
func (r *Registry) Resolve(id string, value any) bool {
	v, ok := r.slots.LoadAndDelete(id)
	if !ok {
		return false
	}
	r.count.Add(-1)

	p := v.(*Pending)
	p.value = value
	close(p.done)
	return true
}

// Forget removes the slot for id without resolving it
func (r *Registry) Forget(id string) bool {
	if _, ok := r.slots.LoadAndDelete(id); ok {
		r.count.Add(-1)
		return true
	}
	return false
}

// Evict removes slots registered more than olderThan ago. Their waiters
// are not resolved.
func (r *Registry) Evict(olderThan time.Duration) int {
	cutoff := r.now().Add(-olderThan)
	evicted := 0

	r.slots.Range(func(key, value any) bool {
		p := value.(*Pending)
		if p.created.Before(cutoff) && r.slots.CompareAndDelete(key, value) {
			r.count.Add(-1)
			evicted++
		}
		return true
	})

	return evicted
}

// Has reports whether a slot for id is outstanding
func (r *Registry) Has(id string) bool {
	_, ok := r.slots.Load(id)
	return ok
}

// Len returns the number of outstanding slots
func (r *Registry) Len() int {
	return int(r.count.Load())
}

// RunSweeper evicts slots older than olderThan every interval until ctx
// ends. onEvict, if set, receives each non-zero eviction count.
func (r *Registry) RunSweeper(ctx context.Context, interval, olderThan time.Duration, onEvict func(int)) {
	if interval <= 0 || olderThan <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Evict(olderThan); n > 0 && onEvict != nil {
				onEvict(n)
			}
		}
	}
}

// ID returns the slot's correlation id
func (p *Pending) ID() string {
	return p.id
}

// Wait blocks until the slot is resolved or ctx ends
func (p *Pending) Wait(ctx context.Context) (any, error) {
	select {
	case <-p.done:
		return p.value, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
