// Package xmetrics is adapted from the teacher's metrics/label.go: a
// mutex-guarded registry of named counters and label snapshots, scaled
// down from go-ethereum's full metrics package to the counters the
// engine actually emits (instructions dispatched per opcode, Oracle
// hook latency, thread step counts).
package xmetrics

import (
	"maps"
	"sync"
	"time"
)

// counter is the standard counter implementation, mirroring the
// mutex-protected value cell shape of the teacher's Label.
type counter struct {
	mu  sync.Mutex
	n   int64
	sum time.Duration
}

func (c *counter) inc(delta int64) {
	c.mu.Lock()
	c.n += delta
	c.mu.Unlock()
}

func (c *counter) observe(d time.Duration) {
	c.mu.Lock()
	c.n++
	c.sum += d
	c.mu.Unlock()
}

func (c *counter) snapshot() (count int64, sum time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n, c.sum
}

// Registry is a named collection of counters, per component, mirroring
// label.go's GetOrRegisterLabel pattern (get-or-create keyed by name).
type Registry struct {
	name string

	mu       sync.Mutex
	counters map[string]*counter
}

// NewRegistry constructs an empty Registry scoped under name.
func NewRegistry(name string) *Registry {
	return &Registry{name: name, counters: make(map[string]*counter)}
}

func (r *Registry) getOrRegister(key string) *counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.counters[key]
	if !ok {
		c = &counter{}
		r.counters[key] = c
	}
	return c
}

// IncOpcode records one instruction dispatch for the named opcode.
func (r *Registry) IncOpcode(opcodeName string) {
	r.getOrRegister("opcode." + opcodeName).inc(1)
}

// ObserveHookLatency records one Oracle hook invocation's duration.
func (r *Registry) ObserveHookLatency(hookName string, d time.Duration) {
	r.getOrRegister("hook." + hookName).observe(d)
}

// IncThreadStep records one step_thread call in a single shared
// "thread.step" counter; steps are not keyed by thread id.
func (r *Registry) IncThreadStep() {
	r.getOrRegister("thread.step").inc(1)
}

// Snapshot returns a read-only copy of every counter's (count, total
// duration) pair, matching label.go's LabelSnapshot read-copy idiom.
func (r *Registry) Snapshot() map[string]struct {
	Count int64
	Sum   time.Duration
} {
	r.mu.Lock()
	keys := maps.Clone(r.counters)
	r.mu.Unlock()

	out := make(map[string]struct {
		Count int64
		Sum   time.Duration
	}, len(keys))
	for k, c := range keys {
		n, sum := c.snapshot()
		out[k] = struct {
			Count int64
			Sum   time.Duration
		}{Count: n, Sum: sum}
	}
	return out
}
