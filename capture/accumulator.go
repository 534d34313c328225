// Package capture collects share parameters from the traffic of the share page
// and builds the text corpus the resolver falls back to.
package capture

import "sync"

// Accumulator maps a parameter name to the last value seen for it.
// It is written by the interceptor goroutines and read once driving is over.
type Accumulator struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewAccumulator() *Accumulator {
	return &Accumulator{values: make(map[string]string)}
}

func (a *Accumulator) Set(key, value string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values[key] = value
}

// Merge writes every pair of values under a single lock.
func (a *Accumulator) Merge(values map[string]string) {
	if len(values) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for k, v := range values {
		a.values[k] = v
	}
}

func (a *Accumulator) Get(key string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.values[key]
	return v, ok
}

// Has reports whether key holds a non-empty value.
func (a *Accumulator) Has(key string) bool {
	v, _ := a.Get(key)
	return v != ""
}

// Snapshot returns a copy that is safe to read without the lock.
func (a *Accumulator) Snapshot() map[string]string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]string, len(a.values))
	for k, v := range a.values {
		out[k] = v
	}
	return out
}

func (a *Accumulator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.values)
}
