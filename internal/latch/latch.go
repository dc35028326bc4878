// Package latch serializes construction per key.
//
// A latch is created by the first caller for a key and removed as soon as
// that caller's function returns, so unrelated keys never block each other
// and a key does not hold a latch once its instance is cached.
package latch

import (
	"fmt"
	"sync"
)

// PanicError is returned to callers that waited on a construction which panicked.
// The caller that ran the function sees the original panic.
type PanicError struct {
	Key   any
	Value any
}

func (e PanicError) Error() string {
	return fmt.Sprintf("construction of %v panicked: %v", e.Key, e.Value)
}

type call struct {
	done  chan struct{}
	value any
	err   error
}

// Group holds the in-flight latches.
type Group[K comparable] struct {
	mu    sync.Mutex
	calls map[K]*call
}

// Do runs fn for key unless a call for key is already in flight, in which
// case it waits for that call and returns its result. shared reports whether
// the result came from another caller's run.
func (g *Group[K]) Do(key K, fn func() (any, error)) (value any, err error, shared bool) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[K]*call)
	}
	if c, ok := g.calls[key]; ok {
		g.mu.Unlock()
		<-c.done
		return c.value, c.err, true
	}

	c := &call{done: make(chan struct{})}
	g.calls[key] = c
	g.mu.Unlock()

	finished := false
	defer func() {
		if finished {
			g.release(key, c)
			return
		}

		// fn panicked or called runtime.Goexit.
		r := recover()
		c.err = PanicError{Key: key, Value: r}
		g.release(key, c)
		if r != nil {
			panic(r)
		}
	}()

	c.value, c.err = fn()
	finished = true
	return c.value, c.err, false
}

// InFlight reports whether a call for key is running.
func (g *Group[K]) InFlight(key K) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, ok := g.calls[key]
	return ok
}

func (g *Group[K]) release(key K, c *call) {
	g.mu.Lock()
	if g.calls[key] == c {
		delete(g.calls, key)
	}
	g.mu.Unlock()
	close(c.done)
}
