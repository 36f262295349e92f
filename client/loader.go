package client

import (
	"context"
	"sync"
)

// Loader fetches data for one screen or view and hands the result to apply,
// but only while the view is active and only for the newest load. A load
// started before a later Reload, or before Deactivate, is dropped when it
// finishes. apply runs under the loader's lock and must not call back into it.
type Loader[T any] struct {
	fetch func(context.Context) (T, error)
	apply func(T, error)

	mu     sync.Mutex
	gen    uint64
	active bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewLoader[T any](fetch func(context.Context) (T, error), apply func(T, error)) *Loader[T] {
	return &Loader[T]{fetch: fetch, apply: apply}
}

// Activate marks the view visible and starts a load.
func (l *Loader[T]) Activate(ctx context.Context) {
	l.mu.Lock()
	l.active = true
	l.startLocked(ctx)
	l.mu.Unlock()
}

// Reload supersedes any in-flight load. It is a no-op while inactive.
func (l *Loader[T]) Reload(ctx context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.active {
		return false
	}
	l.startLocked(ctx)
	return true
}

// Deactivate drops every in-flight load.
func (l *Loader[T]) Deactivate() {
	l.mu.Lock()
	l.active = false
	l.gen++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.mu.Unlock()
}

func (l *Loader[T]) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Wait blocks until every started fetch has returned.
func (l *Loader[T]) Wait() {
	l.wg.Wait()
}

func (l *Loader[T]) startLocked(parent context.Context) {
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen
	ctx, cancel := context.WithCancel(parent)
	l.cancel = cancel

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer cancel()
		v, err := l.fetch(ctx)
		l.deliver(gen, v, err)
	}()
}

func (l *Loader[T]) deliver(gen uint64, v T, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.active || gen != l.gen {
		return
	}
	l.cancel = nil
	l.apply(v, err)
}
