package oms

import "sync"

// Pool is a typed wrapper over sync.Pool used for recycling arena slabs.
type Pool[T any] struct {
	inner sync.Pool
}

// NewPool creates a pool producing fresh values with newFn.
func NewPool[T any](newFn func() T) *Pool[T] {
	return &Pool[T]{
		inner: sync.Pool{
			New: func() any { return newFn() },
		},
	}
}

// Get takes a value from the pool, allocating when empty.
func (p *Pool[T]) Get() T {
	return p.inner.Get().(T)
}

// Put returns a value to the pool.
func (p *Pool[T]) Put(v T) {
	p.inner.Put(v)
}
