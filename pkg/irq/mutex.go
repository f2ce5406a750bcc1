package irq

import "sync/atomic"

// CriticalSection is a token proving that interrupt delivery is held off.
// Only the Controller hands out live tokens, either to the function passed to
// Free or to a running Handler. A token is revoked when its section ends.
type CriticalSection struct {
	held atomic.Bool
}

// Mutex holds driver state shared between handlers and the main context.
// The value can only be reached through a live CriticalSection.
type Mutex[T any] struct {
	value T
}

func NewMutex[T any](value T) *Mutex[T] {
	return &Mutex[T]{value: value}
}

// Borrow returns the protected value for the duration of the critical section.
// Panics if cs was not handed out by a Controller or its section already ended.
func (m *Mutex[T]) Borrow(cs *CriticalSection) *T {
	if cs == nil || !cs.held.Load() {
		panic("irq: borrow outside of a critical section")
	}
	return &m.value
}
