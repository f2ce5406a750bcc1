package bxcan

import (
	"math/bits"
	"strings"
)

// Interrupts is a set of bxCAN interrupt sources, stored as the raw
// register mask. It is a plain value and is safe to copy.
type Interrupts uint32

// Mask of every recognized interrupt bit
const AllInterruptsMask = Interrupts(TransmitMailboxEmpty | Fifo0MessagePending | Fifo0Full | Fifo0Overrun |
	Fifo1MessagePending | Fifo1Full | Fifo1Overrun | Error | Wakeup | Sleep)

// The empty set
const NoInterrupts Interrupts = 0

// InterruptsFromBits creates a set from a raw register value.
// Bits that do not correspond to a known interrupt are dropped, reserved
// bits set by newer silicon must not break a running driver.
func InterruptsFromBits(raw uint32) Interrupts {
	return Interrupts(raw) & AllInterruptsMask
}

// NewInterrupts creates a set holding the given interrupts
func NewInterrupts(interrupts ...Interrupt) Interrupts {
	var s Interrupts
	for _, i := range interrupts {
		s.Insert(i)
	}
	return s
}

// Bits returns the raw mask, ready to be written to a register
func (s Interrupts) Bits() uint32 {
	return uint32(s)
}

// Contains reports whether interrupt i is part of the set
func (s Interrupts) Contains(i Interrupt) bool {
	m := i.Set()
	return m != 0 && s&m == m
}

// Insert adds i to the set. Inserting an interrupt twice is a no-op
func (s *Interrupts) Insert(i Interrupt) {
	*s |= i.Set()
}

// Remove drops i from the set
func (s *Interrupts) Remove(i Interrupt) {
	*s &^= i.Set()
}

// With returns a copy of the set with i added
func (s Interrupts) With(i Interrupt) Interrupts {
	s.Insert(i)
	return s
}

// Without returns a copy of the set with i removed
func (s Interrupts) Without(i Interrupt) Interrupts {
	s.Remove(i)
	return s
}

func (s Interrupts) Union(other Interrupts) Interrupts {
	return s | other
}

func (s Interrupts) Intersect(other Interrupts) Interrupts {
	return s & other
}

// Difference returns the interrupts of s that are not in other
func (s Interrupts) Difference(other Interrupts) Interrupts {
	return s &^ other
}

func (s Interrupts) IsEmpty() bool {
	return s == 0
}

// Len returns the number of interrupts in the set
func (s Interrupts) Len() int {
	return bits.OnesCount32(uint32(s & AllInterruptsMask))
}

// List returns the interrupts of the set ordered by bit position
func (s Interrupts) List() []Interrupt {
	list := make([]Interrupt, 0, s.Len())
	for _, i := range AllInterrupts {
		if s.Contains(i) {
			list = append(list, i)
		}
	}
	return list
}

// OnLine keeps only the interrupts aliased onto line l
func (s Interrupts) OnLine(l Line) Interrupts {
	return s & l.Interrupts()
}

// Lines returns the physical lines that at least one interrupt of the set drives
func (s Interrupts) Lines() []Line {
	lines := make([]Line, 0, len(AllLines))
	for _, l := range AllLines {
		if !s.OnLine(l).IsEmpty() {
			lines = append(lines, l)
		}
	}
	return lines
}

func (s Interrupts) String() string {
	if s.IsEmpty() {
		return "None"
	}
	names := make([]string, 0, s.Len())
	for _, i := range s.List() {
		names = append(names, i.String())
	}
	return strings.Join(names, "|")
}
