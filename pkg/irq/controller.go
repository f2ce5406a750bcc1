package irq

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	bxcan "github.com/samsamfire/gobxcan"
	log "github.com/sirupsen/logrus"
)

// Number of back to back invocations of a line that never deasserts
// before it gets masked.
const DefaultMaxReentries = 64

// A peripheral driving the interrupt lines
type Source interface {
	// Level of the line, true while at least one enabled condition is pending
	Asserted(line bxcan.Line) bool
	// The source calls LineChanged every time one of its line levels may have changed
	SetListener(listener LineListener)
}

// Interface for being notified of a line level change
type LineListener interface {
	LineChanged()
}

// Handler is invoked once per assertion of a physical line.
// It runs with the critical section already held : calling Free from it runs
// the function straight away with the same token, and Poll returns immediately.
type Handler func(cs *CriticalSection)

// Controller delivers physical line assertions to their handlers.
// Lines are level triggered : a handler that returns without clearing the
// pending condition is invoked again straight away.
type Controller struct {
	mu           sync.Mutex
	exec         sync.Mutex    // held while a critical section or a handler runs
	owner        atomic.Uint64 // goroutine holding exec, 0 when released
	active       *CriticalSection
	handlers     map[bxcan.Line]Handler
	masked       map[bxcan.Line]bool
	invocations  map[bxcan.Line]uint64
	sources      []Source
	wake         chan struct{}
	maxReentries int
	err          error
}

func NewController(maxReentries int) *Controller {
	if maxReentries <= 0 {
		maxReentries = DefaultMaxReentries
	}
	return &Controller{
		handlers:     make(map[bxcan.Line]Handler),
		masked:       make(map[bxcan.Line]bool),
		invocations:  make(map[bxcan.Line]uint64),
		wake:         make(chan struct{}, 1),
		maxReentries: maxReentries,
	}
}

// Attach a source, its lines are sampled on every delivery
func (c *Controller) Attach(src Source) {
	c.mu.Lock()
	c.sources = append(c.sources, src)
	c.mu.Unlock()
	src.SetListener(c)
	c.LineChanged()
}

// Implements the LineListener interface
// Never blocks, the actual delivery happens in Run, Poll or at the end of Free
func (c *Controller) LineChanged() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Register the handler for a line, replacing any previous one.
// Registering also unmasks the line.
func (c *Controller) Register(line bxcan.Line, handler Handler) error {
	_, _, err := c.swap(line, handler)
	return err
}

// Same as Register, also returns the handler it replaced if any
func (c *Controller) swap(line bxcan.Line, handler Handler) (Handler, bool, error) {
	if !line.Valid() || handler == nil {
		return nil, false, bxcan.ErrIllegalArgument
	}
	c.mu.Lock()
	previous, replaced := c.handlers[line]
	c.handlers[line] = handler
	c.masked[line] = false
	c.mu.Unlock()
	log.Debugf("[IRQ] registered handler on line %v", line)
	c.LineChanged()
	return previous, replaced, nil
}

func (c *Controller) Unregister(line bxcan.Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, line)
}

// Mask a line, it will not be delivered until unmasked
func (c *Controller) Mask(line bxcan.Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.masked[line] = true
}

func (c *Controller) Unmask(line bxcan.Line) {
	c.mu.Lock()
	c.masked[line] = false
	c.mu.Unlock()
	c.LineChanged()
}

func (c *Controller) IsMasked(line bxcan.Line) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.masked[line]
}

// Number of times the handler of line was invoked
func (c *Controller) Invocations(line bxcan.Line) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invocations[line]
}

// Last delivery error, e.g. ErrInterruptStorm
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Free runs fn inside a critical section : no handler runs meanwhile.
// Lines that got asserted during fn are delivered when it returns,
// before Free itself returns.
// Critical sections nest : Free called from a handler or from another Free
// on the same goroutine runs fn directly, delivery waits for the outermost one.
func (c *Controller) Free(fn func(cs *CriticalSection)) {
	cs, outermost := c.enter()
	if !outermost {
		fn(cs)
		return
	}
	defer c.leave()
	fn(cs)
	c.dispatch(cs)
}

// Poll delivers all currently asserted lines on the calling goroutine.
// Inside a critical section it does nothing, the outermost one delivers.
func (c *Controller) Poll() {
	cs, outermost := c.enter()
	if !outermost {
		return
	}
	defer c.leave()
	c.dispatch(cs)
}

// Takes exec unless the calling goroutine already holds it.
// Returns the token of the current section and whether it was just opened.
func (c *Controller) enter() (*CriticalSection, bool) {
	id := goroutineID()
	if id != 0 && c.owner.Load() == id {
		return c.active, false
	}
	c.exec.Lock()
	c.owner.Store(id)
	c.active = &CriticalSection{}
	c.active.held.Store(true)
	return c.active, true
}

func (c *Controller) leave() {
	c.active.held.Store(false)
	c.active = nil
	c.owner.Store(0)
	c.exec.Unlock()
}

// Parsed from the "goroutine N [state]:" header of the current stack
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(bytes.TrimPrefix(buf[:n], []byte("goroutine ")))
	if len(fields) == 0 {
		return 0
	}
	id, _ := strconv.ParseUint(string(fields[0]), 10, 64)
	return id
}

// Run delivers asserted lines asynchronously until ctx is done
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.wake:
			c.Poll()
		}
	}
}

// Must be called with exec held
func (c *Controller) dispatch(cs *CriticalSection) {
	streak := make(map[bxcan.Line]int)
	for {
		delivered := false
		for _, line := range bxcan.AllLines {
			handler, ok := c.deliverable(line)
			if !ok {
				streak[line] = 0
				continue
			}
			streak[line]++
			if streak[line] > c.maxReentries {
				c.storm(line)
				continue
			}
			c.mu.Lock()
			c.invocations[line]++
			c.mu.Unlock()
			log.Debugf("[IRQ] line %v asserted, invoking handler", line)
			handler(cs)
			delivered = true
		}
		if !delivered {
			return
		}
	}
}

// Returns the handler of line if it is registered, unmasked and asserted
func (c *Controller) deliverable(line bxcan.Line) (Handler, bool) {
	c.mu.Lock()
	handler, ok := c.handlers[line]
	masked := c.masked[line]
	sources := c.sources
	c.mu.Unlock()
	if !ok || masked {
		return nil, false
	}
	for _, src := range sources {
		if src.Asserted(line) {
			return handler, true
		}
	}
	return nil, false
}

func (c *Controller) storm(line bxcan.Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.masked[line] = true
	c.err = fmt.Errorf("%w : line %v invoked %v times", bxcan.ErrInterruptStorm, line, c.maxReentries)
	log.Errorf("[IRQ] line %v masked, handler does not acknowledge its condition", line)
}
