package peripheral

import (
	bxcan "github.com/samsamfire/gobxcan"
	can "github.com/samsamfire/gobxcan/pkg/can"
	log "github.com/sirupsen/logrus"
)

// Implements the can.FrameListener interface
// This handles every frame seen on the bus
func (p *Peripheral) Handle(frame can.Frame) {
	p.mu.Lock()
	if p.sleeping {
		// Start of frame wakes the peripheral up, the frame itself is lost
		p.wkui = true
		if p.config.AutoWakeup {
			p.sleeping = false
		}
		p.mu.Unlock()
		log.Debugf("[PERIPH] wakeup on frame %x", frame.ID)
		p.notify()
		return
	}
	p.receive(frame)
	p.mu.Unlock()
	p.notify()
}

// Must be called with the lock held
func (p *Peripheral) receive(frame can.Frame) {
	selected := Fifo0
	if p.selector != nil {
		selected = p.selector(frame)
	}
	if int(selected) >= len(p.fifos) {
		selected = Fifo0
	}
	f := &p.fifos[selected]
	if f.frames.IsFull() {
		f.overrun = true
		log.Debugf("[PERIPH] %v overrun, dropped %x", selected, frame.ID)
		return
	}
	f.frames.Write(frame)
	if f.frames.IsFull() {
		f.full = true
	}
}

// Receive the oldest frame of a FIFO.
// If a frame was dropped since the last call, ErrOverrun is returned instead
// and the overrun condition is cleared. Releasing a frame clears the full condition.
// Returns ErrWouldBlock if the FIFO is empty.
func (p *Peripheral) Receive(selected Fifo) (can.Frame, error) {
	if int(selected) >= len(p.fifos) {
		return can.Frame{}, bxcan.ErrIllegalArgument
	}
	p.mu.Lock()
	f := &p.fifos[selected]
	if f.overrun {
		f.overrun = false
		p.mu.Unlock()
		p.notify()
		return can.Frame{}, bxcan.ErrOverrun
	}
	frame, ok := f.frames.Read()
	if !ok {
		p.mu.Unlock()
		return can.Frame{}, bxcan.ErrWouldBlock
	}
	f.full = false
	p.mu.Unlock()
	p.notify()
	return frame, nil
}

// Number of frames waiting in a FIFO
func (p *Peripheral) FramesPending(selected Fifo) int {
	if int(selected) >= len(p.fifos) {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fifos[selected].frames.GetOccupied()
}

// Clear the full flag without releasing a frame (write 1 to clear)
func (p *Peripheral) ClearFifoFullFlag(selected Fifo) {
	if int(selected) >= len(p.fifos) {
		return
	}
	p.mu.Lock()
	p.fifos[selected].full = false
	p.mu.Unlock()
	p.notify()
}
