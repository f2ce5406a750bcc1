package peripheral

import (
	"sync"

	bxcan "github.com/samsamfire/gobxcan"
	"github.com/samsamfire/gobxcan/internal/fifo"
	can "github.com/samsamfire/gobxcan/pkg/can"
	"github.com/samsamfire/gobxcan/pkg/irq"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Loopback           bool   // Transmitted frames are received in the own FIFOs
	Silent             bool   // Nothing is sent on the bus
	AutoWakeup         bool   // Leave sleep mode when a frame is seen on the bus
	ReservedStatusBits uint32 // Extra bits reported by the raw status register
}

type mailboxState uint8

const (
	mailboxEmpty mailboxState = iota
	mailboxPending
	mailboxTransmitting
)

type mailbox struct {
	frame            can.Frame
	state            mailboxState
	requestCompleted bool
	transmitOk       bool
}

type rxFifo struct {
	frames  *fifo.Fifo[can.Frame]
	full    bool
	overrun bool
}

// Simulated bxCAN peripheral.
// It owns the interrupt enable register and derives the status register from
// its mailboxes, FIFOs and error/sleep state. Frames are exchanged with a can.Bus.
type Peripheral struct {
	mu         sync.Mutex
	bus        can.Bus
	config     Config
	ier        uint32
	mailboxes  [NumMailboxes]mailbox
	fifos      [2]rxFifo
	selector   func(frame can.Frame) Fifo
	errFlags   ErrorFlags
	lec        LastErrorCode
	erri       bool
	wkui       bool
	slaki      bool
	sleeping   bool
	listener   irq.LineListener
	sentFrames uint64
}

// Create a new peripheral attached to bus, bus may be nil when silent
func New(bus can.Bus, config Config) (*Peripheral, error) {
	p := &Peripheral{bus: bus, config: config}
	for i := range p.fifos {
		p.fifos[i].frames = fifo.NewFifo[can.Frame](FifoDepth)
	}
	if bus != nil {
		err := bus.Subscribe(p)
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Implements irq.Source
func (p *Peripheral) SetListener(listener irq.LineListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = listener
}

// Route received frames to a FIFO. Defaults to FIFO 0 for every frame
func (p *Peripheral) SetFifoSelector(selector func(frame can.Frame) Fifo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selector = selector
}

// Must be called without holding the lock
func (p *Peripheral) notify() {
	p.mu.Lock()
	listener := p.listener
	p.mu.Unlock()
	if listener != nil {
		listener.LineChanged()
	}
}

func (p *Peripheral) EnableInterrupt(interrupt bxcan.Interrupt) {
	p.EnableInterrupts(interrupt.Set())
}

// Enable a set of interrupts with a single write of the enable register
func (p *Peripheral) EnableInterrupts(interrupts bxcan.Interrupts) {
	p.mu.Lock()
	p.ier |= interrupts.Bits()
	p.mu.Unlock()
	log.Debugf("[PERIPH] enabled %v", interrupts)
	p.notify()
}

func (p *Peripheral) DisableInterrupt(interrupt bxcan.Interrupt) {
	p.DisableInterrupts(interrupt.Set())
}

func (p *Peripheral) DisableInterrupts(interrupts bxcan.Interrupts) {
	p.mu.Lock()
	p.ier &^= interrupts.Bits()
	p.mu.Unlock()
	log.Debugf("[PERIPH] disabled %v", interrupts)
	p.notify()
}

func (p *Peripheral) EnabledInterrupts() bxcan.Interrupts {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bxcan.InterruptsFromBits(p.ier)
}

// Raw value of the interrupt enable register
func (p *Peripheral) RawEnable() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ier
}

// Raw value of the interrupt status register, reserved bits included
func (p *Peripheral) RawStatus() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rawStatus()
}

func (p *Peripheral) rawStatus() uint32 {
	var status bxcan.Interrupts
	for _, mb := range p.mailboxes {
		if mb.requestCompleted {
			status.Insert(bxcan.TransmitMailboxEmpty)
		}
	}
	fifoInterrupts := [2][3]bxcan.Interrupt{
		{bxcan.Fifo0MessagePending, bxcan.Fifo0Full, bxcan.Fifo0Overrun},
		{bxcan.Fifo1MessagePending, bxcan.Fifo1Full, bxcan.Fifo1Overrun},
	}
	for i, f := range p.fifos {
		if !f.frames.IsEmpty() {
			status.Insert(fifoInterrupts[i][0])
		}
		if f.full {
			status.Insert(fifoInterrupts[i][1])
		}
		if f.overrun {
			status.Insert(fifoInterrupts[i][2])
		}
	}
	if p.erri {
		status.Insert(bxcan.Error)
	}
	if p.wkui {
		status.Insert(bxcan.Wakeup)
	}
	if p.slaki {
		status.Insert(bxcan.Sleep)
	}
	return status.Bits() | p.config.ReservedStatusBits
}

// Decoded status register, every flagged condition whether enabled or not
func (p *Peripheral) Status() bxcan.Interrupts {
	return bxcan.InterruptsFromBits(p.RawStatus())
}

// Conditions that are both flagged and enabled
func (p *Peripheral) Pending() bxcan.Interrupts {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bxcan.InterruptsFromBits(p.rawStatus() & p.ier)
}

// Implements irq.Source
func (p *Peripheral) Asserted(line bxcan.Line) bool {
	return !p.Pending().OnLine(line).IsEmpty()
}

// Process should be called cyclically, it retries mailboxes that could not be sent.
// Returns the last bus error of this pass, nil once every pending mailbox went out.
func (p *Peripheral) Process() error {
	return p.flush()
}

// Number of frames successfully put on the bus
func (p *Peripheral) SentFrames() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sentFrames
}
