package peripheral

import (
	bxcan "github.com/samsamfire/gobxcan"
	can "github.com/samsamfire/gobxcan/pkg/can"
	log "github.com/sirupsen/logrus"
)

// Status of a transmit mailbox
type MailboxStatus struct {
	Empty            bool
	RequestCompleted bool
	TransmitOk       bool
}

// Put a frame in the first empty mailbox and request its transmission.
// Returns ErrWouldBlock if all mailboxes are busy.
func (p *Peripheral) Transmit(frame can.Frame) (Mailbox, error) {
	p.mu.Lock()
	if p.sleeping {
		p.mu.Unlock()
		return 0, bxcan.ErrSleeping
	}
	index := -1
	for i, mb := range p.mailboxes {
		if mb.state == mailboxEmpty {
			index = i
			break
		}
	}
	if index < 0 {
		p.mu.Unlock()
		return 0, bxcan.ErrWouldBlock
	}
	p.mailboxes[index] = mailbox{frame: frame, state: mailboxPending}
	p.mu.Unlock()
	_ = p.flush()
	return Mailbox(index), nil
}

// Send every pending mailbox.
// The lock is released while the bus is in use, the bus may call back into Handle.
func (p *Peripheral) flush() error {
	var failed error
	for i := range p.mailboxes {
		p.mu.Lock()
		mb := &p.mailboxes[i]
		if mb.state != mailboxPending {
			p.mu.Unlock()
			continue
		}
		mb.state = mailboxTransmitting
		frame := mb.frame
		config := p.config
		bus := p.bus
		p.mu.Unlock()

		var err error
		if !config.Silent {
			if bus == nil {
				err = bxcan.ErrWouldBlock
			} else {
				err = bus.Send(frame)
			}
		}

		p.mu.Lock()
		// Aborted meanwhile
		if mb.state != mailboxTransmitting {
			p.mu.Unlock()
			continue
		}
		// In loopback mode the acknowledgment of the bus is ignored
		if err != nil && !config.Loopback {
			mb.state = mailboxPending
			p.mu.Unlock()
			log.Warnf("[PERIPH] %v transmission of %x failed : %v", Mailbox(i), frame.ID, err)
			failed = err
			continue
		}
		mb.state = mailboxEmpty
		mb.requestCompleted = true
		mb.transmitOk = true
		if err == nil && !config.Silent {
			p.sentFrames++
		}
		if config.Loopback {
			p.receive(frame)
		}
		p.mu.Unlock()
		log.Debugf("[PERIPH] %v transmitted %x", Mailbox(i), frame.ID)
		p.notify()
	}
	return failed
}

// Abort a pending transmission, returns true if the mailbox was aborted.
// The mailbox becomes empty and flags a completed request.
func (p *Peripheral) Abort(mailbox Mailbox) bool {
	if int(mailbox) >= NumMailboxes {
		return false
	}
	p.mu.Lock()
	mb := &p.mailboxes[mailbox]
	if mb.state == mailboxEmpty {
		p.mu.Unlock()
		return false
	}
	mb.state = mailboxEmpty
	mb.requestCompleted = true
	mb.transmitOk = false
	p.mu.Unlock()
	p.notify()
	return true
}

func (p *Peripheral) MailboxStatus(mailbox Mailbox) (MailboxStatus, error) {
	if int(mailbox) >= NumMailboxes {
		return MailboxStatus{}, bxcan.ErrIllegalArgument
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	mb := p.mailboxes[mailbox]
	return MailboxStatus{
		Empty:            mb.state == mailboxEmpty,
		RequestCompleted: mb.requestCompleted,
		TransmitOk:       mb.transmitOk,
	}, nil
}

// True if no mailbox is waiting for transmission
func (p *Peripheral) IsTransmitterIdle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, mb := range p.mailboxes {
		if mb.state != mailboxEmpty {
			return false
		}
	}
	return true
}

// Clear the request completed flag of a single mailbox.
// Acknowledges TransmitMailboxEmpty once no other mailbox has its flag set.
// Returns false if the flag was not set.
func (p *Peripheral) ClearRequestCompletedFlag(mailbox Mailbox) bool {
	if int(mailbox) >= NumMailboxes {
		return false
	}
	p.mu.Lock()
	mb := &p.mailboxes[mailbox]
	wasSet := mb.requestCompleted
	mb.requestCompleted = false
	mb.transmitOk = false
	p.mu.Unlock()
	p.notify()
	return wasSet
}

// Clear the request completed flags of all mailboxes, acknowledges TransmitMailboxEmpty
func (p *Peripheral) ClearTxInterrupt() {
	p.mu.Lock()
	for i := range p.mailboxes {
		p.mailboxes[i].requestCompleted = false
		p.mailboxes[i].transmitOk = false
	}
	p.mu.Unlock()
	p.notify()
}
