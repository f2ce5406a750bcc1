package peripheral

import log "github.com/sirupsen/logrus"

// Flag an error in the error status register, raises the Error condition
func (p *Peripheral) RaiseError(flags ErrorFlags, lec LastErrorCode) {
	p.mu.Lock()
	p.errFlags |= flags
	p.lec = lec
	p.erri = true
	p.mu.Unlock()
	log.Debugf("[PERIPH] error flags 0x%x, last error code : %v", flags, lec)
	p.notify()
}

// Content of the error status register
func (p *Peripheral) ErrorStatus() (ErrorFlags, LastErrorCode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errFlags, p.lec
}

// Recover from error state, e.g. after bus off recovery
func (p *Peripheral) ResetErrorStatus() {
	p.mu.Lock()
	p.errFlags = 0
	p.lec = LecNoError
	p.mu.Unlock()
}

// Acknowledges the Error condition, the error status register is left as is
func (p *Peripheral) ClearErrorInterrupt() {
	p.mu.Lock()
	p.erri = false
	p.mu.Unlock()
	p.notify()
}

// Request sleep mode, raises the Sleep condition
func (p *Peripheral) Sleep() {
	p.mu.Lock()
	p.sleeping = true
	p.slaki = true
	p.mu.Unlock()
	log.Debug("[PERIPH] entering sleep mode")
	p.notify()
}

// Leave sleep mode on request of the host
func (p *Peripheral) WakeUp() {
	p.mu.Lock()
	p.sleeping = false
	p.mu.Unlock()
	log.Debug("[PERIPH] leaving sleep mode")
	p.notify()
}

func (p *Peripheral) IsSleeping() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sleeping
}

// Acknowledges the Wakeup condition
func (p *Peripheral) ClearWakeupInterrupt() {
	p.mu.Lock()
	p.wkui = false
	p.mu.Unlock()
	p.notify()
}

// Acknowledges the Sleep condition
func (p *Peripheral) ClearSleepInterrupt() {
	p.mu.Lock()
	p.slaki = false
	p.mu.Unlock()
	p.notify()
}
