// Package bxcan models the interrupt sources of a bxCAN peripheral.
//
// The peripheral can raise ten distinct conditions but only exposes four
// interrupt lines to the processor (TX, RX FIFO 0, RX FIFO 1 and Status Change).
// Several conditions therefore share one handler, and a handler must decode the
// status register to know which of them is actually pending.
package bxcan

import (
	"fmt"
	"strings"
)

// Interrupt is a single bxCAN interrupt source.
// Its value is the mask of the corresponding bit inside the interrupt
// enable and status registers. These values are fixed by the peripheral
// register layout and must never be renumbered.
type Interrupt uint32

const (
	// Fires the TX interrupt when one of the transmit mailboxes returns to empty state.
	// This usually happens because its message was either transmitted successfully,
	// or transmission was aborted successfully.
	// The handler must clear the condition with ClearRequestCompletedFlag or ClearTxInterrupt.
	TransmitMailboxEmpty Interrupt = 1 << 0

	// Fires the RX FIFO 0 interrupt when FIFO 0 holds a message.
	// The handler must clear the condition by receiving all messages from the FIFO.
	Fifo0MessagePending Interrupt = 1 << 1

	// Fires the RX FIFO 0 interrupt when FIFO 0 holds 3 incoming messages.
	// The handler must clear the condition by receiving at least one message.
	Fifo0Full Interrupt = 1 << 2

	// Fires the RX FIFO 0 interrupt when FIFO 0 drops an incoming message.
	// The handler must clear the condition by receiving, which returns ErrOverrun.
	Fifo0Overrun Interrupt = 1 << 3

	// Same as Fifo0MessagePending for FIFO 1.
	Fifo1MessagePending Interrupt = 1 << 4

	// Same as Fifo0Full for FIFO 1.
	Fifo1Full Interrupt = 1 << 5

	// Same as Fifo0Overrun for FIFO 1.
	Fifo1Overrun Interrupt = 1 << 6

	// Fires the Status Change interrupt when an error condition is flagged
	// in the error status register.
	Error Interrupt = 1 << 15

	// Fires the Status Change interrupt when start of frame is detected while asleep.
	Wakeup Interrupt = 1 << 16

	// Fires the Status Change interrupt when the peripheral enters sleep mode.
	Sleep Interrupt = 1 << 17
)

// All interrupt sources, ordered by bit position
var AllInterrupts = []Interrupt{
	TransmitMailboxEmpty,
	Fifo0MessagePending,
	Fifo0Full,
	Fifo0Overrun,
	Fifo1MessagePending,
	Fifo1Full,
	Fifo1Overrun,
	Error,
	Wakeup,
	Sleep,
}

type interruptInfo struct {
	name string
	bit  uint
	line Line
	ack  string
}

var interruptTable = map[Interrupt]interruptInfo{
	TransmitMailboxEmpty: {"TransmitMailboxEmpty", 0, LineTx, "ClearRequestCompletedFlag(mailbox) or ClearTxInterrupt()"},
	Fifo0MessagePending:  {"Fifo0MessagePending", 1, LineRxFifo0, "Receive(Fifo0) until empty"},
	Fifo0Full:            {"Fifo0Full", 2, LineRxFifo0, "Receive(Fifo0) at least once"},
	Fifo0Overrun:         {"Fifo0Overrun", 3, LineRxFifo0, "Receive(Fifo0), returns ErrOverrun"},
	Fifo1MessagePending:  {"Fifo1MessagePending", 4, LineRxFifo1, "Receive(Fifo1) until empty"},
	Fifo1Full:            {"Fifo1Full", 5, LineRxFifo1, "Receive(Fifo1) at least once"},
	Fifo1Overrun:         {"Fifo1Overrun", 6, LineRxFifo1, "Receive(Fifo1), returns ErrOverrun"},
	Error:                {"Error", 15, LineStatusChange, "ClearErrorInterrupt()"},
	Wakeup:               {"Wakeup", 16, LineStatusChange, "ClearWakeupInterrupt()"},
	Sleep:                {"Sleep", 17, LineStatusChange, "ClearSleepInterrupt()"},
}

// Returned by Bit for a value that is not a catalogued source, past the end of the register
const NoBit uint = 32

// Bit returns the bit position of the interrupt inside the enable and status registers,
// NoBit if i is not catalogued
func (i Interrupt) Bit() uint {
	info, ok := interruptTable[i]
	if !ok {
		return NoBit
	}
	return info.bit
}

// Line returns the physical interrupt line this source is aliased onto,
// LineNone if i is not catalogued
func (i Interrupt) Line() Line {
	info, ok := interruptTable[i]
	if !ok {
		return LineNone
	}
	return info.line
}

// Set returns the singleton set containing only this interrupt
func (i Interrupt) Set() Interrupts {
	return InterruptsFromBits(uint32(i))
}

// Acknowledgment describes the action a handler must take to clear the condition
func (i Interrupt) Acknowledgment() string {
	return interruptTable[i].ack
}

// Valid reports whether i is one of the catalogued sources
func (i Interrupt) Valid() bool {
	_, ok := interruptTable[i]
	return ok
}

func (i Interrupt) String() string {
	info, ok := interruptTable[i]
	if !ok {
		return fmt.Sprintf("Interrupt(0x%x)", uint32(i))
	}
	return info.name
}

// ParseInterrupt returns the interrupt matching name, ignoring case
func ParseInterrupt(name string) (Interrupt, error) {
	trimmed := strings.TrimSpace(name)
	for _, i := range AllInterrupts {
		if strings.EqualFold(interruptTable[i].name, trimmed) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w : %q", ErrUnknownInterrupt, name)
}
