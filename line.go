package bxcan

import "fmt"

// Line is one of the four interrupt signals the peripheral exposes to the processor
type Line uint8

const (
	LineTx           Line = 0
	LineRxFifo0      Line = 1
	LineRxFifo1      Line = 2
	LineStatusChange Line = 3

	// Line of an uncatalogued interrupt, never asserted
	LineNone Line = 0xFF
)

var AllLines = []Line{LineTx, LineRxFifo0, LineRxFifo1, LineStatusChange}

var lineNames = map[Line]string{
	LineTx:           "TX",
	LineRxFifo0:      "RX0",
	LineRxFifo1:      "RX1",
	LineStatusChange: "SCE",
}

var lineInterrupts = map[Line]Interrupts{
	LineTx:           NewInterrupts(TransmitMailboxEmpty),
	LineRxFifo0:      NewInterrupts(Fifo0MessagePending, Fifo0Full, Fifo0Overrun),
	LineRxFifo1:      NewInterrupts(Fifo1MessagePending, Fifo1Full, Fifo1Overrun),
	LineStatusChange: NewInterrupts(Error, Wakeup, Sleep),
}

// Interrupts returns every interrupt source that asserts this line
func (l Line) Interrupts() Interrupts {
	return lineInterrupts[l]
}

func (l Line) Valid() bool {
	_, ok := lineNames[l]
	return ok
}

func (l Line) String() string {
	name, ok := lineNames[l]
	if !ok {
		return fmt.Sprintf("Line(%d)", uint8(l))
	}
	return name
}
