package bxcan

import "errors"

var (
	ErrIllegalArgument  = errors.New("error in function arguments")
	ErrUnknownInterrupt = errors.New("unknown interrupt source")
	ErrOverrun          = errors.New("receive fifo overrun, a frame was dropped")
	ErrWouldBlock       = errors.New("operation would block, try again")
	ErrInterruptStorm   = errors.New("interrupt line re-triggered without acknowledgment")
	ErrSleeping         = errors.New("peripheral is in sleep mode")
)
