package peripheral

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	bxcan "github.com/samsamfire/gobxcan"
	can "github.com/samsamfire/gobxcan/pkg/can"
	"github.com/samsamfire/gobxcan/pkg/irq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Driver state shared between the test body and the handlers
type State struct {
	can1 *Peripheral
}

func newState(t *testing.T) *State {
	return &State{can1: newPeripheral(t, newBus(t, false), Config{Loopback: true, Silent: true})}
}

// Send a frame and wait for it to come back through loopback
func (s *State) roundtripFrame(frame can.Frame) bool {
	if _, err := s.can1.Transmit(frame); err != nil {
		return false
	}
	for !s.can1.IsTransmitterIdle() {
		_ = s.can1.Process()
	}
	received, err := s.can1.Receive(Fifo0)
	return err == nil && received == frame
}

func TestTxInterrupt(t *testing.T) {
	state := newState(t)
	controller := irq.NewController(irq.DefaultMaxReentries)
	controller.Attach(state.can1)

	state.can1.EnableInterrupt(bxcan.TransmitMailboxEmpty)
	assert.False(t, state.can1.Status().Contains(bxcan.TransmitMailboxEmpty))

	shared := irq.NewMutex(*state)
	var txFired atomic.Bool
	var pendingInHandler, statusAfterClear bxcan.Interrupts

	controller.Scope(func(scope *irq.Scope) {
		require.Nil(t, scope.Register(bxcan.LineTx, func(_ *irq.CriticalSection) {
			controller.Free(func(cs *irq.CriticalSection) {
				can1 := shared.Borrow(cs).can1
				pendingInHandler = can1.Pending()
				can1.ClearTxInterrupt()
				statusAfterClear = can1.Status()
			})
			txFired.Store(true)
		}))

		assert.False(t, txFired.Load())
		frame := can.NewFrame(0, 0, 0)
		controller.Free(func(cs *irq.CriticalSection) {
			assert.True(t, shared.Borrow(cs).roundtripFrame(frame))
			// Delivery is held off until the critical section ends
			assert.False(t, txFired.Load())
		})
		assert.True(t, txFired.Load())
	})

	assert.EqualValues(t, 1, controller.Invocations(bxcan.LineTx))
	assert.Equal(t, bxcan.NewInterrupts(bxcan.TransmitMailboxEmpty), pendingInHandler)
	assert.False(t, statusAfterClear.Contains(bxcan.TransmitMailboxEmpty))
	assert.False(t, state.can1.Status().Contains(bxcan.TransmitMailboxEmpty))
	assert.Nil(t, controller.Err())
}

func TestRxFifo0Aliasing(t *testing.T) {
	state := newState(t)
	controller := irq.NewController(irq.DefaultMaxReentries)
	controller.Attach(state.can1)
	state.can1.EnableInterrupts(bxcan.NewInterrupts(bxcan.Fifo0Full, bxcan.Fifo0Overrun))

	shared := irq.NewMutex(*state)
	var decoded bxcan.Interrupts
	var receiveErr error
	controller.Scope(func(scope *irq.Scope) {
		require.Nil(t, scope.Register(bxcan.LineRxFifo0, func(cs *irq.CriticalSection) {
			can1 := shared.Borrow(cs).can1
			decoded = can1.Status()
			if decoded.Contains(bxcan.Fifo0Overrun) {
				_, receiveErr = can1.Receive(Fifo0)
			}
			if decoded.Contains(bxcan.Fifo0Full) {
				_, _ = can1.Receive(Fifo0)
			}
		}))

		controller.Free(func(cs *irq.CriticalSection) {
			can1 := shared.Borrow(cs).can1
			for i := 0; i < FifoDepth; i++ {
				can1.Handle(can.NewFrame(uint32(i), 0, 0))
			}
			// Only keep the overrun : full flag is cleared while the fifo stays full
			can1.ClearFifoFullFlag(Fifo0)
			can1.Handle(can.NewFrame(0x99, 0, 0))
		})
	})

	assert.EqualValues(t, 1, controller.Invocations(bxcan.LineRxFifo0))
	assert.True(t, decoded.Contains(bxcan.Fifo0Overrun))
	assert.False(t, decoded.Contains(bxcan.Fifo0Full))
	assert.True(t, errors.Is(receiveErr, bxcan.ErrOverrun))
	assert.True(t, state.can1.Pending().IsEmpty())
	assert.False(t, state.can1.Asserted(bxcan.LineRxFifo0))
	assert.Equal(t, FifoDepth, state.can1.FramesPending(Fifo0))
	assert.Nil(t, controller.Err())
}

func TestStatusChangeAliasing(t *testing.T) {
	state := newState(t)
	controller := irq.NewController(irq.DefaultMaxReentries)
	controller.Attach(state.can1)
	state.can1.EnableInterrupts(bxcan.NewInterrupts(bxcan.Error, bxcan.Wakeup, bxcan.Sleep))

	var decoded []bxcan.Interrupts
	controller.Register(bxcan.LineStatusChange, func(cs *irq.CriticalSection) {
		status := state.can1.Status().OnLine(bxcan.LineStatusChange)
		decoded = append(decoded, status)
		if status.Contains(bxcan.Error) {
			state.can1.ClearErrorInterrupt()
		}
		if status.Contains(bxcan.Wakeup) {
			state.can1.ClearWakeupInterrupt()
		}
		if status.Contains(bxcan.Sleep) {
			state.can1.ClearSleepInterrupt()
		}
	})

	controller.Free(func(cs *irq.CriticalSection) {
		state.can1.RaiseError(BusOff, LecBitDominant)
		state.can1.Sleep()
	})
	assert.Equal(t, []bxcan.Interrupts{bxcan.NewInterrupts(bxcan.Error, bxcan.Sleep)}, decoded)

	controller.Free(func(cs *irq.CriticalSection) {
		state.can1.Handle(can.NewFrame(0x1, 0, 0))
	})
	assert.Equal(t, bxcan.NewInterrupts(bxcan.Wakeup), decoded[1])
	assert.EqualValues(t, 2, controller.Invocations(bxcan.LineStatusChange))
	assert.True(t, state.can1.Pending().IsEmpty())
}

func TestMissingAcknowledgment(t *testing.T) {
	state := newState(t)
	controller := irq.NewController(4)
	controller.Attach(state.can1)
	state.can1.EnableInterrupt(bxcan.Fifo0MessagePending)
	// Handler looks at the status but never drains the fifo
	controller.Register(bxcan.LineRxFifo0, func(cs *irq.CriticalSection) {
		_ = state.can1.Status()
	})
	controller.Free(func(cs *irq.CriticalSection) {
		state.can1.Handle(can.NewFrame(0x1, 0, 0))
	})
	assert.EqualValues(t, 4, controller.Invocations(bxcan.LineRxFifo0))
	assert.True(t, errors.Is(controller.Err(), bxcan.ErrInterruptStorm))
	assert.True(t, controller.IsMasked(bxcan.LineRxFifo0))
}

func TestAsyncReceptionFromPeer(t *testing.T) {
	bus := newBus(t, true)
	p := newPeripheral(t, bus, Config{})
	peer := newPeripheral(t, newBus(t, true), Config{})
	p.EnableInterrupt(bxcan.Fifo0MessagePending)

	controller := irq.NewController(irq.DefaultMaxReentries)
	controller.Attach(p)
	var received atomic.Int32
	controller.Register(bxcan.LineRxFifo0, func(cs *irq.CriticalSection) {
		// Drain the fifo
		for {
			_, err := p.Receive(Fifo0)
			if errors.Is(err, bxcan.ErrWouldBlock) {
				return
			}
			received.Add(1)
		}
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go controller.Run(ctx)

	for i := 0; i < 5; i++ {
		_, err := peer.Transmit(can.NewFrame(uint32(0x100+i), 0, 0))
		assert.Nil(t, err)
		peer.ClearTxInterrupt()
		expected := int32(i + 1)
		assert.Eventually(t, func() bool { return received.Load() == expected }, time.Second, 5*time.Millisecond)
	}
	assert.Nil(t, controller.Err())
}
