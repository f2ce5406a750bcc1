package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	bxcan "github.com/samsamfire/gobxcan"
	can "github.com/samsamfire/gobxcan/pkg/can"
	"github.com/samsamfire/gobxcan/pkg/config"
	"github.com/samsamfire/gobxcan/pkg/irq"
	"github.com/samsamfire/gobxcan/pkg/peripheral"
	log "github.com/sirupsen/logrus"
)

type simulateCmd struct {
	Config   string        `short:"c" type:"existingfile" help:"simulator .ini configuration"`
	Frames   int           `default:"4" help:"number of frames to transmit"`
	NoEvents bool          `help:"do not raise error, sleep and wakeup conditions"`
	Duration time.Duration `default:"0s" help:"keep listening on the bus for this long"`
}

func (s *simulateCmd) Run(ctx *kong.Context) error {
	cfg := config.Default()
	if s.Config != "" {
		loaded, err := config.Load(s.Config)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if !cli.Debug {
		log.SetLevel(cfg.LogLevel)
	}

	bus, err := can.NewBus(cfg.Interface, cfg.Channel)
	if err != nil {
		return err
	}
	err = bus.Connect()
	if err != nil {
		return err
	}
	defer bus.Disconnect()

	can1, err := peripheral.New(bus, cfg.Peripheral)
	if err != nil {
		return err
	}
	controller := irq.NewController(cfg.MaxReentries)
	controller.Attach(can1)
	for _, line := range bxcan.AllLines {
		err := controller.Register(line, newHandler(can1, line))
		if err != nil {
			return err
		}
	}
	can1.EnableInterrupts(cfg.Enable)
	log.Infof("[SIM] %v:%v, enabled %v", cfg.Interface, cfg.Channel, can1.EnabledInterrupts())

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = controller.Run(runCtx)
	}()

	for i := 0; i < s.Frames; i++ {
		frame := can.Frame{ID: uint32(0x100 + i), DLC: 1, Data: [8]byte{uint8(i)}}
		controller.Free(func(cs *irq.CriticalSection) {
			_, err = can1.Transmit(frame)
		})
		if err != nil {
			log.Warnf("[SIM] transmit %x : %v", frame.ID, err)
		}
	}
	if !s.NoEvents {
		controller.Free(func(cs *irq.CriticalSection) {
			can1.RaiseError(peripheral.ErrorWarning, peripheral.LecAcknowledge)
		})
		controller.Free(func(cs *irq.CriticalSection) {
			can1.Sleep()
		})
		controller.Free(func(cs *irq.CriticalSection) {
			can1.Handle(can.NewFrame(0x0, 0, 0))
			can1.WakeUp()
		})
	}
	if s.Duration > 0 {
		time.Sleep(s.Duration)
	}
	controller.Poll()

	fmt.Fprintln(os.Stdout, "LINE  INVOCATIONS")
	for _, line := range bxcan.AllLines {
		fmt.Fprintf(os.Stdout, "%-4v  %d\n", line, controller.Invocations(line))
	}
	fmt.Fprintf(os.Stdout, "status %v, pending %v\n", can1.Status(), can1.Pending())
	return controller.Err()
}

// Handler decoding the status register and acknowledging every condition aliased on line
func newHandler(can1 *peripheral.Peripheral, line bxcan.Line) irq.Handler {
	return func(cs *irq.CriticalSection) {
		pending := can1.Pending().OnLine(line)
		log.Infof("[SIM] line %v : %v", line, pending)
		switch line {
		case bxcan.LineTx:
			can1.ClearTxInterrupt()
		case bxcan.LineRxFifo0:
			drain(can1, peripheral.Fifo0)
		case bxcan.LineRxFifo1:
			drain(can1, peripheral.Fifo1)
		case bxcan.LineStatusChange:
			if pending.Contains(bxcan.Error) {
				flags, lec := can1.ErrorStatus()
				log.Warnf("[SIM] error flags 0x%x : %v", flags, lec)
				can1.ClearErrorInterrupt()
			}
			if pending.Contains(bxcan.Wakeup) {
				can1.ClearWakeupInterrupt()
			}
			if pending.Contains(bxcan.Sleep) {
				can1.ClearSleepInterrupt()
			}
		}
	}
}

// Receive every frame of a FIFO, which acknowledges pending, full and overrun
func drain(can1 *peripheral.Peripheral, selected peripheral.Fifo) {
	for {
		frame, err := can1.Receive(selected)
		switch {
		case errors.Is(err, bxcan.ErrWouldBlock):
			return
		case errors.Is(err, bxcan.ErrOverrun):
			log.Warnf("[SIM] %v : %v", selected, err)
		case err != nil:
			log.Errorf("[SIM] %v : %v", selected, err)
			return
		default:
			log.Infof("[SIM] %v received %x [%d] % x", selected, frame.ID, frame.DLC, frame.Data[:frame.DLC])
		}
	}
}
