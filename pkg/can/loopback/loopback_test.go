package loopback

import (
	"sync"
	"testing"

	can "github.com/samsamfire/gobxcan/pkg/can"
	"github.com/stretchr/testify/assert"
)

type FrameReceiver struct {
	mu     sync.Mutex
	frames []can.Frame
}

func (frameReceiver *FrameReceiver) Handle(frame can.Frame) {
	frameReceiver.mu.Lock()
	defer frameReceiver.mu.Unlock()
	frameReceiver.frames = append(frameReceiver.frames, frame)
}

func newLoopback(t *testing.T, channel string) *Bus {
	canBus, err := can.NewBus("loopback", channel)
	assert.Nil(t, err)
	bus, ok := canBus.(*Bus)
	assert.True(t, ok)
	return bus
}

func TestSendAndSubscribe(t *testing.T) {
	bus1 := newLoopback(t, t.Name())
	bus2 := newLoopback(t, t.Name())
	assert.Nil(t, bus1.Connect())
	assert.Nil(t, bus2.Connect())
	defer bus1.Disconnect()
	defer bus2.Disconnect()

	frameReceiver := FrameReceiver{frames: make([]can.Frame, 0)}
	assert.Nil(t, bus2.Subscribe(&frameReceiver))
	frame := can.Frame{ID: 0x111, Flags: 0, DLC: 8, Data: [8]byte{0, 1, 2, 3, 4, 5, 6, 7}}
	for i := 0; i < 10; i++ {
		frame.Data[0] = uint8(i)
		assert.Nil(t, bus1.Send(frame))
	}
	assert.Len(t, frameReceiver.frames, 10)
	for i, frame := range frameReceiver.frames {
		assert.EqualValues(t, 0x111, frame.ID)
		assert.EqualValues(t, uint8(i), frame.Data[0])
	}
}

func TestChannelsAreIsolated(t *testing.T) {
	bus1 := newLoopback(t, t.Name()+"a")
	bus2 := newLoopback(t, t.Name()+"b")
	assert.Nil(t, bus1.Connect())
	assert.Nil(t, bus2.Connect())
	defer bus1.Disconnect()
	defer bus2.Disconnect()
	frameReceiver := FrameReceiver{}
	bus2.Subscribe(&frameReceiver)
	assert.Nil(t, bus1.Send(can.NewFrame(0x10, 0, 0)))
	assert.Len(t, frameReceiver.frames, 0)
}

func TestReceiveOwn(t *testing.T) {
	bus1 := newLoopback(t, t.Name())
	frameReceiver := FrameReceiver{frames: make([]can.Frame, 0)}
	bus1.Subscribe(&frameReceiver)
	frame := can.Frame{ID: 0x111, Flags: 0, DLC: 8, Data: [8]byte{0, 1, 2, 3, 4, 5, 6, 7}}

	// Not connected and not receiving own frames
	assert.Equal(t, ErrNotConnected, bus1.Send(frame))
	assert.Len(t, frameReceiver.frames, 0)

	// Activate receive own
	bus1.SetReceiveOwn(true)
	assert.Nil(t, bus1.Send(frame))
	assert.Len(t, frameReceiver.frames, 1)
}
