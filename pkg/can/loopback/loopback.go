package loopback

import (
	"errors"
	"sync"

	can "github.com/samsamfire/gobxcan/pkg/can"
	log "github.com/sirupsen/logrus"
)

// In-process CAN bus, primarily used for testing and simulation.
// All buses created with the same channel name share one hub and see each
// other's frames, like nodes attached to the same physical wire.

func init() {
	can.RegisterInterface("loopback", NewLoopbackBus)
}

var ErrNotConnected = errors.New("error : no active connection, abort send")

type hub struct {
	mu    sync.Mutex
	buses map[*Bus]struct{}
}

var (
	hubsMu sync.Mutex
	hubs   = make(map[string]*hub)
)

func getHub(channel string) *hub {
	hubsMu.Lock()
	defer hubsMu.Unlock()
	h, ok := hubs[channel]
	if !ok {
		h = &hub{buses: make(map[*Bus]struct{})}
		hubs[channel] = h
	}
	return h
}

type Bus struct {
	mu           sync.Mutex
	channel      string
	hub          *hub
	receiveOwn   bool
	framehandler can.FrameListener
}

func NewLoopbackBus(channel string) (can.Bus, error) {
	return &Bus{channel: channel}, nil
}

// "Connect" to the hub named after the channel
func (b *Bus) Connect(...any) error {
	h := getHub(b.channel)
	h.mu.Lock()
	h.buses[b] = struct{}{}
	h.mu.Unlock()
	b.mu.Lock()
	b.hub = h
	b.mu.Unlock()
	log.Debugf("[CAN] loopback bus connected to %v", b.channel)
	return nil
}

// "Disconnect" from the hub
func (b *Bus) Disconnect() error {
	b.mu.Lock()
	h := b.hub
	b.hub = nil
	b.mu.Unlock()
	if h == nil {
		return nil
	}
	h.mu.Lock()
	delete(h.buses, b)
	h.mu.Unlock()
	return nil
}

// "Send" implementation of Bus interface
// Frames are delivered synchronously, on the caller's goroutine
func (b *Bus) Send(frame can.Frame) error {
	b.mu.Lock()
	h := b.hub
	receiveOwn := b.receiveOwn
	own := b.framehandler
	b.mu.Unlock()

	// Local loopback
	if receiveOwn && own != nil {
		own.Handle(frame)
	} else if h == nil {
		return ErrNotConnected
	}
	if h == nil {
		return nil
	}
	h.mu.Lock()
	listeners := make([]can.FrameListener, 0, len(h.buses))
	for peer := range h.buses {
		if peer == b {
			continue
		}
		peer.mu.Lock()
		if peer.framehandler != nil {
			listeners = append(listeners, peer.framehandler)
		}
		peer.mu.Unlock()
	}
	h.mu.Unlock()
	for _, listener := range listeners {
		listener.Handle(frame)
	}
	return nil
}

// "Subscribe" implementation of Bus interface
func (b *Bus) Subscribe(framehandler can.FrameListener) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.framehandler = framehandler
	return nil
}

func (b *Bus) SetReceiveOwn(receiveOwn bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receiveOwn = receiveOwn
}
