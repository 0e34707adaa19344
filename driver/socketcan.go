package driver

import (
	"context"
	"fmt"
	"sync"

	"github.com/brutella/can"
)

// SocketCAN is a CANDriver backed by a Linux SocketCAN interface via
// github.com/brutella/can. Init binds the interface; Start runs the
// library's blocking publish loop in its own goroutine.
type SocketCAN struct {
	ifaceName string
	bus       *can.Bus

	ctx    context.Context
	cancel context.CancelFunc

	rx chan RawFrame

	wg      sync.WaitGroup
	runErr  error
	runOnce sync.Once
}

func NewSocketCAN(ifaceName string) *SocketCAN {
	ctx, cancel := context.WithCancel(context.Background())
	return &SocketCAN{
		ifaceName: ifaceName,
		ctx:       ctx,
		cancel:    cancel,
		rx:        make(chan RawFrame, 256),
	}
}

func (s *SocketCAN) Init() error {
	bus, err := can.NewBusForInterfaceWithName(s.ifaceName)
	if err != nil {
		return fmt.Errorf("driver: opening socketcan interface %q: %w", s.ifaceName, err)
	}
	s.bus = bus
	s.bus.SubscribeFunc(s.handleFrame)
	return nil
}

func (s *SocketCAN) Start() error {
	if s.bus == nil {
		return fmt.Errorf("driver: Start called before Init")
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(s.rx)
		if err := s.bus.ConnectAndPublish(); err != nil {
			s.runOnce.Do(func() { s.runErr = err })
			s.cancel()
		}
	}()
	return nil
}

func (s *SocketCAN) Stop() {
	s.cancel()
	if s.bus != nil {
		_ = s.bus.Disconnect()
	}
	s.wg.Wait()
}

func (s *SocketCAN) Write(frame RawFrame) error {
	if s.bus == nil {
		return fmt.Errorf("driver: Write called before Init")
	}
	var data [8]uint8
	copy(data[:], frame.Data[:frame.Length])
	return s.bus.Publish(can.Frame{
		ID:     frame.ID | 0x80000000, // extended frame format
		Length: frame.Length,
		Data:   data,
	})
}

func (s *SocketCAN) RxChan() <-chan RawFrame { return s.rx }

func (s *SocketCAN) Context() context.Context { return s.ctx }

func (s *SocketCAN) handleFrame(frame can.Frame) {
	id := frame.ID & 0x1FFFFFFF
	raw := RawFrame{ID: id, Length: frame.Length}
	copy(raw.Data[:], frame.Data[:])
	select {
	case s.rx <- raw:
	case <-s.ctx.Done():
	}
}
