package tp

// Parameter group numbers carrying transport protocol traffic.
const (
	PGNConnectionManagement uint32 = 0xEC00
	PGNDataTransfer         uint32 = 0xEB00
)

// PriorityLowest is the priority value used for every frame the engine
// emits. Upstream-delivered reassembled messages are reported at
// PriorityDefault by convention.
const (
	PriorityLowest  uint8 = 7
	PriorityDefault uint8 = 6
)

// Frame is the 8-byte payload the engine exchanges with the bus, stripped
// down to what the transport protocol needs: the PGN it travels under,
// its 8 data bytes, and the resolved source/destination handles. A nil
// Destination means the frame is (or was) addressed to the global
// destination.
type Frame struct {
	PGN         uint32
	Data        [8]byte
	Source      ControlFunction
	Destination ControlFunction
}

// IsBroadcast reports whether the frame has no specific destination.
func (f Frame) IsBroadcast() bool {
	return f.Destination == nil
}

// FrameSink is the synchronous CAN transmit function the engine calls to
// emit a frame. It returns true if the frame was accepted by the
// underlying transport (the engine considers it sent), false on
// backpressure. A refused BAM, RTS, CTS or data frame is retried on the
// next tick; a refused Abort or EOMA frame is not retried.
type FrameSink func(pgn uint32, data [8]byte, source *InternalControlFunction, destination ControlFunction, priority uint8) bool

// IncomingFrame is what the frame source hands to Engine.ProcessMessage.
// Data is whatever length the driver decoded off the bus; the engine
// validates it is exactly 8 bytes before acting on it and discards
// anything else with a logged warning.
type IncomingFrame struct {
	PGN         uint32
	Data        []byte
	Source      ControlFunction
	Destination ControlFunction
}

// ReceivedMessage is what the engine hands upstream once a reassembly
// completes.
type ReceivedMessage struct {
	PGN         uint32
	Priority    uint8
	Source      ControlFunction
	Destination ControlFunction // nil for a broadcast transfer
	Data        []byte
}

// MessageReceivedFunc is invoked synchronously, once, the moment a
// reassembly completes. It must not call back into the engine.
type MessageReceivedFunc func(msg ReceivedMessage)

// TransmitCompleteFunc is invoked when a Transmit session this node
// created finishes, successfully or not.
type TransmitCompleteFunc func(pgn uint32, size int, source ControlFunction, destination ControlFunction, success bool, userData any)
