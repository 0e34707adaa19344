package tp

// Direction distinguishes a session this node is sending (Transmit) from
// one it is reassembling (Receive).
type Direction int

const (
	DirectionTransmit Direction = iota
	DirectionReceive
)

// State is a node in the dual-mode (BAM / CM) transport protocol state
// machine. See spec §4.4.a for the full transition table.
type State int

const (
	StateNone State = iota
	StateBroadcastAnnounce
	StateRequestToSend
	StateWaitForClearToSend
	StateTxDataSession
	StateWaitForEndOfMessageAcknowledge
	StateClearToSend
	StateRxDataSession
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "None"
	case StateBroadcastAnnounce:
		return "BroadcastAnnounce"
	case StateRequestToSend:
		return "RequestToSend"
	case StateWaitForClearToSend:
		return "WaitForClearToSend"
	case StateTxDataSession:
		return "TxDataSession"
	case StateWaitForEndOfMessageAcknowledge:
		return "WaitForEndOfMessageAcknowledge"
	case StateClearToSend:
		return "ClearToSend"
	case StateRxDataSession:
		return "RxDataSession"
	default:
		return "Unknown"
	}
}

const protocolBytesPerFrame = 7

// Session is the central entity: one multi-packet transfer in flight,
// either being reassembled (Receive) or paced out (Transmit).
type Session struct {
	Direction   Direction
	PGN         uint32
	Source      ControlFunction
	Destination ControlFunction // nil for a broadcast session

	Payload              []byte
	TotalMessageSize     int
	TotalNumberOfPackets int
	LastPacketNumber     int

	ClearToSendPacketCount    int
	ClearToSendPacketCountMax int
	packetsThisWindow         int

	State State

	// activity tracks time since the last state-relevant event, for the
	// T1/Tr/T2/T3 timeout checks in the tick driver.
	activity Timer
	// pacing tracks time since the last data frame transmitted, for the
	// BAM minimum inter-frame spacing.
	pacing Timer

	OnComplete TransmitCompleteFunc
	UserData   any
}

func totalPackets(size int) int {
	return (size + protocolBytesPerFrame - 1) / protocolBytesPerFrame
}

// newReceiveSession allocates a session to reassemble an inbound
// transfer. destination is nil for a broadcast (BAM) session.
func newReceiveSession(pgn uint32, totalSize, totalPackets, ctsMax int, source, destination ControlFunction) *Session {
	return &Session{
		Direction:                 DirectionReceive,
		PGN:                       pgn,
		Source:                    source,
		Destination:               destination,
		Payload:                   make([]byte, totalSize),
		TotalMessageSize:          totalSize,
		TotalNumberOfPackets:      totalPackets,
		ClearToSendPacketCountMax: ctsMax,
	}
}

// newTransmitSession allocates a session to pace out an owned payload.
func newTransmitSession(pgn uint32, data []byte, source, destination ControlFunction, onComplete TransmitCompleteFunc, userData any) *Session {
	return &Session{
		Direction:            DirectionTransmit,
		PGN:                  pgn,
		Source:               source,
		Destination:          destination,
		Payload:              data,
		TotalMessageSize:     len(data),
		TotalNumberOfPackets: totalPackets(len(data)),
		OnComplete:           onComplete,
		UserData:             userData,
	}
}

func (s *Session) IsBroadcast() bool {
	return s.Destination == nil
}

func (s *Session) matches(source, destination ControlFunction) bool {
	return s.Source == source && s.Destination == destination
}

// remainingPackets is how many packets are left to receive/send.
func (s *Session) remainingPackets() int {
	return s.TotalNumberOfPackets - s.LastPacketNumber
}
