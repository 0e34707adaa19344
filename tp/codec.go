package tp

// Multiplexor values for Connection Management frames (byte 0 of an
// 0xEC00 frame).
const (
	muxRequestToSend     byte = 0x10
	muxClearToSend       byte = 0x11
	muxEndOfMessageAck   byte = 0x13
	muxBroadcastAnnounce byte = 0x20
	muxConnectionAbort   byte = 0xFF
)

// AbortReason is the wire value carried in byte 1 of an Abort frame.
type AbortReason uint8

const (
	AbortAlreadyInCMSession                         AbortReason = 1
	AbortSystemResourcesNeeded                       AbortReason = 2
	AbortTimeout                                     AbortReason = 3
	AbortClearToSendReceivedWhileTransferInProgress AbortReason = 4
	AbortMaximumRetransmitRequestLimitReached       AbortReason = 5
	AbortUnexpectedDataTransferPacketReceived       AbortReason = 6
	AbortBadSequenceNumber                          AbortReason = 7
	AbortDuplicateSequenceNumber                    AbortReason = 8
	AbortAnyOtherError                              AbortReason = 250
)

// decodePGN24 decodes a little-endian 24-bit PGN from three wire bytes.
// The original implementation this engine is modeled on reads the high
// byte twice (data.at(index+2) for both shifts); that is treated as a
// defect here, not reproduced.
func decodePGN24(b0, b1, b2 byte) uint32 {
	return uint32(b0) | uint32(b1)<<8 | uint32(b2)<<16
}

func encodePGN24(pgn uint32) (b0, b1, b2 byte) {
	return byte(pgn), byte(pgn >> 8), byte(pgn >> 16)
}

// encodeBAM builds a Broadcast Announce Message.
func encodeBAM(pgn uint32, totalSize, totalPackets int) [8]byte {
	b0, b1, b2 := encodePGN24(pgn)
	return [8]byte{muxBroadcastAnnounce, byte(totalSize), byte(totalSize >> 8), byte(totalPackets), 0xFF, b0, b1, b2}
}

// encodeRTS builds a Request To Send.
func encodeRTS(pgn uint32, totalSize, totalPackets, ctsMax int) [8]byte {
	b0, b1, b2 := encodePGN24(pgn)
	return [8]byte{muxRequestToSend, byte(totalSize), byte(totalSize >> 8), byte(totalPackets), byte(ctsMax), b0, b1, b2}
}

// encodeCTS builds a Clear To Send. packetsToSend == 0 means "hold".
func encodeCTS(pgn uint32, packetsToSend, nextPacketNumber int) [8]byte {
	b0, b1, b2 := encodePGN24(pgn)
	return [8]byte{muxClearToSend, byte(packetsToSend), byte(nextPacketNumber), 0xFF, 0xFF, b0, b1, b2}
}

// encodeEOMA builds an End Of Message Acknowledge.
func encodeEOMA(pgn uint32, totalSize, totalPackets int) [8]byte {
	b0, b1, b2 := encodePGN24(pgn)
	return [8]byte{muxEndOfMessageAck, byte(totalSize), byte(totalSize >> 8), byte(totalPackets), 0xFF, b0, b1, b2}
}

// encodeAbort builds a Connection Abort.
func encodeAbort(pgn uint32, reason AbortReason) [8]byte {
	b0, b1, b2 := encodePGN24(pgn)
	return [8]byte{muxConnectionAbort, byte(reason), 0xFF, 0xFF, 0xFF, b0, b1, b2}
}

// encodeDataTransfer builds a data-transfer frame for 1-based sequence
// number seqNo, padding unused trailing bytes with 0xFF.
func encodeDataTransfer(seqNo uint8, chunk []byte) [8]byte {
	var out [8]byte
	out[0] = seqNo
	for i := 1; i < 8; i++ {
		out[i] = 0xFF
	}
	copy(out[1:], chunk)
	return out
}

// cmMessage is the decoded form of an 0xEC00 Connection Management frame.
type cmMessage struct {
	Mux                       byte
	PGN                       uint32
	TotalMessageSize          int
	TotalNumberOfPackets      int
	ClearToSendPacketCountMax int
	PacketsToSend             int
	NextPacketNumber          int
	AbortReason               AbortReason
}

// decodeCM decodes the 8 data bytes of a Connection Management frame.
func decodeCM(data [8]byte) cmMessage {
	msg := cmMessage{Mux: data[0], PGN: decodePGN24(data[5], data[6], data[7])}
	switch data[0] {
	case muxBroadcastAnnounce, muxRequestToSend:
		msg.TotalMessageSize = int(data[1]) | int(data[2])<<8
		msg.TotalNumberOfPackets = int(data[3])
		msg.ClearToSendPacketCountMax = int(data[4])
	case muxClearToSend:
		msg.PacketsToSend = int(data[1])
		msg.NextPacketNumber = int(data[2])
	case muxEndOfMessageAck:
		msg.TotalMessageSize = int(data[1]) | int(data[2])<<8
		msg.TotalNumberOfPackets = int(data[3])
	case muxConnectionAbort:
		msg.AbortReason = AbortReason(data[1])
	}
	return msg
}

// dataTransferSeqNo reads the sequence number from byte 0 of a data
// transfer frame.
func dataTransferSeqNo(data [8]byte) int {
	return int(data[0])
}

// dataTransferPayload returns the 7 payload bytes of a data transfer
// frame (byte 0 is the sequence number).
func dataTransferPayload(data [8]byte) []byte {
	return data[1:]
}
