package driver

// J1939 29-bit arbitration field layout:
//
//	bit 28-26  priority
//	bit 25-24  reserved / data page (treated as 0 here)
//	bit 23-16  PDU format (PF)
//	bit 15-8   PDU specific (PS) -- destination address for PDU1, group
//	           extension for PDU2
//	bit 7-0    source address
//
// PF < 240 is PDU1 (peer-to-peer): PS carries a destination address and
// the PGN excludes it. PF >= 240 is PDU2 (broadcast-only): PS is part of
// the PGN and there is no destination.
const (
	pduFormatBroadcastFloor = 240
	arbitrationPriorityMask = 0x7
	arbitrationPriorityBits = 26
)

// globalDestinationAddress is the reserved PS value (0xFF) J1939 uses as
// the destination address of a PDU1-format PGN sent to everyone, e.g. a
// BAM's 0xEC00 frame. It is what lets a PDU1-format broadcast round-trip
// through decodeArbitrationID as a broadcast rather than a directed
// message to address 0x00.
const globalDestinationAddress = 0xFF

// encodeArbitrationID packs a priority, PGN and source address into a
// 29-bit J1939 CAN identifier. destination is ignored for PDU2 PGNs and
// for broadcast PDU1 PGNs, which are addressed to globalDestinationAddress
// instead (the transport protocol's own PGNs are always PDU1, so callers
// always supply a real destination for directed EC00/EB00 traffic).
func encodeArbitrationID(priority uint8, pgn uint32, source uint8, destination uint8, broadcast bool) uint32 {
	id := uint32(priority&arbitrationPriorityMask) << arbitrationPriorityBits
	pf := (pgn >> 8) & 0xFF
	switch {
	case pf >= pduFormatBroadcastFloor:
		id |= (pgn & 0x3FFFF) << 8
	case broadcast:
		id |= pf << 16
		id |= globalDestinationAddress << 8
	default:
		id |= pf << 16
		id |= uint32(destination) << 8
	}
	id |= uint32(source)
	return id
}

// decodeArbitrationID unpacks a 29-bit J1939 identifier into a priority,
// PGN, destination address and source address. broadcast reports whether
// the frame has no single destination: either a PDU2 PGN, or a PDU1 PGN
// addressed to globalDestinationAddress.
func decodeArbitrationID(id uint32) (priority uint8, pgn uint32, destination uint8, source uint8, broadcast bool) {
	id &= 0x1FFFFFFF
	priority = uint8((id >> arbitrationPriorityBits) & arbitrationPriorityMask)
	source = uint8(id & 0xFF)
	pf := (id >> 16) & 0xFF
	ps := (id >> 8) & 0xFF
	switch {
	case pf >= pduFormatBroadcastFloor:
		broadcast = true
		pgn = (pf << 8) | ps
	case ps == globalDestinationAddress:
		broadcast = true
		pgn = pf << 8
	default:
		destination = uint8(ps)
		pgn = pf << 8
	}
	return priority, pgn, destination, source, broadcast
}
