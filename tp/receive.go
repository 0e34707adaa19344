package tp

import "time"

// ProcessMessage dispatches one inbound frame. It must be called
// synchronously with Update -- the engine is not safe for concurrent use.
func (e *Engine) ProcessMessage(now time.Time, f IncomingFrame) {
	if len(f.Data) != 8 {
		e.Logger.Warn().Int("length", len(f.Data)).Msg("tp: discarding frame of invalid length")
		return
	}
	var data [8]byte
	copy(data[:], f.Data)

	switch f.PGN {
	case PGNConnectionManagement:
		e.processConnectionManagement(now, data, f.Source, f.Destination)
	case PGNDataTransfer:
		e.processDataTransfer(now, data, f.Source, f.Destination)
	}
}

func (e *Engine) processConnectionManagement(now time.Time, data [8]byte, source, destination ControlFunction) {
	msg := decodeCM(data)
	broadcast := destination == nil

	switch msg.Mux {
	case muxBroadcastAnnounce:
		if !broadcast {
			e.Logger.Warn().Msg("tp: dropping BAM with a non-global destination")
			return
		}
		e.handleBAM(now, msg, source)
	case muxRequestToSend:
		if broadcast {
			e.Logger.Warn().Msg("tp: dropping RTS with a global destination")
			return
		}
		e.handleRTS(now, msg, source, destination)
	case muxClearToSend:
		if broadcast {
			e.Logger.Warn().Msg("tp: dropping CTS with a global destination")
			return
		}
		e.handleCTS(now, msg, source, destination)
	case muxEndOfMessageAck:
		if broadcast {
			e.Logger.Warn().Msg("tp: dropping EOMA with a global destination")
			return
		}
		e.handleEOMA(now, msg, source, destination)
	case muxConnectionAbort:
		if broadcast {
			e.Logger.Warn().Msg("tp: dropping Abort with a global destination")
			return
		}
		e.handleAbort(now, msg, source, destination)
	default:
		e.Logger.Warn().Uint8("mux", msg.Mux).Msg("tp: unrecognized connection management multiplexor")
	}
}

func (e *Engine) handleBAM(now time.Time, msg cmMessage, source ControlFunction) {
	if e.store.atCapacity() {
		e.Logger.Warn().Msg("tp: ignoring BAM, session store at capacity")
		return
	}
	if existing := e.store.find(source, nil); existing != nil {
		e.store.remove(existing)
	}

	sess := newReceiveSession(msg.PGN, msg.TotalMessageSize, msg.TotalNumberOfPackets, 0, source, nil)
	sess.State = StateRxDataSession
	sess.activity.Touch(now)
	if err := e.store.insert(sess); err != nil {
		e.Logger.Warn().Err(err).Msg("tp: could not install broadcast receive session")
	}
}

func (e *Engine) handleRTS(now time.Time, msg cmMessage, source, destination ControlFunction) {
	if e.store.atCapacity() {
		e.emitAbortFrom(destination, source, msg.PGN, AbortAlreadyInCMSession)
		return
	}

	if existing := e.store.find(source, destination); existing != nil {
		if existing.PGN != msg.PGN {
			e.abortSession(now, existing, AbortAlreadyInCMSession)
			return
		}
		e.store.remove(existing)
	}

	ctsMax := msg.ClearToSendPacketCountMax
	if ctsMax <= 0 || ctsMax > e.cfg.ClearToSendPacketCountMax {
		ctsMax = e.cfg.ClearToSendPacketCountMax
	}

	sess := newReceiveSession(msg.PGN, msg.TotalMessageSize, msg.TotalNumberOfPackets, ctsMax, source, destination)
	sess.State = StateClearToSend
	sess.activity.Touch(now)
	if err := e.store.insert(sess); err != nil {
		e.Logger.Warn().Err(err).Msg("tp: could not install directed receive session")
	}
}

func (e *Engine) handleCTS(now time.Time, msg cmMessage, source, destination ControlFunction) {
	sess := e.store.find(destination, source)
	if sess == nil {
		e.emitAbortFrom(destination, source, msg.PGN, AbortAnyOtherError)
		return
	}
	if sess.PGN != msg.PGN {
		e.abortSession(now, sess, AbortAnyOtherError)
		e.emitAbortFrom(destination, source, msg.PGN, AbortAnyOtherError)
		return
	}
	if msg.NextPacketNumber != sess.LastPacketNumber+1 {
		e.abortSession(now, sess, AbortBadSequenceNumber)
		return
	}
	if sess.State != StateWaitForClearToSend {
		e.abortSession(now, sess, AbortClearToSendReceivedWhileTransferInProgress)
		return
	}

	sess.ClearToSendPacketCount = msg.PacketsToSend
	sess.activity.Touch(now)
	if msg.PacketsToSend == 0 {
		// Hold: remain in WaitForClearToSend until a non-zero grant arrives.
		return
	}
	sess.packetsThisWindow = 0
	sess.State = StateTxDataSession
}

func (e *Engine) handleEOMA(now time.Time, msg cmMessage, source, destination ControlFunction) {
	sess := e.store.find(destination, source)
	if sess == nil {
		e.emitAbortFrom(destination, source, msg.PGN, AbortAnyOtherError)
		return
	}
	if sess.State != StateWaitForEndOfMessageAcknowledge {
		e.Logger.Warn().Msg("tp: received unexpected EOMA, ignoring per standard")
		return
	}
	e.closeSession(sess, true)
}

func (e *Engine) handleAbort(now time.Time, msg cmMessage, source, destination ControlFunction) {
	found := false
	if sess := e.store.find(source, destination); sess != nil && sess.PGN == msg.PGN {
		found = true
		e.closeSession(sess, false)
	}
	if sess := e.store.find(destination, source); sess != nil && sess.PGN == msg.PGN {
		found = true
		e.closeSession(sess, false)
	}
	if !found {
		e.Logger.Warn().Uint32("pgn", msg.PGN).Msg("tp: received abort with no matching session")
	}
}

func (e *Engine) processDataTransfer(now time.Time, data [8]byte, source, destination ControlFunction) {
	broadcast := destination == nil
	key := destination
	if broadcast {
		key = nil
	}

	sess := e.store.find(source, key)
	if sess == nil {
		if !broadcast {
			e.Logger.Warn().Msg("tp: data transfer frame with no matching session, ignoring")
		}
		return
	}
	if sess.State != StateRxDataSession {
		e.abortSession(now, sess, AbortUnexpectedDataTransferPacketReceived)
		return
	}

	seqNo := dataTransferSeqNo(data)
	switch {
	case seqNo == sess.LastPacketNumber:
		e.abortSession(now, sess, AbortDuplicateSequenceNumber)
	case seqNo == sess.LastPacketNumber+1:
		e.acceptDataFrame(now, sess, data, broadcast)
	default:
		e.abortSession(now, sess, AbortBadSequenceNumber)
	}
}

func (e *Engine) acceptDataFrame(now time.Time, sess *Session, data [8]byte, broadcast bool) {
	payload := dataTransferPayload(data)
	offset := sess.LastPacketNumber * protocolBytesPerFrame
	n := len(payload)
	if offset+n > sess.TotalMessageSize {
		n = sess.TotalMessageSize - offset
	}
	copy(sess.Payload[offset:offset+n], payload[:n])

	sess.LastPacketNumber++
	sess.packetsThisWindow++
	sess.activity.Touch(now)

	if sess.LastPacketNumber*protocolBytesPerFrame >= sess.TotalMessageSize {
		if !broadcast {
			e.sendEOMA(sess)
		}
		e.completeReceive(sess)
		return
	}

	if !broadcast && sess.packetsThisWindow >= sess.ClearToSendPacketCount {
		sess.State = StateClearToSend
	}
}

// tickClearToSend emits (or re-emits, for a later window of a large
// transfer) a Clear To Send granting the next batch of packets.
func (e *Engine) tickClearToSend(now time.Time, sess *Session) {
	ours, ok := asInternal(sess.Destination)
	if !ok {
		return
	}
	remaining := sess.remainingPackets()
	grant := sess.ClearToSendPacketCountMax
	if remaining < grant {
		grant = remaining
	}
	frame := encodeCTS(sess.PGN, grant, sess.LastPacketNumber+1)
	if e.emit(PGNConnectionManagement, frame, ours, sess.Source) {
		sess.ClearToSendPacketCount = grant
		sess.packetsThisWindow = 0
		sess.State = StateRxDataSession
		sess.activity.Touch(now)
	}
}

func (e *Engine) tickRxDataSession(now time.Time, sess *Session) {
	if sess.IsBroadcast() {
		if sess.activity.Expired(now, TimeoutBroadcastReceive) {
			e.closeSession(sess, false)
		}
		return
	}
	if sess.activity.Expired(now, TimeoutDirectedReceive) {
		e.abortSession(now, sess, AbortTimeout)
	}
}

func (e *Engine) sendEOMA(sess *Session) {
	ours, ok := asInternal(sess.Destination)
	if !ok {
		return
	}
	frame := encodeEOMA(sess.PGN, sess.TotalMessageSize, sess.TotalNumberOfPackets)
	e.emit(PGNConnectionManagement, frame, ours, sess.Source)
}
