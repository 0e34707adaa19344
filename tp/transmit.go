package tp

import "time"

// TransmitMessage submits pgn/data for transport, taking ownership of the
// backing array -- the caller must not retain or mutate data afterward.
// It returns an error synchronously if the request is rejected outright
// and never blocks: completion is reported later through onComplete.
func (e *Engine) TransmitMessage(now time.Time, pgn uint32, data []byte, source *InternalControlFunction, destination ControlFunction, onComplete TransmitCompleteFunc, userData any) error {
	if len(data) < minMessageSize {
		return ErrMessageTooSmall
	}
	if len(data) > maxMessageSize {
		return ErrMessageTooLarge
	}
	if source == nil || !source.IsAddressValid() {
		return newTpError("tp: source control function is absent or has an invalid address")
	}
	if e.store.hasSession(source, destination) {
		return ErrSessionExists
	}

	sess := newTransmitSession(pgn, data, source, destination, onComplete, userData)
	if sess.IsBroadcast() {
		sess.State = StateBroadcastAnnounce
	} else {
		sess.State = StateRequestToSend
	}
	sess.activity.Touch(now)
	return e.store.insert(sess)
}

// TransmitMessageCopy is a convenience wrapper for callers holding a
// borrowed view of data they can't give up ownership of: it clones the
// payload eagerly and submits the clone.
func (e *Engine) TransmitMessageCopy(now time.Time, pgn uint32, data []byte, source *InternalControlFunction, destination ControlFunction, onComplete TransmitCompleteFunc, userData any) error {
	owned := make([]byte, len(data))
	copy(owned, data)
	return e.TransmitMessage(now, pgn, owned, source, destination, onComplete, userData)
}

func (e *Engine) tickBroadcastAnnounce(now time.Time, sess *Session) {
	source, ok := asInternal(sess.Source)
	if !ok {
		return
	}
	frame := encodeBAM(sess.PGN, sess.TotalMessageSize, sess.TotalNumberOfPackets)
	if e.emit(PGNConnectionManagement, frame, source, nil) {
		sess.State = StateTxDataSession
		sess.activity.Touch(now)
		sess.pacing.Touch(now)
	}
}

func (e *Engine) tickRequestToSend(now time.Time, sess *Session) {
	source, ok := asInternal(sess.Source)
	if !ok {
		return
	}
	frame := encodeRTS(sess.PGN, sess.TotalMessageSize, sess.TotalNumberOfPackets, e.cfg.ClearToSendPacketCountMax)
	if e.emit(PGNConnectionManagement, frame, source, sess.Destination) {
		sess.State = StateWaitForClearToSend
		sess.activity.Touch(now)
	}
}

func (e *Engine) tickWaitForClearToSendOrEOMA(now time.Time, sess *Session) {
	if sess.activity.Expired(now, TimeoutConnectionResponse) {
		e.abortSession(now, sess, AbortTimeout)
	}
}

func (e *Engine) tickTxDataSession(now time.Time, sess *Session) {
	if sess.IsBroadcast() {
		if !sess.pacing.Expired(now, e.cfg.minBamInterFrame()) {
			return
		}
	}
	e.sendDataFrames(now, sess)
}

// sendDataFrames paces session's outbound data frames per spec.md §4.4.b:
// one frame per tick for broadcast, up to FramesPerUpdate (shared across
// all sessions this tick) otherwise, stopping early on sink backpressure
// or CTS-window exhaustion.
func (e *Engine) sendDataFrames(now time.Time, sess *Session) {
	source, ok := asInternal(sess.Source)
	if !ok {
		return
	}

	for sess.LastPacketNumber < sess.TotalNumberOfPackets {
		if e.framesEmittedThisTick >= e.cfg.FramesPerUpdate {
			return
		}
		if !sess.IsBroadcast() && sess.packetsThisWindow >= sess.ClearToSendPacketCount {
			break
		}

		seqNo := sess.LastPacketNumber + 1
		start := sess.LastPacketNumber * protocolBytesPerFrame
		end := start + protocolBytesPerFrame
		if end > sess.TotalMessageSize {
			end = sess.TotalMessageSize
		}
		frame := encodeDataTransfer(uint8(seqNo), sess.Payload[start:end])

		if !e.emit(PGNDataTransfer, frame, source, sess.Destination) {
			return
		}

		e.framesEmittedThisTick++
		sess.LastPacketNumber = seqNo
		sess.packetsThisWindow++
		sess.activity.Touch(now)
		sess.pacing.Touch(now)

		if sess.IsBroadcast() {
			break
		}
	}

	if sess.LastPacketNumber == sess.TotalNumberOfPackets {
		if sess.IsBroadcast() {
			e.closeSession(sess, true)
		} else {
			sess.State = StateWaitForEndOfMessageAcknowledge
			sess.activity.Touch(now)
		}
		return
	}
	if !sess.IsBroadcast() && sess.packetsThisWindow >= sess.ClearToSendPacketCount {
		sess.State = StateWaitForClearToSend
	}
}
