package tp

import "time"

// emit hands data to the frame sink at the engine's standard priority.
func (e *Engine) emit(pgn uint32, data [8]byte, source *InternalControlFunction, destination ControlFunction) bool {
	if e.sink == nil {
		return false
	}
	return e.sink(pgn, data, source, destination, PriorityLowest)
}

// sides resolves which control function is ours and which is the peer's
// for a session: the source for a Transmit session, the destination for
// a Receive one, per Design Note 9(a).
func (e *Engine) sides(sess *Session) (*InternalControlFunction, ControlFunction) {
	if sess.Direction == DirectionTransmit {
		ours, ok := asInternal(sess.Source)
		if !ok {
			return nil, nil
		}
		return ours, sess.Destination
	}
	ours, ok := asInternal(sess.Destination)
	if !ok {
		return nil, nil
	}
	return ours, sess.Source
}

// emitAbortFrom sends a standalone Abort frame for a PGN/reason with no
// backing session -- used when a CTS, EOMA, or at-capacity RTS arrives
// for an identity the store doesn't know about.
func (e *Engine) emitAbortFrom(ours, peer ControlFunction, pgn uint32, reason AbortReason) {
	internal, ok := asInternal(ours)
	if !ok {
		return
	}
	e.emit(PGNConnectionManagement, encodeAbort(pgn, reason), internal, peer)
}

// sendAbort emits an Abort frame toward sess's peer from whichever side
// is ours. Broadcast sessions never get one -- BAM has no abort frame.
func (e *Engine) sendAbort(sess *Session, reason AbortReason) {
	if sess.IsBroadcast() {
		return
	}
	ours, peer := e.sides(sess)
	if ours == nil {
		return
	}
	e.emit(PGNConnectionManagement, encodeAbort(sess.PGN, reason), ours, peer)
}

// abortSession emits an Abort frame (best effort) and closes the session
// without delivering anything upstream. This is the session-fatal,
// peer-notified error path of spec.md §7.
func (e *Engine) abortSession(now time.Time, sess *Session, reason AbortReason) {
	e.sendAbort(sess, reason)
	e.closeSession(sess, false)
}

// closeSession removes sess from the store and, for a Transmit session,
// invokes its completion callback.
func (e *Engine) closeSession(sess *Session, success bool) {
	e.store.remove(sess)
	if sess.Direction == DirectionTransmit && sess.OnComplete != nil {
		sess.OnComplete(sess.PGN, sess.TotalMessageSize, sess.Source, sess.Destination, success, sess.UserData)
	}
}

// completeReceive closes a successful Receive session and delivers the
// reassembled payload upstream.
func (e *Engine) completeReceive(sess *Session) {
	e.store.remove(sess)
	if e.onMessageReceived != nil {
		e.onMessageReceived(ReceivedMessage{
			PGN:         sess.PGN,
			Priority:    PriorityDefault,
			Source:      sess.Source,
			Destination: sess.Destination,
			Data:        sess.Payload,
		})
	}
}
