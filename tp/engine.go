// Package tp implements the ISO 11783 / SAE J1939 transport protocol: the
// BAM and CM session state machines that fragment and reassemble 9-1785
// byte payloads across 8-byte CAN frames. The engine is single-threaded
// cooperative -- Update and ProcessMessage must never be called
// concurrently or re-entrantly -- and has no dependency beyond the
// standard library and zerolog, so it can be driven by any CAN transport.
package tp

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Engine is one node's transport protocol state machine: a bounded set
// of active sessions, a wire codec, and the receive/transmit/tick logic
// that drives them. The zero value is not usable; construct with
// NewEngine.
type Engine struct {
	cfg               Config
	store             *store
	sink              FrameSink
	onMessageReceived MessageReceivedFunc

	// Logger is mutable after construction, mirroring the teacher
	// repository's exported *log.Logger field. The zero value falls back
	// to a disabled logger.
	Logger zerolog.Logger

	framesEmittedThisTick int
}

// NewEngine constructs an Engine. sink is called to emit frames;
// onMessageReceived is called synchronously once per completed
// reassembly. Both must be non-nil for the engine to do anything useful,
// but neither is validated here -- a nil sink simply makes every send a
// no-op, which is convenient in tests that only exercise the receive
// path.
func NewEngine(cfg Config, sink FrameSink, onMessageReceived MessageReceivedFunc) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:               cfg,
		store:             newStore(cfg.MaxSessions),
		sink:              sink,
		onMessageReceived: onMessageReceived,
		Logger:            zerolog.New(io.Discard),
	}, nil
}

// SessionCount reports how many sessions are currently active, for
// metrics and tests.
func (e *Engine) SessionCount() int {
	return e.store.len()
}

// Update advances every active session's state machine by one tick:
// checking timeouts, pacing and emitting data frames, and issuing
// BAM/RTS/CTS frames whose turn has come. It must be called
// periodically -- at least every ~25ms to keep BAM pacing (50ms default)
// timely -- and never concurrently with ProcessMessage or itself.
func (e *Engine) Update(now time.Time) {
	e.framesEmittedThisTick = 0
	for _, sess := range e.store.all() {
		if !controlFunctionsValid(sess) {
			// Session-fatal, silent: the peer is by definition gone, so
			// there is nothing to send an Abort frame toward.
			e.closeSession(sess, false)
			continue
		}
		e.advance(now, sess)
	}
}

func controlFunctionsValid(sess *Session) bool {
	if !sess.Source.IsAddressValid() {
		return false
	}
	return sess.IsBroadcast() || sess.Destination.IsAddressValid()
}

func (e *Engine) advance(now time.Time, sess *Session) {
	switch sess.State {
	case StateNone:
		// No-op: a session should never linger here, but tolerate it.
	case StateBroadcastAnnounce:
		e.tickBroadcastAnnounce(now, sess)
	case StateRequestToSend:
		e.tickRequestToSend(now, sess)
	case StateWaitForClearToSend, StateWaitForEndOfMessageAcknowledge:
		e.tickWaitForClearToSendOrEOMA(now, sess)
	case StateTxDataSession:
		e.tickTxDataSession(now, sess)
	case StateClearToSend:
		e.tickClearToSend(now, sess)
	case StateRxDataSession:
		e.tickRxDataSession(now, sess)
	}
}
