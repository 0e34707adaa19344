package driver

import (
	"context"
	"time"

	"github.com/openisobus/isobustpd/tp"
	"github.com/rs/zerolog"
)

// RawFrame is the wire-level CAN frame a CANDriver moves in and out of
// the bus, independent of any particular driver library's own frame
// type.
type RawFrame struct {
	ID     uint32
	Data   [8]byte
	Length uint8
}

// CANDriver is the interface a concrete bus binding implements. It
// mirrors the shape of a hardware driver: initialize, run an internal
// receive loop, accept writes, and surface frames on a channel.
type CANDriver interface {
	Init() error
	Start() error
	Stop()
	Write(frame RawFrame) error
	RxChan() <-chan RawFrame
	Context() context.Context
}

// Bridge wires a CANDriver to a *tp.Engine: it packs/unpacks J1939
// arbitration IDs, resolves control function handles through a
// PeerTable, feeds inbound frames to the engine, and supplies the
// engine's FrameSink by writing to the driver.
//
// A Bridge's Sink method has no dependency on the engine it eventually
// drives, which lets a caller break the construction cycle between
// Engine (which needs a FrameSink up front) and Bridge (which needs the
// constructed Engine for Run): build the Bridge first, pass bridge.Sink
// to tp.NewEngine, then call SetEngine before Run.
type Bridge struct {
	drv         CANDriver
	engine      *tp.Engine
	peers       *PeerTable
	self        uint8
	logger      zerolog.Logger
	updateEvery time.Duration
}

// NewBridge builds a Bridge with no engine wired in yet. selfAddress is
// the source address this node transmits as; it is registered with
// peers before the bridge is returned, so callers can immediately fetch
// it for TransmitMessage via Self(). Call SetEngine once the engine
// built around Sink exists, before starting Run.
func NewBridge(drv CANDriver, peers *PeerTable, selfAddress uint8, updateEvery time.Duration, logger zerolog.Logger) *Bridge {
	peers.RegisterSelf(selfAddress)
	return &Bridge{
		drv:         drv,
		peers:       peers,
		self:        selfAddress,
		logger:      logger,
		updateEvery: updateEvery,
	}
}

// SetEngine finishes wiring the bridge to the engine it feeds and
// drains. Must be called before Run.
func (b *Bridge) SetEngine(engine *tp.Engine) {
	b.engine = engine
}

// Self returns the control function handle this bridge transmits as.
func (b *Bridge) Self() *tp.InternalControlFunction {
	return b.peers.RegisterSelf(b.self)
}

// Sink implements tp.FrameSink by encoding an outbound transport
// protocol frame into a RawFrame and writing it to the driver.
func (b *Bridge) Sink(pgn uint32, data [8]byte, source *tp.InternalControlFunction, destination tp.ControlFunction, priority uint8) bool {
	broadcast := destination == nil
	var destAddr uint8
	if !broadcast {
		destAddr = destination.Address()
	}
	id := encodeArbitrationID(priority, pgn, source.Address(), destAddr, broadcast)
	err := b.drv.Write(RawFrame{ID: id, Data: data, Length: 8})
	if err != nil {
		b.logger.Warn().Err(err).Uint32("pgn", pgn).Msg("driver: write failed, engine will retry")
		return false
	}
	return true
}

// Run drains the driver's RxChan and ticks Update on the bridge's
// configured interval, both from this single goroutine, until the
// context is canceled. The engine is single-threaded cooperative (see
// tp.Engine's doc comment): ProcessMessage and Update must never run
// concurrently, so both are driven from one select loop rather than two
// racing goroutines.
func (b *Bridge) Run(ctx context.Context) error {
	rx := b.drv.RxChan()
	ticker := time.NewTicker(b.updateEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-rx:
			if !ok {
				return nil
			}
			b.deliver(frame)
		case now := <-ticker.C:
			b.engine.Update(now)
		}
	}
}

func (b *Bridge) deliver(frame RawFrame) {
	_, pgn, destAddr, srcAddr, broadcast := decodeArbitrationID(frame.ID)
	if pgn != tp.PGNConnectionManagement && pgn != tp.PGNDataTransfer {
		return
	}
	source := b.peers.Resolve(srcAddr)
	var destination tp.ControlFunction
	if !broadcast {
		destination = b.peers.Resolve(destAddr)
	}
	b.engine.ProcessMessage(time.Now(), tp.IncomingFrame{
		PGN:         pgn,
		Data:        frame.Data[:frame.Length],
		Source:      source,
		Destination: destination,
	})
}
