package driver

import (
	"sync"

	"github.com/openisobus/isobustpd/tp"
)

// PeerTable resolves CAN source addresses to the tp.ControlFunction
// handles the engine requires. Address claiming and NAME arbitration are
// out of scope here -- addresses are static, and a peer is simply
// whatever control function first appears under that address.
type PeerTable struct {
	mu    sync.Mutex
	self  map[uint8]*tp.InternalControlFunction
	peers map[uint8]*tp.ExternalControlFunction
}

func NewPeerTable() *PeerTable {
	return &PeerTable{
		self:  make(map[uint8]*tp.InternalControlFunction),
		peers: make(map[uint8]*tp.ExternalControlFunction),
	}
}

// RegisterSelf installs the address this node transmits as and returns
// the handle the caller uses as the source of TransmitMessage calls.
func (p *PeerTable) RegisterSelf(address uint8) *tp.InternalControlFunction {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cf, ok := p.self[address]; ok {
		return cf
	}
	cf := &tp.InternalControlFunction{Addr: address, Valid: true}
	p.self[address] = cf
	return cf
}

// Resolve returns the control function handle for a given address,
// preferring an internal handle if one is registered for it, otherwise
// creating (or reusing) an external handle.
func (p *PeerTable) Resolve(address uint8) tp.ControlFunction {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cf, ok := p.self[address]; ok {
		return cf
	}
	if cf, ok := p.peers[address]; ok {
		return cf
	}
	cf := &tp.ExternalControlFunction{Addr: address, Valid: true}
	p.peers[address] = cf
	return cf
}

// Forget drops a peer that has gone silent so a later claim at the same
// address starts a fresh identity rather than reviving session state
// keyed off the old handle.
func (p *PeerTable) Forget(address uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.peers, address)
}
