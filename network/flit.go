// Package network implements the tile-local packet-switched fabric:
// the channel map table with credit-based flow control, flits and
// credit flits, and the wormhole-routed crossbar with round-robin
// arbitration (spec.md §4.8–§4.10).
package network

import "github.com/sarchlab/lokisim/chanid"

// MemoryOpcode names the operation carried by a memory flit's head
// (spec.md §3, "Flit": "memory opcode for memory flits").
type MemoryOpcode uint8

const (
	MemOpNone MemoryOpcode = iota
	MemOpLoadWord
	MemOpLoadByteUnsigned
	MemOpStoreWord
	MemOpStoreByte
	MemOpFetch
	MemOpFetchContinue
)

// Flit is the unit of transport on the data crossbar: a 32-bit
// payload plus a destination and routing metadata (spec.md §3).
type Flit struct {
	Payload     uint32
	Dest        chanid.ChannelID
	EndOfPacket bool
	Acquired    bool
	MemOp       MemoryOpcode
	ReturnChan  uint8

	// CreditRequired marks a flit sent on a credited CMT entry
	// (network.CoreView.UseCredits); the consumer owes exactly one
	// CreditFlit back to SourceTile/SourcePos/SourceEntry for each such
	// flit it accepts (spec.md invariant (iv)).
	CreditRequired bool

	// SourceTile/SourcePos identify the sending core, needed so a
	// consumer can address a CreditFlit back to it (spec.md §3,
	// "CreditFlit"). SourceEntry additionally names the sending core's
	// CMT entry, since credits are tracked per entry, not per core.
	SourceTile  uint16
	SourcePos   uint8
	SourceEntry uint8
}

// CreditFlit is emitted by a consumer's input FIFO the cycle it
// consumes a flit from a creditable sender, and is routed back to
// that sender's CMT (spec.md §3, §4.10).
type CreditFlit struct {
	DestTile uint16
	DestPos  uint8
	Channel  uint8
}
