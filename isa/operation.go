package isa

import "github.com/sarchlab/lokisim/chanid"

// SourceTag records which instruction store an Operation was fetched
// from, per spec.md §3 ("Operation (decoded)").
type SourceTag uint8

// Source tags.
const (
	SourceCache SourceTag = iota
	SourceFIFO
)

// Flags bundles the boolean properties of a decoded Operation, per
// spec.md §3.
type Flags struct {
	SetsPredicate bool // `.p` suffix: also update the predicate register
	Persistent    bool // part of a persistent packet (fetchpst[r]); neither Decode nor Fetch sets it
	EndOfPacket   bool // last instruction of its packet
	ForRemoteExec bool // produced while the core was in remote-execute mode

	// EmitsOnNetwork marks an ALU-class op that also sends its result
	// over the network, because this particular instance's channel
	// field was not NoChannel (spec.md §8 Scenario 5, `or r0 r7 r0 ->
	// 3`). Unlike Descriptor.EmitsOnNetwork (a static, per-opcode
	// property of memory ops), this is a per-instance property: the
	// same opcode decodes with this flag clear or set depending on
	// whether its encoding named a channel.
	EmitsOnNetwork bool
}

// Operation is a decoded instruction: one Operation is produced per
// Raw word by Decode, and is owned by exactly one PipelineRegister
// until Writeback commits or discards it (spec.md §3).
type Operation struct {
	Op       Op
	Function uint8
	Pred     Predicate

	Reg1, Reg2, Reg3 uint8
	Immediate        int32

	// CMTEntry is the channel-map-table index this op reads or writes.
	// Valid whenever Descriptor.EmitsOnNetwork, the opcode is a CMT
	// read/write, or Flags.EmitsOnNetwork was set for this instance.
	CMTEntry uint8

	Source    SourceTag
	MemAddr   uint32 // the memory address this instruction was fetched from (debug)
	PacketPC  uint32 // address of the first instruction of this op's packet (r1 value)

	// Operand values, gathered by Decode.
	Operand1, Operand2, Operand3 uint32

	// Result, computed by Decode (early) or Execute.
	Result uint32

	// Dest is copied from the static descriptor; the decoder leaves it
	// unchanged for indirect writes (`iwtr`), which Indirect marks.
	Dest DestKind

	// NetworkDest is filled in for network-emitting ops once the CMT
	// entry (and, for memory-group views, the bank offset) has been
	// resolved.
	NetworkDest chanid.ChannelID

	Flags Flags

	// Indirect marks an `iwtr` write. Dest and Reg1 keep their decoded
	// values; Writeback skips the register-file write and Decode's
	// forwarding check skips the op, so no unrelated value is committed
	// or forwarded.
	Indirect bool

	// WillForward is cleared when the predicate suppresses this op's
	// side effects, so bypass consumers fall back to the register
	// file (spec.md §5, "Predicate suppression").
	WillForward bool
}

// Descriptor returns the static descriptor for this Operation's
// opcode. Panics if the opcode has no entry — Decode never produces
// such an Operation, so this can only happen on a programmer error.
func (o *Operation) Descriptor() Descriptor {
	d, ok := Describe(o.Op)
	if !ok {
		panic("isa: operation has no descriptor for its opcode")
	}
	return d
}

// PredicateSatisfied evaluates this op's 2-bit predicate field against
// the core's predicate register value. `end-of-packet` as a predicate
// value means "always execute" (spec.md §4.1).
func (o *Operation) PredicateSatisfied(predicateReg bool) bool {
	switch o.Pred {
	case PredAlways, PredEndOfPacket:
		return true
	case PredIfTrue:
		return predicateReg
	case PredIfFalse:
		return !predicateReg
	default:
		return false
	}
}
