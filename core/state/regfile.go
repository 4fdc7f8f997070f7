// Package state holds the per-core architectural state that is
// touched only by its owning core's pipeline: the register file, the
// predicate register, the scratchpad, and the control registers
// (spec.md §3, §5 "Shared-resource policy").
package state

// NumArchRegisters is the size of the ordinary (non-aliased) register
// window: r0 (hard zero) through r(NumArchRegisters-1).
const NumArchRegisters = 32

// ChannelFIFORead is implemented by the core's input crossbar FIFOs so
// RegisterFile can dequeue a flit when a channel-end alias register is
// read (spec.md §4.7).
type ChannelFIFORead interface {
	// Dequeue blocks (from the caller's point of view — in this
	// single-threaded model, it reports ok=false when empty so Decode
	// can stall instead) until a flit is available, then removes and
	// returns its payload.
	Dequeue() (value uint32, ok bool)
}

// RegisterFile is the Loki register file: r0 is hardwired to zero, r1
// holds the address of the currently executing packet, and a
// contiguous high range of indices is aliased to the core's channel-end
// input FIFOs (spec.md §4.7).
type RegisterFile struct {
	regs []uint32

	// ChannelFIFOBase is the first register index aliased to a
	// channel-end FIFO; indices [ChannelFIFOBase, ChannelFIFOBase+N)
	// read from fifos[0..N).
	ChannelFIFOBase uint8
	fifos           []ChannelFIFORead

	// warn is called with a warning name and is nil-safe; the core
	// wires this to package warn without state importing it, to avoid
	// a dependency cycle.
	warn func(name, format string, args ...interface{})
}

// NewRegisterFile creates a register file with numRegs ordinary
// registers (including r0 and r1) and the given channel-end FIFOs
// aliased starting at index numRegs.
func NewRegisterFile(numRegs int, fifos []ChannelFIFORead, warn func(name, format string, args ...interface{})) *RegisterFile {
	return &RegisterFile{
		regs:            make([]uint32, numRegs),
		ChannelFIFOBase: uint8(numRegs),
		fifos:           fifos,
		warn:            warn,
	}
}

// isChannelAlias reports whether reg indexes a channel-end FIFO.
func (r *RegisterFile) isChannelAlias(reg uint8) bool {
	return int(reg) >= int(r.ChannelFIFOBase) && int(reg) < int(r.ChannelFIFOBase)+len(r.fifos)
}

// Read returns a register's value. Reading a channel-alias index
// dequeues the head flit of that FIFO (spec.md §4.7); ok is false if
// the FIFO was empty, telling Decode to stall.
func (r *RegisterFile) Read(reg uint8) (value uint32, ok bool) {
	if reg == 0 {
		return 0, true // invariant (i): r0 always reads as 0.
	}
	if r.isChannelAlias(reg) {
		fifo := r.fifos[int(reg)-int(r.ChannelFIFOBase)]
		return fifo.Dequeue()
	}
	if int(reg) >= len(r.regs) {
		return 0, true
	}
	return r.regs[reg], true
}

// Write stores a value into a register. Writes to r0 are silently
// dropped (invariant (i)); writes to r1 are architecturally permitted
// (Fetch maintains it) but a software write is warned about per
// spec.md §7.
func (r *RegisterFile) Write(reg uint8, value uint32) {
	if reg == 0 {
		return
	}
	if reg == 1 {
		if r.warn != nil {
			r.warn("write-r1", "software write to r1 (packet address register)")
		}
	}
	if r.isChannelAlias(reg) {
		return // channel-alias registers are read-only views of a FIFO.
	}
	if int(reg) >= len(r.regs) {
		return
	}
	r.regs[reg] = value
}

// SetPacketAddress writes r1 on behalf of Fetch at the start of a new
// packet (invariant (ii)); unlike Write, this never warns.
func (r *RegisterFile) SetPacketAddress(addr uint32) {
	if len(r.regs) > 1 {
		r.regs[1] = addr
	}
}

// RawRead reads the underlying register slot without resolving a
// channel-FIFO alias or special-casing r0. Used for energy-accurate
// "forwarding still performs the underlying read" semantics (spec.md
// §4.7).
func (r *RegisterFile) RawRead(reg uint8) uint32 {
	if int(reg) >= len(r.regs) {
		return 0
	}
	return r.regs[reg]
}

// Snapshot copies every ordinary (non-channel-alias) register's
// current value, for `-trace`'s "register context" dump (spec.md §6).
// It does not touch the channel FIFOs, unlike Read.
func (r *RegisterFile) Snapshot() []uint32 {
	out := make([]uint32, len(r.regs))
	copy(out, r.regs)
	return out
}
