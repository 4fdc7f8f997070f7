package chip

import (
	"github.com/sarchlab/lokisim/chanid"
	"github.com/sarchlab/lokisim/network"
	"github.com/sarchlab/lokisim/warn"
)

// BankSize is the default word capacity of a MemoryBank.
const BankSize = 1 << 16

// MemoryBank is the request/response interface spec.md §2 scopes to:
// internal timing and replacement policy are out of this module's
// remit (spec.md §1, "main-memory modeling beyond its request/response
// interface"). It holds flat word-addressed storage and answers loads
// immediately, the cycle it is granted the crossbar input, matching the
// teacher's stance that memory internals are an external collaborator
// — only the wire-visible request/response shape is modeled here. A
// fetch request is the one case with wire-visible multi-cycle
// behavior (spec.md §4.3 expects a stream of words, not one flit), so
// it alone queues a burst across cycles rather than answering
// combinationally.
type MemoryBank struct {
	Tile     uint16
	Position uint8

	words    []uint32
	readOnly []bool

	pendingStore *network.Flit

	// pendingFetchLine queues the remainder of a cache line's worth of
	// instruction words once a fetch request's first word has already
	// been returned, drained one per cycle by NextQueuedFetch (spec.md
	// §4.3: the core's write loop expects the words of a line to
	// stream in, not arrive as a single flit).
	pendingFetchLine []network.Flit
	lineWords        int

	warn *warn.Registry
}

// NewMemoryBank creates a bank with BankSize words of zeroed storage.
func NewMemoryBank(tile uint16, position uint8, w *warn.Registry) *MemoryBank {
	return &MemoryBank{
		Tile: tile, Position: position,
		words:     make([]uint32, BankSize),
		readOnly:  make([]bool, BankSize),
		lineWords: defaultFetchLineWords,
		warn:      w,
	}
}

// defaultFetchLineWords is the bank's fallback burst size for a fetch
// request, overridden by SetLineWords (config.Parameters.MemoryLineSize/4).
const defaultFetchLineWords = 8

// SetLineWords overrides how many words a fetch request bursts up to
// (the remainder of the containing cache line).
func (m *MemoryBank) SetLineWords(n int) {
	if n > 0 {
		m.lineWords = n
	}
}

// Preload writes initial contents (ELF loading, spec.md §6), optionally
// marking the range read-only (SHF_WRITE clear, spec.md §6).
func (m *MemoryBank) Preload(wordAddr uint32, value uint32, readOnly bool) {
	idx := int(wordAddr)
	if idx < 0 || idx >= len(m.words) {
		return
	}
	m.words[idx] = value
	m.readOnly[idx] = readOnly
}

func (m *MemoryBank) align(addr uint32) uint32 {
	if addr%4 != 0 {
		m.warn.Warn(warn.Alignment, "memory address 0x%x not word-aligned, rounding down", addr)
		addr &^= 3
	}
	return addr
}

// Receive processes one inbound flit (a load or a store's head/body)
// and returns a response flit to route back to the requester, if any
// (spec.md §2, "MemoryBanks — request/response interface only").
func (m *MemoryBank) Receive(f network.Flit) *network.Flit {
	switch f.MemOp {
	case network.MemOpLoadWord, network.MemOpLoadByteUnsigned:
		return m.load(f)
	case network.MemOpStoreWord, network.MemOpStoreByte:
		return m.store(f)
	case network.MemOpFetch, network.MemOpFetchContinue:
		return m.fetch(f)
	default:
		return nil
	}
}

// fetch answers an instruction-fetch request by queueing every word
// from f.Payload up to the end of its containing cache line, returning
// the first immediately and leaving the rest for NextQueuedFetch to
// drain one per cycle (spec.md §4.3, "RECEIVE ... waiting for
// instructions to stream in" — the multi-cycle streaming itself is
// this bank's own internal timing, which spec.md §1 scopes out of the
// core's write loop, not out of the bank).
func (m *MemoryBank) fetch(f network.Flit) *network.Flit {
	addr := m.align(f.Payload)
	idx := int(addr / 4)
	if idx < 0 || idx >= len(m.words) {
		m.warn.Warn(warn.OutOfBounds, "fetch from out-of-bounds address 0x%x", f.Payload)
		return nil
	}

	remaining := m.lineWords - (idx % m.lineWords)
	for i := 0; i < remaining && idx+i < len(m.words); i++ {
		m.pendingFetchLine = append(m.pendingFetchLine, network.Flit{
			Payload:    m.words[idx+i],
			Dest:       chanid.ChannelID{Tile: f.SourceTile, Position: f.SourcePos},
			MemOp:      network.MemOpFetch,
			ReturnChan: f.ReturnChan,
		})
	}
	return m.NextQueuedFetch()
}

// NextQueuedFetch pops and returns the next queued fetch-response
// word, if any. Tile.drainOutputs calls this once per cycle even when
// no new request arrived, so a multi-word line keeps streaming.
func (m *MemoryBank) NextQueuedFetch() *network.Flit {
	if len(m.pendingFetchLine) == 0 {
		return nil
	}
	f := m.pendingFetchLine[0]
	m.pendingFetchLine = m.pendingFetchLine[1:]
	return &f
}

func (m *MemoryBank) load(f network.Flit) *network.Flit {
	addr := m.align(f.Payload)
	idx := int(addr / 4)
	var value uint32
	if idx >= 0 && idx < len(m.words) {
		value = m.words[idx]
	} else {
		m.warn.Warn(warn.OutOfBounds, "load from out-of-bounds address 0x%x", f.Payload)
	}
	if f.MemOp == network.MemOpLoadByteUnsigned {
		shift := (f.Payload % 4) * 8
		value = (value >> shift) & 0xFF
	}
	return &network.Flit{
		Payload:     value,
		Dest:        chanid.ChannelID{Tile: f.SourceTile, Position: f.SourcePos, Channel: f.ReturnChan},
		EndOfPacket: true,
	}
}

// store buffers the head flit (address) until the body flit (data)
// arrives, mirroring core.Core's own two-flit store continuation
// (spec.md §4.5, "For stores, produce two flits").
func (m *MemoryBank) store(f network.Flit) *network.Flit {
	if !f.EndOfPacket {
		head := f
		m.pendingStore = &head
		return nil
	}
	if m.pendingStore == nil {
		return nil
	}
	rawAddr := m.pendingStore.Payload
	memOp := m.pendingStore.MemOp
	byteShift := (rawAddr % 4) * 8
	addr := m.align(rawAddr)
	idx := int(addr / 4)
	m.pendingStore = nil

	if idx < 0 || idx >= len(m.words) {
		m.warn.Warn(warn.OutOfBounds, "store to out-of-bounds address 0x%x", addr)
		return nil
	}
	if m.readOnly[idx] {
		m.warn.Warn(warn.ReadOnlyWrite, "store to read-only address 0x%x dropped", addr)
		return nil
	}
	if memOp == network.MemOpStoreByte {
		mask := uint32(0xFF) << byteShift
		m.words[idx] = (m.words[idx] &^ mask) | ((f.Payload & 0xFF) << byteShift)
	} else {
		m.words[idx] = f.Payload
	}
	return nil
}
