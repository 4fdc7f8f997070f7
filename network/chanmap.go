package network

import "github.com/sarchlab/lokisim/chanid"

// ViewKind distinguishes a ChannelMapTable entry's interpretation of
// its destination (spec.md §4.8: null / core view / memory view).
type ViewKind uint8

const (
	ViewNull ViewKind = iota
	ViewCore
	ViewMemory
)

// DefaultCMTSize is the typical number of entries in a core's channel
// map table (spec.md §4.8: "typically 16" — 16 entries addressed by
// the instruction word's 4-bit channel field, isa.Raw.Channel()).
const DefaultCMTSize = 16

// CoreView is a ChannelMapTable entry addressed at another core (or
// this core's own output) with credit-based flow control.
type CoreView struct {
	Dest           chanid.ChannelID
	Acquired       bool
	Credits        int
	MaxCredits     int
	UseCredits     bool
}

// MemoryView is a ChannelMapTable entry addressed at a group of
// memory banks on some tile (spec.md §4.8).
type MemoryView struct {
	Tile           uint16
	BaseBank       uint8
	GroupSize      uint8 // power of two
	ReturnChannel  uint8
	LineSize       uint32
	DefaultMemOp   MemoryOpcode
	ScratchpadMode bool
}

// Entry is one channel map table slot. Exactly one of Core/Memory is
// meaningful, selected by Kind.
type Entry struct {
	Kind   ViewKind
	Core   CoreView
	Memory MemoryView
}

// Encode packs an entry into the 32-bit representation read back by
// `getchmap` (spec.md §4.8: "read(entry) returns a 32-bit packed
// value"). The layout is private to this package; there is no
// matching Entry decoder.
func (e Entry) Encode() uint32 {
	switch e.Kind {
	case ViewCore:
		v := e.Core.Dest.Encode() &^ (1 << 31)
		if e.Core.Acquired {
			v |= 1 << 31
		}
		return v
	case ViewMemory:
		v := uint32(e.Memory.Tile) << 16
		v |= uint32(e.Memory.BaseBank) << 8
		v |= uint32(e.Memory.GroupSize)
		return v
	default:
		return 0
	}
}

// ChannelMapTable holds one core's outbound channel bindings and
// their credit counters (spec.md §4.8, §3 "ChannelMapTable entry").
// It is touched only by its owning core's pipeline (spec.md §5,
// "Shared-resource policy").
type ChannelMapTable struct {
	entries []Entry
	arrived []chan struct{}
}

// NewChannelMapTable creates a table with size entries, all initially
// ViewNull (spec.md §4.8 "Null — no destination").
func NewChannelMapTable(size int) *ChannelMapTable {
	if size <= 0 {
		size = DefaultCMTSize
	}
	t := &ChannelMapTable{
		entries: make([]Entry, size),
		arrived: make([]chan struct{}, size),
	}
	for i := range t.arrived {
		t.arrived[i] = make(chan struct{}, 1)
	}
	return t
}

// Write installs a new entry, replacing whatever was there
// (`setchmap`/`setchmapi`, spec.md §4.8).
func (t *ChannelMapTable) Write(index uint8, e Entry) {
	t.entries[int(index)] = e
}

// Read returns an entry's packed 32-bit representation (`getchmap`).
func (t *ChannelMapTable) Read(index uint8) uint32 {
	return t.entries[int(index)].Encode()
}

// Entry returns the live entry by value for use by Execute/Writeback
// when routing a flit.
func (t *ChannelMapTable) Entry(index uint8) Entry {
	return t.entries[int(index)]
}

// CanSend reports whether a flit may be emitted on this entry right
// now: non-credited entries (memory views, or core views with
// UseCredits false) always can; credited entries need Credits > 0
// (invariant (iv)).
func (t *ChannelMapTable) CanSend(index uint8) bool {
	e := t.entries[int(index)]
	if e.Kind == ViewCore && e.Core.UseCredits {
		return e.Core.Credits > 0
	}
	return true
}

// CreditsAvailable reports the current credit count of a core-view
// entry (0 for non-credited entries).
func (t *ChannelMapTable) CreditsAvailable(index uint8) int {
	e := t.entries[int(index)]
	if e.Kind == ViewCore {
		return e.Core.Credits
	}
	return 0
}

// RemoveCredit decrements a core-view entry's credit counter; called
// exactly once per flit sent on a credited entry (invariant (iv)).
func (t *ChannelMapTable) RemoveCredit(index uint8) {
	e := &t.entries[int(index)]
	if e.Kind == ViewCore && e.Core.Credits > 0 {
		e.Core.Credits--
	}
}

// CreditArrived increments a core-view entry's credit counter on
// receipt of a CreditFlit, and wakes anyone blocked in
// WaitForCredit for this entry.
func (t *ChannelMapTable) CreditArrived(index uint8) {
	e := &t.entries[int(index)]
	if e.Kind == ViewCore && e.Core.Credits < e.Core.MaxCredits {
		e.Core.Credits++
	}
	select {
	case t.arrived[int(index)] <- struct{}{}:
	default:
	}
}

// WaitForCredit blocks until CreditArrived(index) is next called, or
// ctx-like cooperative yielding is handled by the caller (Decode
// polls CanSend in its own stall loop rather than truly blocking on
// this channel, consistent with the single-threaded, event-driven
// model of spec.md §5 — this channel exists so tests can assert a
// credit notification actually fired).
func (t *ChannelMapTable) WaitForCredit(index uint8) <-chan struct{} {
	return t.arrived[int(index)]
}

// MemoryBankFor resolves which bank within a memory-view entry's
// group an address maps to: bank_offset = (address/lineSize) mod
// groupSize (spec.md §4.8).
func (e Entry) MemoryBankFor(address uint32) uint8 {
	if e.Kind != ViewMemory || e.Memory.GroupSize == 0 || e.Memory.LineSize == 0 {
		return e.Memory.BaseBank
	}
	offset := (address / e.Memory.LineSize) % uint32(e.Memory.GroupSize)
	return e.Memory.BaseBank + uint8(offset)
}
