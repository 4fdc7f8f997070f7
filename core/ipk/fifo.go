package ipk

// FIFO is the IPK FIFO: a bounded circular buffer of instruction
// words with a single tag register tied to the slot holding the start
// of the currently-arriving packet (spec.md §3, §4.2). Unlike the IPK
// cache, it carries no replacement policy: a new packet simply
// overwrites the oldest entries, and if that overwrite reaches the
// slot the single tag register points at, the tag is invalidated
// (there can only ever be one outstanding tag at a time).
type FIFO struct {
	entries []Entry
	readPtr int
	writePtr int
	lastOpWasWrite bool
	lastReadEOP bool

	tagAddr  uint32
	tagValid bool
	tagSlot  int
}

// NewFIFO creates an IPK FIFO with the given capacity in instructions.
func NewFIFO(size int) *FIFO {
	return &FIFO{entries: make([]Entry, size)}
}

// Write appends one instruction word. first marks the start of a
// newly arriving packet and installs the single tag register;
// endOfPacket marks the packet's last instruction.
func (f *FIFO) Write(word uint32, packetAddr uint32, first, endOfPacket bool, debugAddr uint32) {
	pos := f.writePtr

	if f.tagValid && pos == f.tagSlot && !first {
		f.tagValid = false
	}

	e := Entry{Word: word, DebugAddr: debugAddr, EndOfPacket: endOfPacket}
	if first {
		e.Tag = packetAddr
		e.TagValid = true
		f.tagAddr = packetAddr
		f.tagSlot = pos
		f.tagValid = true
	}
	f.entries[pos] = e
	f.writePtr = (pos + 1) % len(f.entries)
	f.lastOpWasWrite = true
}

// Read returns the instruction at the read pointer and advances it.
// The IPK FIFO never supports mid-packet jumps (a cache-only
// feature), so there is no Jump method; Fetch re-reads a persistent
// FIFO packet through SetReadPointer.
func (f *FIFO) Read() (Entry, bool) {
	if f.IsEmpty() {
		return Entry{}, false
	}
	e := f.entries[f.readPtr]
	if f.tagValid && f.readPtr == f.tagSlot {
		f.tagValid = false
	}
	f.readPtr = (f.readPtr + 1) % len(f.entries)
	f.lastOpWasWrite = false
	f.lastReadEOP = e.EndOfPacket
	return e, true
}

// Lookup reports whether addr matches the single outstanding tag, and
// if so returns its slot.
func (f *FIFO) Lookup(addr uint32) int {
	if f.tagValid && f.tagAddr == addr {
		return f.tagSlot
	}
	return TagMiss
}

func (f *FIFO) CanFetch(maxPacketWords int) bool {
	return f.freeSpace() >= maxPacketWords
}

func (f *FIFO) freeSpace() int {
	if f.IsEmpty() {
		return len(f.entries)
	}
	if f.IsFull() {
		return 0
	}
	if f.writePtr > f.readPtr {
		return len(f.entries) - (f.writePtr - f.readPtr)
	}
	return f.readPtr - f.writePtr
}

// CancelPacket invalidates the single tag register; a `nxipk` abort
// means the packet it names never finishes arriving.
func (f *FIFO) CancelPacket() {
	f.tagValid = false
}

func (f *FIFO) FinishedPacketRead() bool { return f.lastReadEOP }

func (f *FIFO) IsEmpty() bool {
	return f.readPtr == f.writePtr && !f.lastOpWasWrite
}

func (f *FIFO) IsFull() bool {
	return f.readPtr == f.writePtr && f.lastOpWasWrite
}

func (f *FIFO) StoreCode(words []uint32, packetAddr uint32) {
	for i, w := range words {
		eop := i == len(words)-1
		f.Write(w, packetAddr, i == 0, eop, packetAddr+uint32(i*4))
	}
}

func (f *FIFO) SetReadPointer(idx int) {
	f.readPtr = idx
}
