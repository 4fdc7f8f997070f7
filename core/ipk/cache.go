package ipk

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// TagMiss is the sentinel index returned by a failed tag lookup.
const TagMiss = -1

// Cache is the interface shared by the direct-mapped and
// fully-associative IPK cache organizations (spec.md §4.2).
type Cache interface {
	// Write appends one instruction word at the write pointer. first
	// is true for the first instruction of a newly arriving packet
	// (it receives a real tag; invariant (v)); endOfPacket closes the
	// packet and, in the fully-associative organization, advances the
	// write pointer to the next tag-aligned slot.
	Write(word uint32, packetAddr uint32, first, endOfPacket bool, debugAddr uint32)

	// Read returns the instruction at the read pointer and advances
	// it, applying a pending jump offset if one was set via Jump.
	Read() (Entry, bool)

	// Jump adjusts the read pointer by a signed number of
	// instructions, relative to the instruction just read.
	Jump(offset int32)

	// Lookup returns the position of the tagged instruction starting
	// packet addr, or TagMiss.
	Lookup(addr uint32) int

	// CanFetch reports whether there is room for one more max-size
	// packet and no fetch is already outstanding (the latter is
	// tracked by the caller; Cache only answers the capacity half).
	CanFetch(maxPacketWords int) bool

	// CancelPacket is called when Fetch abandons the current packet.
	// Both cache organizations implement it as a no-op: the execute
	// and persistent flags live in Fetch's PacketInfo.
	CancelPacket()

	// FinishedPacketRead reports whether the instruction just read by
	// Read was the end of its packet.
	FinishedPacketRead() bool

	// IsEmpty reports whether the read and write pointers coincide
	// because the cache holds no instructions.
	IsEmpty() bool

	// IsFull reports whether the read and write pointers coincide
	// because the cache holds a full complement of instructions.
	IsFull() bool

	// StoreCode pre-loads a packet with no network round-trip
	// (spec.md §4.2, "storeCode").
	StoreCode(words []uint32, packetAddr uint32)

	// SetReadPointer moves the read pointer to the tag-lookup result
	// idx, used when Fetch starts executing a packet that tag-hit.
	SetReadPointer(idx int)
}

// pendingJump models Fetch's "jump offset relative to the instruction
// just read" semantics shared by both cache organizations.
type pendingJump struct {
	offset int32
	valid  bool
}

// ----- Direct-mapped -----

// DirectMappedCache derives a packet's position directly from its
// address: position = (address/4) mod size (spec.md §4.2). It needs no
// replacement policy, so it holds no third-party cache dependency.
type DirectMappedCache struct {
	entries []Entry
	readPtr int
	writePtr int
	lastOpWasWrite bool
	lastReadEOP bool
	jump pendingJump
}

// NewDirectMappedCache creates a direct-mapped IPK cache of the given
// size in instructions.
func NewDirectMappedCache(size int) *DirectMappedCache {
	return &DirectMappedCache{entries: make([]Entry, size)}
}

func (c *DirectMappedCache) position(addr uint32) int {
	return int(addr/4) % len(c.entries)
}

func (c *DirectMappedCache) Write(word uint32, packetAddr uint32, first, endOfPacket bool, debugAddr uint32) {
	pos := c.writePtr
	if first {
		pos = c.position(packetAddr)
		c.writePtr = pos
	}
	e := Entry{Word: word, DebugAddr: debugAddr, EndOfPacket: endOfPacket}
	if first {
		e.Tag = packetAddr
		e.TagValid = true
	}
	c.entries[pos] = e
	c.writePtr = (pos + 1) % len(c.entries)
	c.lastOpWasWrite = true
}

func (c *DirectMappedCache) Read() (Entry, bool) {
	if c.IsEmpty() {
		return Entry{}, false
	}
	if c.jump.valid {
		c.readPtr = ((c.readPtr+int(c.jump.offset))%len(c.entries) + len(c.entries)) % len(c.entries)
		c.jump.valid = false
	}
	e := c.entries[c.readPtr]
	c.readPtr = (c.readPtr + 1) % len(c.entries)
	c.lastOpWasWrite = false
	c.lastReadEOP = e.EndOfPacket
	return e, true
}

func (c *DirectMappedCache) Jump(offset int32) {
	c.jump = pendingJump{offset: offset, valid: true}
}

func (c *DirectMappedCache) Lookup(addr uint32) int {
	pos := c.position(addr)
	e := c.entries[pos]
	if e.TagValid && e.Tag == addr {
		return pos
	}
	return TagMiss
}

func (c *DirectMappedCache) CanFetch(maxPacketWords int) bool {
	return c.freeSpace() >= maxPacketWords
}

func (c *DirectMappedCache) freeSpace() int {
	if c.IsEmpty() {
		return len(c.entries)
	}
	if c.IsFull() {
		return 0
	}
	if c.writePtr > c.readPtr {
		return len(c.entries) - (c.writePtr - c.readPtr)
	}
	return c.readPtr - c.writePtr
}

func (c *DirectMappedCache) CancelPacket() {}

func (c *DirectMappedCache) FinishedPacketRead() bool { return c.lastReadEOP }

func (c *DirectMappedCache) IsEmpty() bool {
	return c.readPtr == c.writePtr && !c.lastOpWasWrite
}

func (c *DirectMappedCache) IsFull() bool {
	return c.readPtr == c.writePtr && c.lastOpWasWrite
}

func (c *DirectMappedCache) StoreCode(words []uint32, packetAddr uint32) {
	for i, w := range words {
		eop := i == len(words)-1
		c.Write(w, packetAddr, i == 0, eop, packetAddr+uint32(i*4))
	}
}

func (c *DirectMappedCache) SetReadPointer(idx int) {
	c.readPtr = idx
}

// ----- Fully associative -----

// FullyAssociativeCache aligns every packet's first instruction to a
// multiple of size/tagsCount words (invariant (vi)), using an Akita
// cache directory (the same dependency the teacher uses for its L1
// instruction cache, `timing/cache.Cache`) for the tag array and LRU
// replacement of whole tag-aligned regions.
type FullyAssociativeCache struct {
	entries   []Entry
	regionLen int // words per tag-aligned region == len(entries)/tagsCount
	directory *akitacache.DirectoryImpl

	writePtr       int
	readPtr        int
	lastOpWasWrite bool
	lastReadEOP    bool
	jump           pendingJump
}

// NewFullyAssociativeCache creates a fully-associative IPK cache with
// size instructions split across tagsCount equally-sized regions.
func NewFullyAssociativeCache(size, tagsCount int) *FullyAssociativeCache {
	regionLen := size / tagsCount
	return &FullyAssociativeCache{
		entries:   make([]Entry, size),
		regionLen: regionLen,
		directory: akitacache.NewDirectory(1, tagsCount, regionLen*4, akitacache.NewLRUVictimFinder()),
	}
}

func (c *FullyAssociativeCache) Write(word uint32, packetAddr uint32, first, endOfPacket bool, debugAddr uint32) {
	if first {
		victim := c.directory.FindVictim(uint64(packetAddr))
		victim.Tag = uint64(packetAddr)
		victim.IsValid = true
		c.directory.Visit(victim)
		c.writePtr = victim.WayID * c.regionLen
	}

	e := Entry{Word: word, DebugAddr: debugAddr, EndOfPacket: endOfPacket}
	if first {
		e.Tag = packetAddr
		e.TagValid = true
	}
	c.entries[c.writePtr] = e
	c.writePtr++

	if endOfPacket {
		// jump the write pointer forward to the next tag-aligned slot
		// (invariant (vi)).
		region := (c.writePtr - 1) / c.regionLen
		c.writePtr = (region + 1) * c.regionLen % len(c.entries)
	}
	c.lastOpWasWrite = true
}

func (c *FullyAssociativeCache) Read() (Entry, bool) {
	if c.IsEmpty() {
		return Entry{}, false
	}
	if c.jump.valid {
		c.readPtr = ((c.readPtr+int(c.jump.offset))%len(c.entries) + len(c.entries)) % len(c.entries)
		c.jump.valid = false
	}
	e := c.entries[c.readPtr]
	c.readPtr = (c.readPtr + 1) % len(c.entries)
	c.lastOpWasWrite = false
	c.lastReadEOP = e.EndOfPacket
	return e, true
}

func (c *FullyAssociativeCache) Jump(offset int32) {
	c.jump = pendingJump{offset: offset, valid: true}
}

// Lookup probes the directory's single set (all tags are searched —
// "fully associative": only one slot is probed in direct-mapped mode,
// every tag here; spec.md §4.2).
func (c *FullyAssociativeCache) Lookup(addr uint32) int {
	block := c.directory.Lookup(0, uint64(addr))
	if block == nil || !block.IsValid {
		return TagMiss
	}
	return block.WayID * c.regionLen
}

func (c *FullyAssociativeCache) CanFetch(maxPacketWords int) bool {
	return c.freeSpace() >= maxPacketWords
}

func (c *FullyAssociativeCache) freeSpace() int {
	if c.IsEmpty() {
		return len(c.entries)
	}
	if c.IsFull() {
		return 0
	}
	if c.writePtr > c.readPtr {
		return len(c.entries) - (c.writePtr - c.readPtr)
	}
	return c.readPtr - c.writePtr
}

func (c *FullyAssociativeCache) CancelPacket() {}

func (c *FullyAssociativeCache) FinishedPacketRead() bool { return c.lastReadEOP }

func (c *FullyAssociativeCache) IsEmpty() bool {
	return c.readPtr == c.writePtr && !c.lastOpWasWrite
}

func (c *FullyAssociativeCache) IsFull() bool {
	return c.readPtr == c.writePtr && c.lastOpWasWrite
}

func (c *FullyAssociativeCache) StoreCode(words []uint32, packetAddr uint32) {
	for i, w := range words {
		eop := i == len(words)-1
		c.Write(w, packetAddr, i == 0, eop, packetAddr+uint32(i*4))
	}
}

func (c *FullyAssociativeCache) SetReadPointer(idx int) {
	c.readPtr = idx
}
