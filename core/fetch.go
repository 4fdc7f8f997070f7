package core

import (
	"github.com/sarchlab/lokisim/chanid"
	"github.com/sarchlab/lokisim/core/ipk"
	"github.com/sarchlab/lokisim/instrument"
	"github.com/sarchlab/lokisim/isa"
	"github.com/sarchlab/lokisim/network"
)

// fetchMemoryCMTEntry is the CMT index a fetch request addresses
// through — the same entry Tile.wireDefaultMemoryViews pre-configures
// for loads and stores (spec.md §4.3: the fetch write loop shares the
// core's ordinary memory view rather than owning a dedicated one).
const fetchMemoryCMTEntry = 0

// defaultFetchBufferDepth and defaultLineWords are Core's fallback
// values for the two write-loop parameters a tile wires in from
// config.Parameters (SetFetchBufferDepth, SetLineWords) at
// construction; a Core built directly by a test without that wiring
// still behaves sensibly.
const (
	defaultFetchBufferDepth = 4
	defaultLineWords        = 8
)

// writeState is the fetch write loop's state machine (spec.md §4.3:
// "READY/FETCH/RECEIVE/CONTINUE").
type writeState uint8

const (
	writeReady writeState = iota
	writeFetch
	writeReceive
	writeContinue
)

// fetchRequest is one entry of the fetch-request buffer: an address
// still waiting for its tag lookup and, if it misses, its memory
// round-trip (spec.md §4.3, "canCheckTags is true when the fetch
// buffer has space").
type fetchRequest struct {
	addr       uint32
	persistent bool
}

// StoreCode pre-loads a packet into the cache or FIFO with no network
// round-trip (spec.md §4.2, "storeCode pre-loads a packet at
// startup"). Used by the loader and by tests that want to bypass the
// fetch write loop entirely.
func (c *Core) StoreCode(words []uint32, addr uint32, intoFIFO bool) {
	if intoFIFO {
		c.IFIFO.StoreCode(words, addr)
		return
	}
	c.ICache.StoreCode(words, addr)
}

// StartFetch is Execute's entry point into the write loop for a
// fetch/fetchpst/fetchr/fetchpstr instruction (spec.md §4.3,
// "checkTags"). A tag hit switches the read loop onto the packet
// immediately; a miss enqueues addr on the fetch-request buffer for
// the write loop to service over the network. Either way a new fetch
// always breaks persistent mode on whatever packet is currently
// executing — checkTags clears it unconditionally, hit or miss, since
// a fresh fetch always supersedes it (spec.md §4.3 invariant (viii)).
// Returns false if the fetch-request buffer has no room, in which case
// Execute must stall and retry the same instruction next cycle.
func (c *Core) StartFetch(addr uint32, persistent bool) bool {
	if c.current != nil {
		c.current.Persistent = false
	}

	if pos := c.ICache.Lookup(addr); pos != ipk.TagMiss {
		c.ICache.SetReadPointer(pos)
		c.current = &ipk.PacketInfo{Address: addr, Persistent: persistent, Execute: true, InCache: true}
		c.readingFIFO = false
		return true
	}
	if pos := c.IFIFO.Lookup(addr); pos != ipk.TagMiss {
		c.IFIFO.SetReadPointer(pos)
		c.current = &ipk.PacketInfo{Address: addr, Persistent: persistent, Execute: true, InCache: false}
		c.readingFIFO = true
		return true
	}

	if len(c.fetchBuffer) >= c.fetchBufferDepth {
		return false
	}
	c.fetchBuffer = append(c.fetchBuffer, fetchRequest{addr: addr, persistent: persistent})
	return true
}

// NextIPK aborts the packet currently arriving/executing (spec.md
// §4.3, "nextIPK"): it is left in the cache but marked execute=false,
// the persistent flag clears, cancelPacket runs on the current
// source, and the stage's own fetch-decode register is dropped so the
// abandoned packet's instructions never reach Decode. Decode-execute
// and execute-writeback entries stamped with the packet's address are
// dropped too, so none of its in-flight instructions commits.
func (c *Core) NextIPK() {
	if c.current != nil {
		c.current.Execute = false
		c.current.Persistent = false
		if c.de.Valid && c.de.Op != nil && c.de.Op.PacketPC == c.current.Address {
			c.de = DecodeExecuteRegister{}
		}
		if c.ew.Valid && c.ew.Op != nil && c.ew.Op.PacketPC == c.current.Address {
			c.ew = ExecuteWritebackRegister{}
		}
	}
	if c.readingFIFO {
		c.IFIFO.CancelPacket()
	} else {
		c.ICache.CancelPacket()
	}
	c.fd = FetchDecodeRegister{}
	c.current = nil
	c.Stats.Flush()
}

// Jump moves the current source's read pointer by offset instructions
// relative to the one just read (spec.md §4.3, "Jump").
func (c *Core) Jump(offset int32) {
	if c.readingFIFO {
		return // the IPK FIFO never supports jumps (spec.md §4.2)
	}
	c.ICache.Jump(offset)
}

// tickFetch is the read loop: it supplies one instruction to Decode
// per cycle, subject to Decode's back-pressure (spec.md §4.3, "Read
// loop"). When no packet is currently executing, it first checks
// whether the write loop has just resolved a pending arrival into a
// lookup-able tag and, if so, adopts it.
func (c *Core) tickFetch() {
	if c.fd.Valid {
		c.Stats.Stall(instrument.StallFetch)
		return
	}
	if c.current == nil {
		c.adoptPending()
	}
	if c.current == nil || !c.current.Execute {
		return
	}

	var entry ipk.Entry
	var ok bool
	if c.readingFIFO {
		entry, ok = c.IFIFO.Read()
	} else {
		entry, ok = c.ICache.Read()
	}
	if !ok {
		c.Stats.Stall(instrument.StallInstructions)
		return
	}
	firstOfPacket := entry.TagValid

	source := isa.SourceCache
	if c.readingFIFO {
		source = isa.SourceFIFO
	}
	c.fd = FetchDecodeRegister{
		Valid:         true,
		Word:          isa.Raw(entry.Word),
		MemAddr:       entry.DebugAddr,
		Source:        source,
		FirstOfPacket: firstOfPacket,
	}

	if entry.EndOfPacket {
		if c.current.Persistent {
			if c.readingFIFO {
				c.IFIFO.SetReadPointer(0)
			} else if pos := c.ICache.Lookup(c.current.Address); pos != ipk.TagMiss {
				c.ICache.SetReadPointer(pos)
			}
		} else {
			c.current = nil
		}
	}
}

// adoptPending switches the read loop onto a packet the write loop has
// finished bringing in, FIFO taking priority over cache when both
// happen to resolve the same cycle (spec.md §4.3's READY state
// choosing the next packet to execute; no tie-break is named, so this
// just picks a stable order).
func (c *Core) adoptPending() {
	if c.fifoPending != nil && c.fifoPending.Execute {
		if pos := c.IFIFO.Lookup(c.fifoPending.Address); pos != ipk.TagMiss {
			c.IFIFO.SetReadPointer(pos)
			c.current = c.fifoPending
			c.current.InCache = false
			c.readingFIFO = true
			c.fifoPending = nil
			return
		}
	}
	if c.cachePending != nil && c.cachePending.Execute {
		if pos := c.ICache.Lookup(c.cachePending.Address); pos != ipk.TagMiss {
			c.ICache.SetReadPointer(pos)
			c.current = c.cachePending
			c.current.InCache = true
			c.readingFIFO = false
			c.cachePending = nil
		}
	}
}

// roomToFetch reports whether the write loop may start a new request:
// the target store has space for a full packet, and there is no
// packet already mid-arrival into that same store (spec.md §4.3,
// "roomToFetch" — "we don't want to interleave the instructions").
func (c *Core) roomToFetch(intoFIFO bool) bool {
	if intoFIFO {
		return c.IFIFO.CanFetch(c.lineWords) && c.fifoPending == nil
	}
	return c.ICache.CanFetch(c.lineWords) && c.cachePending == nil
}

// tickFetchWrite is the write loop: it drains the fetch-request
// buffer, issuing one memory request per packet and streaming its
// cache-line-sized response back in, re-requesting a continuation
// every lineWords instructions until the packet's own end-of-packet
// predicate closes it out (spec.md §4.3, "FETCH/RECEIVE/CONTINUE").
func (c *Core) tickFetchWrite() {
	switch c.wstate {
	case writeReady:
		c.tickWriteReady()
	case writeFetch:
		c.tickWriteFetch()
	case writeContinue:
		c.tickWriteContinue()
	case writeReceive:
		// waiting for receiveFetchWord, driven by DeliverFlit.
	}
}

func (c *Core) tickWriteReady() {
	if len(c.fetchBuffer) == 0 {
		return
	}
	req := c.fetchBuffer[0]
	intoFIFO := !req.persistent
	if !c.roomToFetch(intoFIFO) {
		return
	}
	c.fetchBuffer = c.fetchBuffer[1:]
	c.activeFetch = req
	c.wstate = writeFetch
	c.tickWriteFetch()
}

// tickWriteFetch issues the memory request for the request popped by
// tickWriteReady, unless another core or packet beat it to the same
// address in the meantime (spec.md §4.3 "checkTags" runs its tag
// lookup again immediately before sending, since the buffer may have
// waited several cycles for room).
func (c *Core) tickWriteFetch() {
	req := c.activeFetch
	intoFIFO := !req.persistent
	pending := &ipk.PacketInfo{Address: req.addr, Persistent: req.persistent, Execute: true, InCache: !intoFIFO}

	if !intoFIFO {
		if pos := c.ICache.Lookup(req.addr); pos != ipk.TagMiss {
			c.ICache.SetReadPointer(pos)
			c.wstate = writeReady
			return
		}
	} else if pos := c.IFIFO.Lookup(req.addr); pos != ipk.TagMiss {
		c.IFIFO.SetReadPointer(pos)
		c.wstate = writeReady
		return
	}

	if !c.Output.Ready() {
		c.Stats.Stall(instrument.StallOutput)
		return
	}
	c.sendFetchRequest(req.addr, intoFIFO, false)
	c.installPending(intoFIFO, pending)
	c.activeAddr = req.addr
	c.wstate = writeReceive
}

// tickWriteContinue requests the next cache line of the packet
// already streaming in, once the store it targets has room for
// another full line.
func (c *Core) tickWriteContinue() {
	intoFIFO := c.fifoPending != nil
	if !c.roomToFetch(intoFIFO) {
		return
	}
	if !c.Output.Ready() {
		c.Stats.Stall(instrument.StallOutput)
		return
	}
	c.sendFetchRequest(c.activeAddr, intoFIFO, true)
	c.wstate = writeReceive
}

func (c *Core) installPending(intoFIFO bool, p *ipk.PacketInfo) {
	if intoFIFO {
		c.fifoPending = p
	} else {
		c.cachePending = p
	}
}

// sendFetchRequest emits one fetch flit for addr through the core's
// default memory view (spec.md §4.3, "sendRequest"). continuation
// distinguishes a CONTINUE-state request (MemOpFetchContinue) from the
// packet's opening one (MemOpFetch) — both are handled identically by
// MemoryBank.fetch, but the flit keeps the distinction visible on the
// wire. ReturnChan repurposes its ordinary channel-FIFO meaning to
// instead name which instruction store the response belongs in — 0
// for the FIFO, 1 for the cache (matching the original's channel-0/
// channel-1 convention, which this ISA has no spare instruction field
// left to carry; see isa/encoding.go's FormatFetchAbs/FormatFetchSplit
// comment).
func (c *Core) sendFetchRequest(addr uint32, intoFIFO, continuation bool) {
	entry := c.CMT.Entry(fetchMemoryCMTEntry)
	bank := entry.MemoryBankFor(addr)
	dest := chanid.ChannelID{Tile: entry.Memory.Tile, Position: bank}

	returnChan := uint8(1)
	if intoFIFO {
		returnChan = 0
	}
	memOp := network.MemOpFetch
	if continuation {
		memOp = network.MemOpFetchContinue
	}
	c.Output.Send(network.Flit{
		Payload: addr, Dest: dest, MemOp: memOp, ReturnChan: returnChan,
		SourceTile: c.channelID(0).Tile, SourcePos: c.Position,
	})
	c.Stats.FlitRouted()
}

// receiveFetchWord is DeliverFlit's entry point for one word of a
// fetch response (spec.md §4.3, "RECEIVE ... waiting for instructions
// to stream in"). The word's own predicate field marks the true end
// of its packet, independent of the cache-line boundary that may
// additionally require a continuation request (spec.md §4.1's
// end-of-packet predicate value doubles as the packet terminator the
// write loop needs, so no separate packet-length tracking is kept).
func (c *Core) receiveFetchWord(f network.Flit) {
	intoFIFO := f.ReturnChan == 0

	if intoFIFO && isa.Raw(f.Payload).Opcode() == uint8(isa.OpNXIPK) {
		// spec.md §4.2: "A next-IPK instruction in the FIFO is not
		// stored — it causes the enclosing fetch-stage to abort the
		// current packet." This is a control signal, not a reply to
		// this core's own outstanding request, so it takes effect
		// whenever it arrives rather than only in writeReceive.
		c.fifoPending = nil
		c.NextIPK()
		if c.wstate == writeReceive {
			c.completeActiveFetch()
		}
		return
	}

	if c.wstate != writeReceive {
		return
	}

	pending := c.cachePending
	if intoFIFO {
		pending = c.fifoPending
	}
	if pending == nil {
		return
	}

	first := !pending.Location.Found
	pending.Location.Found = true

	wordAddr := c.activeAddr
	eop := isa.Raw(f.Payload).Predicate() == isa.PredEndOfPacket

	if intoFIFO {
		c.IFIFO.Write(f.Payload, c.activeFetch.addr, first, eop, wordAddr)
	} else {
		c.ICache.Write(f.Payload, c.activeFetch.addr, first, eop, wordAddr)
	}
	c.activeAddr = wordAddr + 4

	if eop {
		c.completeActiveFetch()
		return
	}
	if c.activeAddr%(uint32(c.lineWords)*4) == 0 {
		c.wstate = writeContinue
	}
}

func (c *Core) completeActiveFetch() {
	c.wstate = writeReady
	c.activeFetch = fetchRequest{}
}

// SetFetchBufferDepth overrides the fetch-request buffer's capacity
// (config.Parameters.FetchBufferDepth, wired by Tile at construction).
func (c *Core) SetFetchBufferDepth(n int) {
	if n > 0 {
		c.fetchBufferDepth = n
	}
}

// SetLineWords overrides the cache-line word count that governs
// continuation requests (config.Parameters.IPKCacheLineWords).
func (c *Core) SetLineWords(n int) {
	if n > 0 {
		c.lineWords = n
	}
}
