package core

import (
	"github.com/sarchlab/lokisim/chanid"
	"github.com/sarchlab/lokisim/core/ipk"
	"github.com/sarchlab/lokisim/core/state"
	"github.com/sarchlab/lokisim/instrument"
	"github.com/sarchlab/lokisim/isa"
	"github.com/sarchlab/lokisim/network"
)

// OutputPort is the crossbar-facing side of a core: Writeback/Execute
// hand flits here, and the owning tile's Crossbar drains them
// (spec.md §4.9, "the network exposes a source port at each
// producer"). Kept as an interface so core can be unit-tested without
// a live Crossbar.
type OutputPort interface {
	Send(f network.Flit)
	Ready() bool
}

// bufferedOutput is the default OutputPort: a one-flit buffer that is
// "ready" whenever empty, matching a single-slot PipelineRegister's
// back-pressure idiom (spec.md §4.5 "Back-pressure").
type bufferedOutput struct {
	pending *network.Flit
}

func newBufferedOutput() *bufferedOutput { return &bufferedOutput{} }

func (b *bufferedOutput) Send(f network.Flit) { b.pending = &f }
func (b *bufferedOutput) Ready() bool         { return b.pending == nil }

// Take removes and returns the buffered flit, if any — called by the
// owning tile once per cycle to drain into the Crossbar.
func (b *bufferedOutput) Take() (network.Flit, bool) {
	if b.pending == nil {
		return network.Flit{}, false
	}
	f := *b.pending
	b.pending = nil
	return f, true
}

// Core is one tile's execution engine: the four-stage in-order
// pipeline plus all architectural state that pipeline touches
// (spec.md §2, §3). Its fields are grounded on
// `timing/core.Core`'s "owns everything a pipeline needs" shape,
// generalized from the teacher's single flat emulator+pipeline pair to
// Loki's richer per-core state set.
type Core struct {
	TileX, TileY uint16
	Position     uint8

	Registers *state.RegisterFile
	Predicate *state.PredicateRegister
	Scratch   *state.Scratchpad
	CtrlRegs  *state.ControlRegisters
	CMT       *network.ChannelMapTable

	ICache *ipk.DirectMappedCache
	ICacheFA *ipk.FullyAssociativeCache
	useFA    bool
	IFIFO  *ipk.FIFO

	fifos []*channelFIFO

	decoder *isa.Decoder
	alu     *ALU
	Output  *bufferedOutput

	Stats *instrument.Collector

	// Trace, if set, is called once per retired instruction
	// (`-trace`, spec.md §6: "Print each executed instruction and its
	// register context").
	Trace func(c *Core, op *isa.Operation)

	// Pipeline registers.
	fd FetchDecodeRegister
	de DecodeExecuteRegister
	ew ExecuteWritebackRegister

	// Fetch read-loop state (spec.md §4.3).
	current *ipk.PacketInfo
	readingFIFO bool

	// Fetch write-loop state (spec.md §4.3): fetchBuffer holds requests
	// still waiting for room to issue; wstate/activeFetch/activeAddr
	// track the one request currently in flight; fifoPending/
	// cachePending hold the packet info for whichever store that
	// request targets until the read loop adopts it.
	fetchBuffer      []fetchRequest
	fetchBufferDepth int
	lineWords        int
	wstate           writeState
	activeFetch      fetchRequest
	activeAddr       uint32
	fifoPending      *ipk.PacketInfo
	cachePending     *ipk.PacketInfo

	// Decode remote-execute mode (spec.md §4.4 step 2).
	remoteExecute bool
	cmtCache      struct {
		valid bool
		entry uint8
	}

	// r1 tracking for the packet currently in Fetch/Decode.
	lastStampedAddr uint32

	// pendingBody holds a store's second flit (the data payload) when
	// its head flit has already been sent but the body could not be
	// sent the same cycle (spec.md §4.5, "For stores, produce two
	// flits"). While set, Execute spends its cycle draining this
	// instead of accepting a new op from Decode.
	pendingBody   *network.Flit
	pendingBodyOp *isa.Operation
}

// NewCore constructs a Core backed by a direct-mapped IPK cache. No
// constructor sets ICacheFA or useFA, so every Core fetches through
// ICache.
func NewCore(tileX, tileY uint16, position uint8, numRegs, cmtSize, cacheWords, fifoWords, numFIFOs int) *Core {
	c := &Core{
		TileX: tileX, TileY: tileY, Position: position,
		Predicate: &state.PredicateRegister{},
		Scratch:   state.NewScratchpad(state.DefaultScratchpadSize),
		CtrlRegs:  &state.ControlRegisters{},
		CMT:       network.NewChannelMapTable(cmtSize),
		ICache:    ipk.NewDirectMappedCache(cacheWords),
		IFIFO:     ipk.NewFIFO(fifoWords),
		decoder:   isa.NewDecoder(),
		alu:       NewALU(),
		Output:    newBufferedOutput(),
		Stats:     instrument.NewCollector(),

		fetchBufferDepth: defaultFetchBufferDepth,
		lineWords:        defaultLineWords,
	}
	c.CtrlRegs.Write(state.CRegCoreID, uint32(position))
	c.CtrlRegs.Write(state.CRegTileX, uint32(tileX))
	c.CtrlRegs.Write(state.CRegTileY, uint32(tileY))

	concrete := make([]*channelFIFO, numFIFOs)
	fifos := make([]state.ChannelFIFORead, numFIFOs)
	for i := range fifos {
		concrete[i] = newChannelFIFO(fifoCapacity)
		fifos[i] = concrete[i]
	}
	c.fifos = concrete
	c.Registers = state.NewRegisterFile(numRegs, fifos, nil)
	return c
}

// DeliverFlit hands an inbound flit from the tile's crossbar to this
// core's input side (spec.md §2, "an InputCrossbar that steers incoming
// flits to one of several per-channel FIFOs"). A fetch response is
// routed to the write loop (spec.md §4.3, "RECEIVE"); everything else
// is an ordinary data flit destined for a channel-end FIFO, which is
// how load responses and inter-core data both arrive (spec.md §4.7).
// If f.CreditRequired, a CreditFlit owed back to the sender is
// returned for the tile to route (spec.md §5, "a consumer must emit a
// credit no later than the cycle it consumes a flit" — taken here to
// mean the cycle a flit is accepted into its destination FIFO).
func (c *Core) DeliverFlit(f network.Flit) *network.CreditFlit {
	if f.MemOp == network.MemOpFetch || f.MemOp == network.MemOpFetchContinue {
		c.receiveFetchWord(f)
		return nil
	}

	ch := int(f.Dest.Channel)
	if ch < 0 || ch >= len(c.fifos) {
		return nil
	}
	c.fifos[ch].Enqueue(f.Payload)
	if !f.CreditRequired {
		return nil
	}
	return &network.CreditFlit{DestTile: f.SourceTile, DestPos: f.SourcePos, Channel: f.SourceEntry}
}

// Idle reports whether this core has no instruction in any pipeline
// register and no active, pending, or buffered fetch (spec.md §7, "if
// every core is idle ... for N cycles, simulation terminates").
func (c *Core) Idle() bool {
	return !c.fd.Valid && !c.de.Valid && !c.ew.Valid && c.current == nil && c.pendingBody == nil &&
		len(c.fetchBuffer) == 0 && c.fifoPending == nil && c.cachePending == nil && c.wstate == writeReady
}

// ReceiveCredit applies an inbound CreditFlit to this core's CMT
// (spec.md §4.10, "Credit network").
func (c *Core) ReceiveCredit(entry uint8) {
	c.CMT.CreditArrived(entry)
}

// channelID identifies this core for destination purposes.
func (c *Core) channelID(channel uint8) chanid.ChannelID {
	return chanid.ChannelID{Tile: c.TileX*1000 + c.TileY, Position: c.Position, Channel: channel}
}

// Tick advances every stage one cycle, in reverse pipeline order so
// each stage sees this cycle's downstream state rather than last
// cycle's (spec.md §5: "a stage cannot start instruction N+1 until it
// has delivered instruction N downstream").
func (c *Core) Tick() {
	c.Stats.Tick()
	c.tickWriteback()
	c.tickExecute()
	c.tickDecode()
	c.tickFetch()
	c.tickFetchWrite()
}
