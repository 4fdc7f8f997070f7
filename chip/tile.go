package chip

import (
	"github.com/sarchlab/lokisim/config"
	"github.com/sarchlab/lokisim/core"
	"github.com/sarchlab/lokisim/network"
	"github.com/sarchlab/lokisim/warn"
)

// Tile owns a set of Cores, a set of MemoryBanks, and the crossbar that
// connects them (spec.md §2). Position addressing is a single flat
// space per tile: cores occupy [0, numCores), banks occupy
// [numCores, numCores+numBanks) — chanid.ChannelID.Position is the
// index into that space, and a memory-view CMT entry's BaseBank is a
// position in that same space (the first bank is at numCores).
type Tile struct {
	X, Y uint16

	Cores []*core.Core
	Banks []*MemoryBank

	numCores int
	numBanks int

	data *network.Crossbar

	// pendingBankResponse holds a bank's reply flit (a load result, or
	// one word of a streaming fetch burst) produced this cycle, drained
	// into the data crossbar's bank input slot at the start of next
	// cycle — a load answers combinationally within Receive, but the
	// crossbar can only accept one new offer per input per cycle
	// (spec.md §4.9, "Clocking discipline"). drainOutputs also polls
	// MemoryBank.NextQueuedFetch here on a cycle with no new inbound
	// request, so a multi-word fetch line keeps streaming.
	pendingBankResponse []*network.Flit

	// remoteDeliver hands a flit whose ChannelID names a different tile
	// straight to that tile's core/bank, bypassing any crossbar (set by
	// Chip once every tile exists). spec.md explicitly scopes "the
	// global inter-tile mesh" and "modeling of physical layout beyond
	// an abstract hop count" out (§1 Non-goals) — only the local,
	// same-tile crossbar's wormhole arbitration is a tested property
	// (spec.md §4.9), so cross-tile hops are modeled as an immediate,
	// uncontended hand-off rather than a second arbitration stage.
	remoteDeliver func(f network.Flit) *network.CreditFlit
}

// Key packs (X, Y) into the single uint16 a ChannelID's Tile field
// carries, matching core.Core.channelID's tileX*1000+tileY packing.
func (t *Tile) Key() uint16 { return t.X*1000 + t.Y }

// NewTile constructs a tile with p.CoresPerTile cores and
// p.BanksPerTile memory banks, wired into one data crossbar (spec.md
// §2, §4.9).
func NewTile(x, y uint16, p *config.Parameters, w *warn.Registry) *Tile {
	numCores := p.CoresPerTile
	numBanks := p.BanksPerTile

	t := &Tile{
		X: x, Y: y,
		numCores:             numCores,
		numBanks:             numBanks,
		pendingBankResponse:  make([]*network.Flit, numBanks),
	}

	for i := 0; i < numCores; i++ {
		c := core.NewCore(x, y, uint8(i), p.NumArchRegisters, p.CMTSize,
			p.IPKCacheWords, p.IPKFIFOWords, p.NumChannelFIFOs)
		c.SetFetchBufferDepth(p.FetchBufferDepth)
		c.SetLineWords(p.IPKCacheLineWords)
		t.Cores = append(t.Cores, c)
	}
	for i := 0; i < numBanks; i++ {
		b := NewMemoryBank(x, uint8(numCores+i), w)
		b.SetLineWords(p.MemoryLineSize / 4)
		t.Banks = append(t.Banks, b)
	}

	var bandwidth *network.BandwidthMonitor
	if p.BandwidthPerLink > 0 {
		bandwidth = network.NewBandwidthMonitor(numCores+numBanks, p.BandwidthPerLink)
	}
	t.data = network.NewCrossbar(numCores+numBanks, numCores+numBanks, bandwidth)

	t.wireDefaultMemoryViews(p)
	return t
}

// wireDefaultMemoryViews pre-configures, on every core, the CMT entry
// named by DefaultMemoryChannel as a memory view addressed at this
// tile's bank group. spec.md §4.8 says CMT entries are "written by
// setchmap or by explicit port-acquire" but names no opcode that
// writes a memory view — only setchmap/setchmapi, which always
// produce a core view (isa/ops.go). This treats the memory-view wiring
// as the "explicit port-acquire" case, done once at construction
// rather than by an instruction.
func (t *Tile) wireDefaultMemoryViews(p *config.Parameters) {
	entry := network.Entry{
		Kind: network.ViewMemory,
		Memory: network.MemoryView{
			Tile:          t.Key(),
			BaseBank:      uint8(t.numCores),
			GroupSize:     uint8(t.numBanks),
			ReturnChannel: uint8(p.DefaultReturnChannel),
			LineSize:      uint32(p.MemoryLineSize),
		},
	}
	for _, c := range t.Cores {
		c.CMT.Write(uint8(p.DefaultMemoryChannel), entry)
	}
}

// Tick advances the tile one cycle: tick every core, drain core/bank
// outputs into the crossbar, arbitrate, grant, and deliver (spec.md
// §4.9's two-phase clocking discipline run once per global cycle).
func (t *Tile) Tick() []network.CreditFlit {
	for _, c := range t.Cores {
		c.Tick()
	}
	creditsOut := t.drainOutputs()

	t.data.Arbitrate()
	delivered := t.data.Grant(func(int) bool { return true })

	for output, input := range delivered {
		f := t.data.PendingFlit(input)
		if f == nil {
			continue
		}
		if credit := t.DeliverLocal(output, *f); credit != nil {
			creditsOut = append(creditsOut, *credit)
		}
	}
	return creditsOut
}

// DeliverLocal hands f to the core or bank at local output position
// output, which must already name this tile. Used both by Tick's own
// crossbar-granted deliveries and as the target of another tile's
// remoteDeliver hand-off.
func (t *Tile) DeliverLocal(output int, f network.Flit) *network.CreditFlit {
	if output < t.numCores {
		return t.Cores[output].DeliverFlit(f)
	}
	bank := t.Banks[output-t.numCores]
	if resp := bank.Receive(f); resp != nil {
		t.pendingBankResponse[output-t.numCores] = resp
	}
	return nil
}

// drainOutputs offers every core's and bank's buffered flit to the
// local crossbar, if it names this tile, and otherwise hands it to
// remoteDeliver; an input already mid-arbitration is left untouched
// (network.Crossbar.Offer is a no-op for a pending input).
func (t *Tile) drainOutputs() []network.CreditFlit {
	var creditsOut []network.CreditFlit
	accept := func(input int, f network.Flit) {
		if f.Dest.Tile != t.Key() {
			if t.remoteDeliver != nil {
				if credit := t.remoteDeliver(f); credit != nil {
					creditsOut = append(creditsOut, *credit)
				}
			}
			return
		}
		cp := f
		t.data.Offer(input, &cp, t.destinations(f))
	}

	for i, c := range t.Cores {
		if t.data.HasPending(i) {
			continue
		}
		f, ok := c.Output.Take()
		if !ok {
			continue
		}
		accept(i, f)
	}
	for i := range t.Banks {
		input := t.numCores + i
		if t.data.HasPending(input) {
			continue
		}
		if t.pendingBankResponse[i] == nil {
			t.pendingBankResponse[i] = t.Banks[i].NextQueuedFetch()
		}
		if t.pendingBankResponse[i] == nil {
			continue
		}
		f := *t.pendingBankResponse[i]
		t.pendingBankResponse[i] = nil
		accept(input, f)
	}
	return creditsOut
}

// destinations resolves a flit's ChannelID into crossbar output
// indices, expanding a multicast bitmask into every selected local
// core (invariant (vii): "consume only one slot in the sender's
// crossbar output").
func (t *Tile) destinations(f network.Flit) []int {
	if f.Dest.Multicast {
		var outs []int
		for _, pos := range f.Dest.Cores(t.numCores) {
			outs = append(outs, int(pos))
		}
		return outs
	}
	return []int{int(f.Dest.Position)}
}

// ApplyCredit routes an inbound CreditFlit to the core it targets.
func (t *Tile) ApplyCredit(cf network.CreditFlit) {
	pos := int(cf.DestPos)
	if pos < 0 || pos >= len(t.Cores) {
		return
	}
	t.Cores[pos].ReceiveCredit(cf.Channel)
}

// Idle reports whether every core on the tile has no in-flight work:
// no valid pipeline register and no active fetch (spec.md §7,
// "Deadlock / livelock").
func (t *Tile) Idle() bool {
	for _, c := range t.Cores {
		if !c.Idle() {
			return false
		}
	}
	return true
}
