// Package chip assembles tiles into the full many-core grid: Chip
// owns every Tile, resolves cross-tile flit hand-offs, and drives the
// global clock (spec.md §2, §7).
package chip

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/lokisim/config"
	"github.com/sarchlab/lokisim/core"
	"github.com/sarchlab/lokisim/network"
	"github.com/sarchlab/lokisim/warn"
)

// DefaultFreq is the clock rate Chip reports to anything that cares
// about wall-clock-relative simulated time (spec.md makes no timing
// claim beyond cycles; this exists only so Chip can hand out a
// sim.VTimeInSec the way an akita component would).
const DefaultFreq = 1 * sim.GHz

// Chip is the top-level simulated object: a TileGridWidth x
// TileGridHeight grid of Tiles, each independently addressable by
// chanid.ChannelID.Tile (spec.md §2). Unlike Tile's own
// crossbar/arbiter, which are plain synchronous structs driven once
// per global cycle from inside Chip.Tick, Chip is where
// github.com/sarchlab/akita/v4/sim is actually wired in: it is the
// one object in this module with a clock rate and a notion of
// simulated time, which is what sim.Freq/sim.VTimeInSec exist to
// express. A full sim.TickingComponent/sim.Engine.Schedule
// event-queue is not used here — that machinery exists to let
// independently-clocked components interleave, and this module has
// exactly one clock domain (spec.md §5's single global cycle), so
// Chip.Run drives every tile with a plain incrementing loop instead.
type Chip struct {
	Freq sim.Freq

	tiles   [][]*Tile // [x][y]
	byKey   map[uint16]*Tile
	width   int
	height  int

	warn *warn.Registry

	idleCycles int
	timeout    int
}

// New builds a Chip with p.TileGridWidth x p.TileGridHeight tiles,
// each with p.CoresPerTile cores and p.BanksPerTile banks, and wires
// every tile's cross-tile flit hand-off (spec.md §1 Non-goals: "the
// global inter-tile mesh's per-hop protocol is identical to the local
// crossbar" — modeled here as a direct, uncontended lookup rather than
// a second routing stage).
func New(p *config.Parameters, w *warn.Registry) *Chip {
	c := &Chip{
		Freq:    DefaultFreq,
		tiles:   make([][]*Tile, p.TileGridWidth),
		byKey:   make(map[uint16]*Tile),
		width:   p.TileGridWidth,
		height:  p.TileGridHeight,
		warn:    w,
		timeout: p.IdleCycleTimeout,
	}

	for x := 0; x < p.TileGridWidth; x++ {
		c.tiles[x] = make([]*Tile, p.TileGridHeight)
		for y := 0; y < p.TileGridHeight; y++ {
			t := NewTile(uint16(x), uint16(y), p, w)
			c.tiles[x][y] = t
			c.byKey[t.Key()] = t
		}
	}

	for x := 0; x < p.TileGridWidth; x++ {
		for y := 0; y < p.TileGridHeight; y++ {
			c.tiles[x][y].remoteDeliver = c.deliverRemote
		}
	}

	return c
}

// deliverRemote hands f to whichever tile f.Dest.Tile names, directly
// into that tile's local core or bank (bypassing a second crossbar;
// see New's doc comment). A destination tile that doesn't exist is a
// misconfigured binary's bad CMT entry, warned rather than panicked on
// so one bad packet doesn't halt the whole chip.
func (c *Chip) deliverRemote(f network.Flit) *network.CreditFlit {
	dest, ok := c.byKey[f.Dest.Tile]
	if !ok {
		c.warn.Warn(warn.OutOfBounds, "flit addressed to nonexistent tile %d", f.Dest.Tile)
		return nil
	}
	return dest.DeliverLocal(int(f.Dest.Position), f)
}

// Tick advances every tile one cycle and routes each tile's returned
// credits back to their owning tile (spec.md §4.10). now is accepted
// only to mirror sim.TickingComponent's Tick signature for any future
// caller that wants to drive Chip through an akita Engine; Chip itself
// does not consult it.
func (c *Chip) Tick(now sim.VTimeInSec) (madeProgress bool) {
	for x := 0; x < c.width; x++ {
		for y := 0; y < c.height; y++ {
			t := c.tiles[x][y]
			credits := t.Tick()
			for _, cf := range credits {
				dest, ok := c.byKey[cf.DestTile]
				if !ok {
					continue
				}
				dest.ApplyCredit(cf)
			}
			if !t.Idle() {
				madeProgress = true
			}
		}
	}
	return madeProgress
}

// Run drives Chip one cycle at a time until every tile has been idle
// for IdleCycleTimeout consecutive cycles (spec.md §7, "Deadlock /
// livelock": "if every core is idle ... for N cycles, simulation
// terminates cleanly"), returning the number of cycles executed.
func (c *Chip) Run() (cycles uint64, err error) {
	var now sim.VTimeInSec
	step := sim.VTimeInSec(1 / float64(c.Freq))

	for {
		c.Tick(now)
		cycles++
		now += step

		if c.Idle() {
			c.idleCycles++
			if c.timeout > 0 && c.idleCycles >= c.timeout {
				return cycles, fmt.Errorf("idle timeout: no core made progress for %d cycles", c.timeout)
			}
		} else {
			c.idleCycles = 0
		}
	}
}

// Idle reports whether every tile on the chip is idle this cycle.
func (c *Chip) Idle() bool {
	for x := 0; x < c.width; x++ {
		for y := 0; y < c.height; y++ {
			if !c.tiles[x][y].Idle() {
				return false
			}
		}
	}
	return true
}

// Tile returns the tile at grid position (x, y), or nil if out of
// range — used by the loader to place program images (spec.md §6).
func (c *Chip) Tile(x, y int) *Tile {
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return nil
	}
	return c.tiles[x][y]
}

// CoreByID resolves a flat core index (tile-major, then core-within-tile
// order) to its Core, for the loader script's `<memory-id> <core-id>
// <elf-file>` directive (spec.md §6) to name a core without the script
// author needing to know the tile grid shape.
func (c *Chip) CoreByID(id int) *core.Core {
	for x := 0; x < c.width; x++ {
		for y := 0; y < c.height; y++ {
			t := c.tiles[x][y]
			if id < len(t.Cores) {
				return t.Cores[id]
			}
			id -= len(t.Cores)
		}
	}
	return nil
}

// BankByID resolves a flat memory-bank index the same way CoreByID
// resolves a core index.
func (c *Chip) BankByID(id int) *MemoryBank {
	for x := 0; x < c.width; x++ {
		for y := 0; y < c.height; y++ {
			t := c.tiles[x][y]
			if id < len(t.Banks) {
				return t.Banks[id]
			}
			id -= len(t.Banks)
		}
	}
	return nil
}
