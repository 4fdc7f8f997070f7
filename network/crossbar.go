package network

// BandwidthMonitor forbids more than a fixed number of flits per
// cycle across a link (spec.md §4.9, "Bandwidth cap"). One monitor
// instance is shared by every output of a Crossbar; Crossbar.Grant
// calls Reset at the start of each cycle's grant phase.
type BandwidthMonitor struct {
	capPerCycle int
	used        []int
}

// NewBandwidthMonitor creates a monitor for numOutputs links, each
// capped at capPerCycle flits per cycle. capPerCycle <= 0 means
// unlimited.
func NewBandwidthMonitor(numOutputs, capPerCycle int) *BandwidthMonitor {
	return &BandwidthMonitor{capPerCycle: capPerCycle, used: make([]int, numOutputs)}
}

// Allow reports whether output has remaining bandwidth this cycle.
func (b *BandwidthMonitor) Allow(output int) bool {
	if b.capPerCycle <= 0 {
		return true
	}
	return b.used[output] < b.capPerCycle
}

// Record accounts for one flit crossing output this cycle.
func (b *BandwidthMonitor) Record(output int) {
	b.used[output]++
}

// Reset clears the per-cycle counters; called once per clock edge.
func (b *BandwidthMonitor) Reset() {
	for i := range b.used {
		b.used[i] = 0
	}
}

// pendingFlit is one input port's head-of-line flit, together with
// the set of outputs it still needs to be read by (more than one for
// a multicast flit; invariant (vii)).
type pendingFlit struct {
	flit        *Flit
	destOutputs []int
	consumed    map[int]bool
}

func (p *pendingFlit) allConsumed() bool {
	for _, o := range p.destOutputs {
		if !p.consumed[o] {
			return false
		}
	}
	return true
}

// Crossbar is a full crossbar between a tile's producers and
// consumers, with one ClockedArbiter per output doing wormhole-held
// round-robin arbitration (spec.md §4.9). It deliberately does not
// reimplement akita's Port/Connection/Buffer mesh — the crossbar is
// driven explicitly, cycle by cycle, by its owning tile, which is the
// only thing that needs the full mesh's generality here.
type Crossbar struct {
	numInputs  int
	numOutputs int
	arbiters   []*ClockedArbiter
	pending    []*pendingFlit
	bandwidth  *BandwidthMonitor
}

// NewCrossbar creates a crossbar with numInputs producer ports and
// numOutputs consumer ports. bandwidth may be nil for no cap.
func NewCrossbar(numInputs, numOutputs int, bandwidth *BandwidthMonitor) *Crossbar {
	x := &Crossbar{
		numInputs:  numInputs,
		numOutputs: numOutputs,
		arbiters:   make([]*ClockedArbiter, numOutputs),
		pending:    make([]*pendingFlit, numInputs),
		bandwidth:  bandwidth,
	}
	for i := range x.arbiters {
		x.arbiters[i] = NewClockedArbiter(numInputs)
	}
	return x
}

// Offer presents input's head-of-line flit to the crossbar, routed to
// destOutputs (more than one element only for a multicast flit). A
// flit already offered and not yet fully consumed is left untouched —
// Offer is a no-op for an input with pending data.
func (x *Crossbar) Offer(input int, f *Flit, destOutputs []int) {
	if x.pending[input] != nil {
		return
	}
	x.pending[input] = &pendingFlit{flit: f, destOutputs: destOutputs, consumed: map[int]bool{}}
	for _, o := range destOutputs {
		x.arbiters[o].Request(input)
	}
}

// HasPending reports whether input still holds an unconsumed flit.
func (x *Crossbar) HasPending(input int) bool {
	return x.pending[input] != nil
}

// PendingFlit returns input's head-of-line flit, or nil.
func (x *Crossbar) PendingFlit(input int) *Flit {
	if p := x.pending[input]; p != nil {
		return p.flit
	}
	return nil
}

// Arbitrate runs the negative-clock-edge arbitration phase on every
// output (spec.md §4.9, "Clocking discipline").
func (x *Crossbar) Arbitrate() {
	for _, a := range x.arbiters {
		a.Arbitrate()
	}
}

// Grant runs the grant phase: for every output whose downstream
// signals ready, drives the arbiter's grant and, if bandwidth allows,
// delivers the granted input's flit. Returns the output->input
// deliveries made this cycle. An input that has now been read by all
// of its destination outputs is cleared and, on end-of-packet, its
// granting arbiters are released to re-arbitrate next cycle. The
// bandwidth monitor's per-cycle counts are cleared first.
func (x *Crossbar) Grant(ready func(output int) bool) map[int]int {
	if x.bandwidth != nil {
		x.bandwidth.Reset()
	}
	delivered := map[int]int{}
	for o, a := range x.arbiters {
		if !ready(o) {
			continue
		}
		input, ok := a.Grant(true)
		if !ok {
			continue
		}
		if x.bandwidth != nil && !x.bandwidth.Allow(o) {
			continue
		}
		p := x.pending[input]
		if p == nil {
			continue
		}
		delivered[o] = input
		p.consumed[o] = true
		if x.bandwidth != nil {
			x.bandwidth.Record(o)
		}
		if p.flit.EndOfPacket {
			a.ReleaseOnEndOfPacket()
		}
		if p.allConsumed() {
			x.pending[input] = nil
		}
	}
	return delivered
}
