// Package instrument collects per-core stall-reason attribution and
// chip-wide statistics (spec.md §5: "Every pipeline stage that may
// block identifies the reason... so that a stall trace can attribute
// time to a cause"). Generalized from the teacher's flat
// `timing/pipeline.Stats` counters into a named-reason table.
package instrument

import (
	"fmt"
	"io"
)

// StallReason names why a pipeline stage could not advance this cycle
// (spec.md §5).
type StallReason uint8

const (
	StallNone StallReason = iota
	StallInstructions // waiting on the instruction store (Fetch)
	StallMemoryData   // waiting on a memory response
	StallCoreData     // waiting on another core's data (channel FIFO empty)
	StallForwarding   // waiting on a forwarded Execute result
	StallFetch        // Fetch's write loop waiting on a fetch slot
	StallOutput       // waiting on network output readiness / credit
	numStallReasons
)

func (r StallReason) String() string {
	switch r {
	case StallNone:
		return "none"
	case StallInstructions:
		return "instructions"
	case StallMemoryData:
		return "memory-data"
	case StallCoreData:
		return "core-data"
	case StallForwarding:
		return "forwarding"
	case StallFetch:
		return "fetch"
	case StallOutput:
		return "output"
	default:
		return "unknown"
	}
}

// Stats mirrors the teacher's `timing/pipeline.Stats` shape, extended
// with per-reason stall cycle counts and a network-credit tally
// (spec.md §2's implementation-share table calls out "writeback + CMT
// + credits" and "local network" as distinct cost centers worth their
// own counters).
type Stats struct {
	Cycles       uint64
	Instructions uint64
	Stalls       [numStallReasons]uint64
	Branches     uint64
	Flushes      uint64
	CreditsSent  uint64
	CreditsRecv  uint64
	FlitsRouted  uint64
}

// CPI returns cycles per instruction, 0 if no instructions retired.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// TotalStalls sums every stall reason's cycle count.
func (s Stats) TotalStalls() uint64 {
	var total uint64
	for _, c := range s.Stalls {
		total += c
	}
	return total
}

// Collector accumulates Stats for one core across the simulation run.
// A chip owns one Collector per core (spec.md §5's "Shared-resource
// policy": each instruction store / register file is touched only by
// its owning core, and instrumentation follows the same ownership).
type Collector struct {
	stats Stats

	label      string
	stallTrace io.Writer
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// EnableStallTrace turns on a per-stall-event CSV log (`-stalltrace`,
// spec.md §6: "Emit a per-stall log with cycle, core, reason,
// duration"), attributed to label (e.g. "tile0.core3"). Each Stall
// call while enabled writes one line at one-cycle granularity, since
// the stage that stalls reports the reason fresh every cycle it is
// blocked rather than tracking streak duration itself.
func (c *Collector) EnableStallTrace(label string, w io.Writer) {
	c.label = label
	c.stallTrace = w
}

// Tick records that one cycle elapsed.
func (c *Collector) Tick() {
	c.stats.Cycles++
}

// Retire records that one instruction committed past Writeback.
func (c *Collector) Retire() {
	c.stats.Instructions++
}

// Stall records one cycle attributed to reason.
func (c *Collector) Stall(reason StallReason) {
	if reason == StallNone {
		return
	}
	c.stats.Stalls[reason]++
	if c.stallTrace != nil {
		fmt.Fprintf(c.stallTrace, "%d,%s,%s,1\n", c.stats.Cycles, c.label, reason)
	}
}

// Branch records a taken branch / fetch redirection.
func (c *Collector) Branch() {
	c.stats.Branches++
}

// Flush records a pipeline-register flush (e.g. next-IPK cancellation,
// spec.md §5 "Cancellation / timeouts").
func (c *Collector) Flush() {
	c.stats.Flushes++
}

// CreditSent/CreditReceived/FlitRouted record network-side events for
// the `-summary` report (spec.md §6).
func (c *Collector) CreditSent()     { c.stats.CreditsSent++ }
func (c *Collector) CreditReceived() { c.stats.CreditsRecv++ }
func (c *Collector) FlitRouted()     { c.stats.FlitsRouted++ }

// Snapshot returns the accumulated Stats by value.
func (c *Collector) Snapshot() Stats {
	return c.stats
}
