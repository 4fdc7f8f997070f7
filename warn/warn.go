// Package warn implements the simulator's named, individually
// silenceable warnings (spec.md §7: "Warnings have unique names and
// can be silenced individually via -Wname=off"). No logging library
// appears anywhere in the example corpus — the teacher itself warns
// with plain `fmt.Fprintf(os.Stderr, …)` — so this stays on the
// standard library rather than introducing one.
package warn

import (
	"fmt"
	"os"
	"sync"
)

// Registry tracks which named warnings are currently silenced and
// writes enabled ones to an output stream.
type Registry struct {
	mu       sync.Mutex
	out      *os.File
	silenced map[string]bool
	silent   bool // -silent: suppress everything except fatal errors
	counts   map[string]int
}

// New creates a Registry writing to out (os.Stderr in production).
func New(out *os.File) *Registry {
	return &Registry{out: out, silenced: make(map[string]bool), counts: make(map[string]int)}
}

// Silence implements `-Wname=off`: future warnings with this name are
// dropped.
func (r *Registry) Silence(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.silenced[name] = true
}

// Unsilence re-enables a previously silenced warning name.
func (r *Registry) Unsilence(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.silenced, name)
}

// SetSilent implements the global `-silent` flag.
func (r *Registry) SetSilent(silent bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.silent = silent
}

// Warn emits a named warning unless that name (or everything) is
// silenced. It always records the occurrence count, even when
// silenced, so `-summary` can report how many of each kind fired.
func (r *Registry) Warn(name, format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[name]++
	if r.silent || r.silenced[name] {
		return
	}
	fmt.Fprintf(r.out, "warning[%s]: %s\n", name, fmt.Sprintf(format, args...))
}

// Func returns a bound closure matching the `func(name, format string,
// args ...interface{})` shape that core/state.RegisterFile and other
// leaf packages accept, so they need not import this package directly
// (they stay decoupled from *how* warnings are delivered).
func (r *Registry) Func() func(name, format string, args ...interface{}) {
	return r.Warn
}

// Counts returns a snapshot of how many times each warning fired,
// silenced or not (spec.md §6 "-summary").
func (r *Registry) Counts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}

// Fatal reports an unrecoverable error and always prints regardless of
// -silent (spec.md §7: "everything else is surfaced to the user").
func (r *Registry) Fatal(format string, args ...interface{}) {
	fmt.Fprintf(r.out, "fatal: %s\n", fmt.Sprintf(format, args...))
}

// Named warnings used throughout core/, network/, and loader/ — kept
// here as constants so call sites and -Wname=off agree on spelling.
const (
	WriteR1         = "write-r1"
	ReadOnlyWrite   = "read-only"
	Alignment       = "alignment"
	OutOfBounds     = "out-of-bounds"
	UnrecognizedOp  = "unrecognized-opcode"
	DroppedCredit   = "dropped-credit"
	FetchOverlap    = "fetch-overlap"
)
