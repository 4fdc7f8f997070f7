package state

// PredicateRegister is the single-bit predicate register written by
// any `.p`-suffixed instruction from Execute (spec.md §3, §4.1).
type PredicateRegister struct {
	bit bool
}

// Read returns the current predicate value.
func (p *PredicateRegister) Read() bool {
	return p.bit
}

// Write sets the predicate value.
func (p *PredicateRegister) Write(v bool) {
	p.bit = v
}

// WriteFromCarry sets the predicate from an add's carry-out, per
// spec.md §4.5 ("for add, predicate <- carry").
func (p *PredicateRegister) WriteFromCarry(a, b, result uint64) {
	p.bit = result < a || result < b
}

// WriteFromBorrow sets the predicate from a subtract's borrow, per
// spec.md §4.5 ("for subtract, predicate <- borrow").
func (p *PredicateRegister) WriteFromBorrow(a, b uint64) {
	p.bit = a < b
}

// WriteFromLowBit sets the predicate from bit 0 of a result, the
// default rule for every other `.p`-capable opcode (spec.md §4.5).
func (p *PredicateRegister) WriteFromLowBit(result uint32) {
	p.bit = result&1 != 0
}
