package core

import "github.com/sarchlab/lokisim/isa"

// ALU evaluates the category of computation a Descriptor names
// (spec.md §4.5). Grounded on `emu/alu.go`'s one-function-per-op
// shape, collapsed to a single Compute entry point driven by
// isa.Category since Loki's categories are far fewer than ARM64's
// per-width, per-flag instruction variants.
type ALU struct{}

// NewALU creates an ALU. It holds no state of its own — every input
// it needs arrives in the Operation.
func NewALU() *ALU {
	return &ALU{}
}

// Compute evaluates op.Category against op.Operand1/Operand2/Operand3
// and returns the result plus, for add/subtract, the carry/borrow bit
// used to update the predicate register (spec.md §4.5, "Predicate
// update"). predicateBit is the live predicate register value, needed
// by `psel`.
func (a *ALU) Compute(op *isa.Operation, predicateBit bool) (result uint32, carryOrBorrow bool) {
	desc := op.Descriptor()
	o1, o2 := op.Operand1, op.Operand2

	switch desc.Category {
	case isa.CatALU:
		return a.computeALU(op, o1, o2)
	case isa.CatCompare:
		return a.computeCompare(op, o1, o2), false
	case isa.CatMulHi:
		return uint32((uint64(o1) * uint64(o2)) >> 32), false
	case isa.CatMulLo:
		return uint32(uint64(o1) * uint64(o2)), false
	case isa.CatClz:
		return uint32(clz32(o1)), false
	case isa.CatPredSelect:
		if predicateBit {
			return o1, false
		}
		return o2, false
	case isa.CatLUI:
		return uint32(op.Immediate) << 16, false
	case isa.CatMemAddr:
		return o1 + o2, false
	default:
		return 0, false
	}
}

func (a *ALU) computeALU(op *isa.Operation, o1, o2 uint32) (uint32, bool) {
	switch op.Op {
	case isa.OpADDU, isa.OpADDUI:
		sum := uint64(o1) + uint64(o2)
		return uint32(sum), sum > 0xFFFFFFFF
	case isa.OpSUBU, isa.OpSUBUI:
		borrow := o1 < o2
		return o1 - o2, borrow
	case isa.OpAND, isa.OpANDI:
		return o1 & o2, false
	case isa.OpOR, isa.OpORI:
		return o1 | o2, false
	case isa.OpXOR, isa.OpXORI:
		return o1 ^ o2, false
	case isa.OpNOR:
		return ^(o1 | o2), false
	case isa.OpSLL:
		return o1 << (o2 & 0x1F), false
	case isa.OpSRL:
		return o1 >> (o2 & 0x1F), false
	case isa.OpSRA:
		return uint32(int32(o1) >> (o2 & 0x1F)), false
	default:
		return 0, false
	}
}

func (a *ALU) computeCompare(op *isa.Operation, o1, o2 uint32) uint32 {
	var b bool
	switch op.Op {
	case isa.OpSETEQ:
		b = o1 == o2
	case isa.OpSETNE:
		b = o1 != o2
	case isa.OpSETLT:
		b = int32(o1) < int32(o2)
	case isa.OpSETLTU:
		b = o1 < o2
	case isa.OpSETGTE, isa.OpSETGTEI:
		b = int32(o1) >= int32(o2)
	}
	if b {
		return 1
	}
	return 0
}

func clz32(v uint32) int {
	if v == 0 {
		return 32
	}
	n := 0
	for v&0x80000000 == 0 {
		v <<= 1
		n++
	}
	return n
}
