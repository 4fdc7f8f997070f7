package isa

import "fmt"

// Decoder decodes Loki Raw instruction words into Operations. It is
// stateless; per-packet state (CMT-entry caching across the flits of
// one network packet, remote-execute mode) is owned by the Decode
// pipeline stage in package core, which calls Decoder.Decode once per
// instruction.
type Decoder struct{}

// NewDecoder creates a Loki instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// UnrecognizedOpcodeError is returned when a Raw word's opcode field
// has no Descriptor — a fatal assertion during execution of an
// already-loaded binary, per spec.md §7.
type UnrecognizedOpcodeError struct {
	Opcode uint8
}

func (e *UnrecognizedOpcodeError) Error() string {
	return fmt.Sprintf("isa: unrecognized opcode %d", e.Opcode)
}

// Decode produces exactly one Operation from a Raw instruction word,
// per spec.md §4.1. source and memAddr are stamped onto the result
// as-is (they are supplied by Fetch, not derivable from the word
// itself).
func (d *Decoder) Decode(word Raw, source SourceTag, memAddr uint32) (*Operation, error) {
	opcode := word.Opcode()
	op := Op(opcode)

	desc, ok := Describe(op)
	if !ok {
		return nil, &UnrecognizedOpcodeError{Opcode: opcode}
	}

	o := &Operation{
		Op:          op,
		Function:    word.Function(),
		Pred:        word.Predicate(),
		Source:      source,
		MemAddr:     memAddr,
		Dest:        desc.Dest,
		WillForward: true,
		Indirect:    op == OpIWTR,
	}

	switch desc.Format {
	case FormatNone:
		// no register/immediate fields used.
	case Format1Reg:
		o.Reg1 = word.Reg1()
	case Format2Reg:
		o.Reg1 = word.Reg1()
		o.Reg2 = word.Reg2()
	case Format3Reg:
		o.Reg1 = word.Reg1()
		o.Reg2 = word.Reg2()
		o.Reg3 = word.Reg3()
	case Format2RegImm:
		o.Reg1 = word.Reg1()
		o.Reg2 = word.Reg2()
		o.Immediate = int32(word.Reg3())<<4 | int32(word.Function())
		o.Immediate = signExtendSmall(o.Immediate, 9)
	case Format1RegImm:
		o.Reg1 = word.Reg1()
		o.Immediate = word.Imm23()
	case FormatShift:
		o.Reg1 = word.Reg1()
		o.Reg2 = word.Reg2()
		o.Immediate = int32(word.ShiftAmount())
	case FormatFetchAbs:
		o.Immediate = word.Imm23()
	case FormatFetchSplit:
		o.Reg1 = word.Reg1()
		o.Immediate = word.Imm16_7()
	}

	switch {
	case desc.EmitsOnNetwork, desc.Category == CatCMTRead, desc.Category == CatCMTWrite:
		// Mandatory network destination (memory ops) or the channel
		// field is itself the instruction's operand (setchmap/
		// getchmap): always stamp it.
		o.CMTEntry = word.Channel()
	case CanOptionallySend(desc.Category):
		// Optional network send (spec.md §8 Scenario 5, `-> channel`):
		// only stamp it, and mark the op as network-emitting, when the
		// encoding actually named a channel.
		if ch := word.Channel(); ch != NoChannel {
			o.CMTEntry = ch
			o.Flags.EmitsOnNetwork = true
		}
	}

	o.Flags.SetsPredicate = desc.SetsPredicateCapable && o.Pred != PredAlways && o.Pred != PredEndOfPacket && setSuffixBit(word)
	o.Flags.EndOfPacket = o.Pred == PredEndOfPacket

	return o, nil
}

// setSuffixBit reports whether the `.p` (set-predicate) suffix bit is
// present. Loki encodes this as function-field bit 3 for ALU-class
// opcodes that support it; opcodes without SetsPredicateCapable ignore
// this bit entirely.
func setSuffixBit(word Raw) bool {
	return word.Function()&0x8 != 0
}

func signExtendSmall(v int32, bits uint) int32 {
	shift := 32 - bits
	return (v << shift) >> shift
}
