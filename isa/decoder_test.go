package isa

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	word := Encode(PredAlways, uint8(OpADDU), 5, NoChannel, 3, 4, 0)
	if word.Opcode() != uint8(OpADDU) {
		t.Fatalf("opcode = %d, want %d", word.Opcode(), OpADDU)
	}
	if word.Reg1() != 5 || word.Reg2() != 3 || word.Reg3() != 4 {
		t.Fatalf("register fields = %d,%d,%d, want 5,3,4", word.Reg1(), word.Reg2(), word.Reg3())
	}
}

func TestImm23SignExtends(t *testing.T) {
	word := EncodeImm23(PredAlways, uint8(OpFETCH), -1)
	if word.Imm23() != -1 {
		t.Fatalf("Imm23() = %d, want -1", word.Imm23())
	}

	word = EncodeImm23(PredAlways, uint8(OpFETCH), 100)
	if word.Imm23() != 100 {
		t.Fatalf("Imm23() = %d, want 100", word.Imm23())
	}
}

func TestDecodeADDU(t *testing.T) {
	d := NewDecoder()
	word := Encode(PredAlways, uint8(OpADDU), 5, NoChannel, 3, 4, 0)

	op, err := d.Decode(word, SourceCache, 0x1000)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if op.Op != OpADDU {
		t.Fatalf("Op = %v, want OpADDU", op.Op)
	}
	if op.Reg1 != 5 || op.Reg2 != 3 || op.Reg3 != 4 {
		t.Fatalf("registers = %d,%d,%d, want 5,3,4", op.Reg1, op.Reg2, op.Reg3)
	}
	if op.Dest != DestRegister {
		t.Fatalf("Dest = %v, want DestRegister", op.Dest)
	}
	if op.Flags.EmitsOnNetwork {
		t.Fatal("addu encoded with NoChannel should not be marked EmitsOnNetwork")
	}
}

// TestDecodeADDUWithChannelAlsoEmits covers spec.md §8 Scenario 5's
// `or r0 r7 r0 -> 3`-style optional send from an ALU-class op: naming
// a real channel marks the op as network-emitting in addition to its
// ordinary register destination.
func TestDecodeADDUWithChannelAlsoEmits(t *testing.T) {
	d := NewDecoder()
	word := Encode(PredAlways, uint8(OpADDU), 5, 3, 3, 4, 0)

	op, err := d.Decode(word, SourceCache, 0x1000)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if !op.Flags.EmitsOnNetwork {
		t.Fatal("addu encoded with channel 3 should be marked EmitsOnNetwork")
	}
	if op.CMTEntry != 3 {
		t.Fatalf("CMTEntry = %d, want 3", op.CMTEntry)
	}
	if op.Dest != DestRegister {
		t.Fatal("an optional network send must not replace the register destination")
	}
}

// TestDecodeSetchmapIgnoresNoChannelSentinel confirms NoChannel's
// "no send" meaning is scoped to optional-send categories only:
// setchmap/getchmap use the full 0-15 channel field as a literal CMT
// index, so CMTEntry 15 must round-trip exactly, never be treated as
// "absent".
func TestDecodeSetchmapIgnoresNoChannelSentinel(t *testing.T) {
	d := NewDecoder()
	word := Encode(PredAlways, uint8(OpGETCHMAP), 5, NoChannel, 0, 0, 0)

	op, err := d.Decode(word, SourceCache, 0)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if op.CMTEntry != NoChannel {
		t.Fatalf("CMTEntry = %d, want %d (getchmap uses the full channel range as an index)", op.CMTEntry, NoChannel)
	}
}

func TestDecodeUnrecognizedOpcode(t *testing.T) {
	d := NewDecoder()
	// opcode 127 has no descriptor.
	word := Encode(PredAlways, 127, 0, 0, 0, 0, 0)

	_, err := d.Decode(word, SourceCache, 0)
	if err == nil {
		t.Fatal("expected an error for an unrecognized opcode")
	}
	if _, ok := err.(*UnrecognizedOpcodeError); !ok {
		t.Fatalf("err type = %T, want *UnrecognizedOpcodeError", err)
	}
}

func TestEndOfPacketPredicateAlwaysExecutes(t *testing.T) {
	op := &Operation{Pred: PredEndOfPacket}
	if !op.PredicateSatisfied(false) {
		t.Fatal("end-of-packet predicate should always execute")
	}
	// Flags.EndOfPacket is set by Decode, not by the zero-value
	// Operation constructed above, so check it on a decoded word.
	decoded, err := NewDecoder().Decode(Encode(PredEndOfPacket, uint8(OpADDU), 5, NoChannel, 3, 4, 0), SourceCache, 0)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if !decoded.Flags.EndOfPacket {
		t.Fatal("Decode should set Flags.EndOfPacket for the end-of-packet predicate")
	}
}

func TestPredicateIfTrueIfFalse(t *testing.T) {
	op := &Operation{Pred: PredIfTrue}
	if op.PredicateSatisfied(false) {
		t.Fatal("if-true predicate with false register should not execute")
	}
	if !op.PredicateSatisfied(true) {
		t.Fatal("if-true predicate with true register should execute")
	}

	op = &Operation{Pred: PredIfFalse}
	if !op.PredicateSatisfied(false) {
		t.Fatal("if-false predicate with false register should execute")
	}
	if op.PredicateSatisfied(true) {
		t.Fatal("if-false predicate with true register should not execute")
	}
}

func TestChannelIDRoundTripInDescriptor(t *testing.T) {
	d := NewDecoder()
	word := Encode(PredAlways, uint8(OpSTW), 3, 2, 4, 16, 0)
	op, err := d.Decode(word, SourceCache, 0)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if op.CMTEntry != 2 {
		t.Fatalf("CMTEntry = %d, want 2", op.CMTEntry)
	}
	desc := op.Descriptor()
	if !desc.EmitsOnNetwork {
		t.Fatal("stw should be marked EmitsOnNetwork")
	}
	if desc.MemShape != MemShapeStore {
		t.Fatalf("MemShape = %v, want MemShapeStore", desc.MemShape)
	}
}
