package core

import (
	"testing"

	"github.com/sarchlab/lokisim/isa"
	"github.com/sarchlab/lokisim/network"
)

// runUntilIdle ticks cr until it has no in-flight work, bailing out
// after max cycles so a broken test fails fast instead of hanging.
func runUntilIdle(t *testing.T, cr *Core, max int) {
	t.Helper()
	for i := 0; i < max; i++ {
		if cr.Idle() {
			return
		}
		cr.Tick()
	}
	t.Fatalf("core did not go idle within %d cycles", max)
}

// TestArithmeticThenPredicateThenSelect covers an addu feeding a
// setgtei.p, whose predicate write then steers a psel (spec.md §8
// scenario: "arithmetic result used by a predicated compare, whose
// predicate then steers a psel").
func TestArithmeticThenPredicateThenSelect(t *testing.T) {
	cr := NewCore(0, 0, 0, 32, 16, 64, 16, 4)
	cr.Registers.Write(3, 5)
	cr.Registers.Write(4, 7)

	const addr = 0x1000
	words := []uint32{
		uint32(isa.Encode(isa.PredAlways, uint8(isa.OpADDU), 5, isa.NoChannel, 3, 4, 0)),
		// setgtei.p r0, r5, 10 — predicated IfFalse so it fires from the
		// predicate register's zero-value initial state; reg3=0,
		// function=0xA packs immediate 10 with the .p suffix bit set.
		uint32(isa.Encode(isa.PredIfFalse, uint8(isa.OpSETGTEI), 0, isa.NoChannel, 5, 0, 0xA)),
		uint32(isa.Encode(isa.PredEndOfPacket, uint8(isa.OpPSEL), 6, isa.NoChannel, 3, 4, 0)),
	}
	cr.StoreCode(words, addr, false)
	if !cr.StartFetch(addr, false) {
		t.Fatal("StartFetch failed on a pre-loaded cache-resident packet")
	}

	runUntilIdle(t, cr, 30)

	if v, _ := cr.Registers.Read(5); v != 12 {
		t.Fatalf("r5 = %d, want 12", v)
	}
	if !cr.Predicate.Read() {
		t.Fatal("predicate register should be true after setgtei.p 12>=10")
	}
	if v, _ := cr.Registers.Read(6); v != 5 {
		t.Fatalf("r6 = %d, want 5 (psel should have selected operand1 once predicate went true)", v)
	}
}

// TestPacketRetiresOnEndOfPacketPredicate covers a three-instruction
// packet closed by the end-of-packet predicate value, asserting both
// the cache's own bookkeeping and the final register outcome (spec.md
// §8 scenario: "a packet closed out by its end-of-packet predicate").
func TestPacketRetiresOnEndOfPacketPredicate(t *testing.T) {
	cr := NewCore(0, 0, 0, 32, 16, 64, 16, 4)

	const addr = 0x2000
	words := []uint32{
		uint32(isa.Encode(isa.PredAlways, uint8(isa.OpADDUI), 3, isa.NoChannel, 0, 0, 1)),
		uint32(isa.Encode(isa.PredAlways, uint8(isa.OpADDUI), 4, isa.NoChannel, 0, 0, 2)),
		uint32(isa.Encode(isa.PredEndOfPacket, uint8(isa.OpADDU), 5, isa.NoChannel, 3, 4, 0)),
	}
	cr.StoreCode(words, addr, false)
	if !cr.StartFetch(addr, false) {
		t.Fatal("StartFetch failed on a pre-loaded cache-resident packet")
	}

	runUntilIdle(t, cr, 30)

	if v, _ := cr.Registers.Read(5); v != 3 {
		t.Fatalf("r5 = %d, want 3 (1+2)", v)
	}
	if !cr.ICache.FinishedPacketRead() {
		t.Fatal("ICache should report the last instruction read closed its packet")
	}
	if !cr.ICache.IsEmpty() {
		t.Fatal("ICache should be empty once its one packet has fully retired")
	}
}

// TestNextIPKArrivingInFIFOAbortsPersistentPacket covers a persistent
// packet that has already looped several times, then is cancelled by
// an nxipk word arriving asynchronously in the IPK FIFO (spec.md §4.2:
// "a next-IPK instruction in the FIFO ... causes the enclosing
// fetch-stage to abort the current packet"; §8 scenario: "a persistent
// packet running for K iterations, then cancelled").
func TestNextIPKArrivingInFIFOAbortsPersistentPacket(t *testing.T) {
	cr := NewCore(0, 0, 0, 32, 16, 64, 16, 4)

	// A one-instruction persistent loop body: addui.eop r3, r3, 1.
	const addr = 0x3000
	words := []uint32{
		uint32(isa.Encode(isa.PredEndOfPacket, uint8(isa.OpADDUI), 3, isa.NoChannel, 3, 0, 1)),
	}
	cr.StoreCode(words, addr, false)
	if !cr.StartFetch(addr, true) {
		t.Fatal("StartFetch failed on a pre-loaded persistent packet")
	}

	const iterations = 4
	for i := 0; i < iterations; i++ {
		for n := 0; n < 10 && !(cr.ew.Valid && cr.ew.Op != nil && cr.ew.Op.Flags.EndOfPacket); n++ {
			cr.Tick()
		}
		cr.Tick() // let writeback commit this iteration's result.
	}

	v, _ := cr.Registers.Read(3)
	if v != iterations {
		t.Fatalf("r3 = %d after %d iterations, want %d (persistent packet should keep looping)", v, iterations, iterations)
	}
	if cr.current == nil || !cr.current.Persistent {
		t.Fatal("packet should still be persistent just before cancellation")
	}

	nxipk := uint32(isa.Encode(isa.PredAlways, uint8(isa.OpNXIPK), 0, 0, 0, 0, 0))
	cr.receiveFetchWord(network.Flit{Payload: nxipk, ReturnChan: 0})

	if cr.current != nil {
		t.Fatal("nxipk arriving in the FIFO should abort the currently executing packet")
	}

	after := v
	for i := 0; i < 10; i++ {
		cr.Tick()
	}
	if v, _ := cr.Registers.Read(3); v != after {
		t.Fatalf("r3 changed to %d after cancellation, want it to stay at %d (no further iterations)", v, after)
	}
}
