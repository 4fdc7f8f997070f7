package network

import (
	"testing"

	"github.com/sarchlab/lokisim/chanid"
)

func TestCreditedEntryBlocksSendUntilCreditArrives(t *testing.T) {
	cmt := NewChannelMapTable(DefaultCMTSize)
	cmt.Write(3, Entry{Kind: ViewCore, Core: CoreView{
		Dest:       chanid.ChannelID{Tile: 1, Position: 2, Channel: 0},
		UseCredits: true,
		Credits:    0,
		MaxCredits: 4,
	}})

	if cmt.CanSend(3) {
		t.Fatal("entry with zero credits should not be sendable")
	}
	cmt.CreditArrived(3)
	if !cmt.CanSend(3) {
		t.Fatal("entry should be sendable after a credit arrives")
	}
	cmt.RemoveCredit(3)
	if cmt.CanSend(3) {
		t.Fatal("entry should not be sendable again after its one credit is spent")
	}
}

func TestUncreditedEntryAlwaysCanSend(t *testing.T) {
	cmt := NewChannelMapTable(DefaultCMTSize)
	cmt.Write(0, Entry{Kind: ViewMemory, Memory: MemoryView{Tile: 2, BaseBank: 0, GroupSize: 4, LineSize: 32}})
	if !cmt.CanSend(0) {
		t.Fatal("a memory-view entry is never credit-gated")
	}
}

func TestMemoryBankForSelectsWithinGroup(t *testing.T) {
	e := Entry{Kind: ViewMemory, Memory: MemoryView{BaseBank: 4, GroupSize: 4, LineSize: 32}}
	if got := e.MemoryBankFor(0); got != 4 {
		t.Fatalf("bank(0) = %d, want 4", got)
	}
	if got := e.MemoryBankFor(32); got != 5 {
		t.Fatalf("bank(32) = %d, want 5", got)
	}
	if got := e.MemoryBankFor(32 * 4); got != 4 {
		t.Fatalf("bank(128) = %d, want 4 (wraps around the group)", got)
	}
}
