package network

import "testing"

func alwaysReady(output int) bool { return true }

func TestCrossbarDeliversSingleDestinationFlit(t *testing.T) {
	x := NewCrossbar(2, 2, nil)
	f := &Flit{Payload: 0xAA, EndOfPacket: true}
	x.Offer(0, f, []int{1})

	x.Arbitrate()
	delivered := x.Grant(alwaysReady)

	if in, ok := delivered[1]; !ok || in != 0 {
		t.Fatalf("delivered[1] = %d,%v, want 0,true", in, ok)
	}
	if x.HasPending(0) {
		t.Fatal("input 0 should be cleared once its only destination consumed it")
	}
}

func TestCrossbarMulticastClearsOnlyAfterAllReaders(t *testing.T) {
	x := NewCrossbar(1, 3, nil)
	f := &Flit{Payload: 0xBB, EndOfPacket: true}
	x.Offer(0, f, []int{0, 1})

	x.Arbitrate()
	delivered := x.Grant(alwaysReady)

	if len(delivered) != 2 {
		t.Fatalf("expected both multicast destinations delivered this cycle, got %d", len(delivered))
	}
	if x.HasPending(0) {
		t.Fatal("input should clear once every multicast destination has consumed it")
	}
}

func TestCrossbarWithholdsUntilDownstreamReady(t *testing.T) {
	x := NewCrossbar(1, 1, nil)
	f := &Flit{Payload: 1, EndOfPacket: true}
	x.Offer(0, f, []int{0})

	x.Arbitrate()
	notReady := func(output int) bool { return false }
	delivered := x.Grant(notReady)
	if len(delivered) != 0 {
		t.Fatal("nothing should be delivered while downstream is not ready")
	}
	if !x.HasPending(0) {
		t.Fatal("flit should remain pending until downstream becomes ready")
	}
}

func TestCrossbarBandwidthCapLimitsDeliveriesPerCycle(t *testing.T) {
	bw := NewBandwidthMonitor(1, 1)
	x := NewCrossbar(2, 1, bw)
	x.Offer(0, &Flit{Payload: 1, EndOfPacket: true}, []int{0})
	x.Offer(1, &Flit{Payload: 2, EndOfPacket: true}, []int{0})

	x.Arbitrate()
	delivered := x.Grant(alwaysReady)
	if len(delivered) != 1 {
		t.Fatalf("bandwidth cap of 1 should allow only one delivery, got %d", len(delivered))
	}
	bw.Reset()
}

// TestCrossbarWormholeSerializesCompetingPacketsByFlit covers two
// two-flit packets arriving from different inputs in the same cycle
// and contending for the same output: the winning packet's two flits
// must be delivered back-to-back before the other input is ever
// granted (spec.md §8 scenario: "wormhole serialization" — a packet's
// flits stay adjacent at the destination rather than interleaving).
func TestCrossbarWormholeSerializesCompetingPacketsByFlit(t *testing.T) {
	x := NewCrossbar(2, 1, nil)

	head0 := &Flit{Payload: 0x100, EndOfPacket: false}
	x.Offer(0, head0, []int{0})
	head1 := &Flit{Payload: 0x200, EndOfPacket: false}
	x.Offer(1, head1, []int{0})

	x.Arbitrate()
	delivered := x.Grant(alwaysReady)
	winner, ok := delivered[0]
	if !ok {
		t.Fatal("one input should have been granted the output")
	}

	// The loser's flit must still be waiting untouched.
	loser := 1 - winner
	if !x.HasPending(loser) {
		t.Fatal("the input that lost arbitration should keep its flit pending, not drop it")
	}

	// Feed the winner's second (end-of-packet) flit; the loser offers
	// nothing new. The held grant must deliver the winner's tail flit
	// next, not switch to the loser mid-packet.
	x.pending[winner] = nil
	tail := &Flit{Payload: 0x101, EndOfPacket: true}
	x.Offer(winner, tail, []int{0})

	x.Arbitrate()
	delivered = x.Grant(alwaysReady)
	if in, ok := delivered[0]; !ok || in != winner {
		t.Fatalf("second delivery = %d,%v, want %d,true (wormhole hold must keep servicing the same packet)", in, ok, winner)
	}

	// Only now, with the winner's packet fully drained, may the loser
	// be granted.
	x.Arbitrate()
	delivered = x.Grant(alwaysReady)
	if in, ok := delivered[0]; !ok || in != loser {
		t.Fatalf("third delivery = %d,%v, want %d,true (loser should be served only after the winner's packet closed)", in, ok, loser)
	}
}
