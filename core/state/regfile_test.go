package state

import "testing"

type fakeFIFO struct {
	values []uint32
}

func (f *fakeFIFO) Dequeue() (uint32, bool) {
	if len(f.values) == 0 {
		return 0, false
	}
	v := f.values[0]
	f.values = f.values[1:]
	return v, true
}

func TestR0AlwaysReadsZero(t *testing.T) {
	rf := NewRegisterFile(32, nil, nil)
	rf.Write(0, 42)
	v, ok := rf.Read(0)
	if !ok || v != 0 {
		t.Fatalf("Read(0) = %d,%v, want 0,true", v, ok)
	}
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	rf := NewRegisterFile(32, nil, nil)
	rf.Write(5, 123)
	v, ok := rf.Read(5)
	if !ok || v != 123 {
		t.Fatalf("Read(5) = %d,%v, want 123,true", v, ok)
	}
}

func TestChannelAliasReadDequeues(t *testing.T) {
	fifo := &fakeFIFO{values: []uint32{7, 8}}
	rf := NewRegisterFile(32, []ChannelFIFORead{fifo}, nil)

	v, ok := rf.Read(32)
	if !ok || v != 7 {
		t.Fatalf("Read(32) = %d,%v, want 7,true", v, ok)
	}
	v, ok = rf.Read(32)
	if !ok || v != 8 {
		t.Fatalf("Read(32) = %d,%v, want 8,true", v, ok)
	}
	_, ok = rf.Read(32)
	if ok {
		t.Fatal("Read(32) on empty FIFO should report ok=false")
	}
}

func TestPacketAddressWrittenByFetchNotWarned(t *testing.T) {
	warned := false
	rf := NewRegisterFile(32, nil, func(name, format string, args ...interface{}) { warned = true })
	rf.SetPacketAddress(0x2000)
	v, _ := rf.Read(1)
	if v != 0x2000 {
		t.Fatalf("r1 = %#x, want 0x2000", v)
	}
	if warned {
		t.Fatal("SetPacketAddress should not emit a warning")
	}
}

func TestSoftwareWriteToR1Warns(t *testing.T) {
	warned := false
	rf := NewRegisterFile(32, nil, func(name, format string, args ...interface{}) { warned = true })
	rf.Write(1, 9)
	if !warned {
		t.Fatal("software write to r1 should warn")
	}
}
