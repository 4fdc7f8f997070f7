package instrument

import "testing"

func TestCPIComputedFromRetiredInstructions(t *testing.T) {
	c := NewCollector()
	for i := 0; i < 10; i++ {
		c.Tick()
	}
	for i := 0; i < 5; i++ {
		c.Retire()
	}
	if got := c.Snapshot().CPI(); got != 2.0 {
		t.Fatalf("CPI = %v, want 2.0", got)
	}
}

func TestCPIZeroInstructionsDoesNotDivideByZero(t *testing.T) {
	c := NewCollector()
	c.Tick()
	if got := c.Snapshot().CPI(); got != 0 {
		t.Fatalf("CPI = %v, want 0", got)
	}
}

func TestStallNoneIsNotRecorded(t *testing.T) {
	c := NewCollector()
	c.Stall(StallNone)
	if c.Snapshot().TotalStalls() != 0 {
		t.Fatal("StallNone should not be recorded as a stall")
	}
}

func TestStallReasonsAccumulateIndependently(t *testing.T) {
	c := NewCollector()
	c.Stall(StallInstructions)
	c.Stall(StallInstructions)
	c.Stall(StallCoreData)

	s := c.Snapshot()
	if s.Stalls[StallInstructions] != 2 {
		t.Fatalf("StallInstructions = %d, want 2", s.Stalls[StallInstructions])
	}
	if s.Stalls[StallCoreData] != 1 {
		t.Fatalf("StallCoreData = %d, want 1", s.Stalls[StallCoreData])
	}
	if s.TotalStalls() != 3 {
		t.Fatalf("TotalStalls = %d, want 3", s.TotalStalls())
	}
}
