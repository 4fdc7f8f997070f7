package state

// Control register indices (a small, fixed set — spec.md names
// ControlRegisters as part of a Core's state without enumerating
// specific registers beyond "the core's control/config values"; this
// implementation exposes the core ID and a handful of simulator-facing
// values read back via `cregrd`/`cregwr`).
const (
	CRegCoreID uint8 = iota
	CRegTileX
	CRegTileY
	CRegInstructionCount
	NumControlRegisters
)

// ControlRegisters holds a small number of core-identity and
// simulator-facing values, written by `cregwr` and read by `cregrd`
// (spec.md §3, §4.1).
type ControlRegisters struct {
	regs [NumControlRegisters]uint32
}

// Read returns a control register's value. Indices beyond the known
// set read as zero.
func (c *ControlRegisters) Read(idx uint8) uint32 {
	if int(idx) >= len(c.regs) {
		return 0
	}
	return c.regs[idx]
}

// Write stores a value into a control register.
func (c *ControlRegisters) Write(idx uint8, value uint32) {
	if int(idx) >= len(c.regs) {
		return
	}
	c.regs[idx] = value
}
