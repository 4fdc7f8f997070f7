package core

import "github.com/sarchlab/lokisim/isa"

// tickWriteback implements spec.md §4.6. It consumes c.ew: register
// destinations are committed to the register file, network-destined
// ops are simply acknowledged (their flit was already handed to the
// output path back in Execute), and indirect writes (`iwtr`) leave the
// destination register untouched so the forwarder never forwards an
// unrelated value.
func (c *Core) tickWriteback() {
	if !c.ew.Valid {
		return
	}

	op := c.ew.Op
	if op.Dest == isa.DestRegister && !op.Indirect {
		c.Registers.Write(op.Reg1, op.Result)
	}

	c.Stats.Retire()
	if c.Trace != nil {
		c.Trace(c, op)
	}
	c.ew = ExecuteWritebackRegister{}
}
