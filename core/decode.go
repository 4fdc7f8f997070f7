package core

import (
	"github.com/sarchlab/lokisim/instrument"
	"github.com/sarchlab/lokisim/isa"
	"github.com/sarchlab/lokisim/network"
)


// tickDecode implements spec.md §4.4. It consumes c.fd (this cycle's
// fetched instruction) and, if Execute has room, produces c.de.
func (c *Core) tickDecode() {
	if !c.fd.Valid {
		return
	}
	if c.de.Valid {
		c.Stats.Stall(instrument.StallForwarding)
		return // Execute hasn't made room yet.
	}

	if c.fd.FirstOfPacket {
		c.Registers.SetPacketAddress(c.fd.MemAddr)
		c.lastStampedAddr = c.fd.MemAddr
	}

	if c.remoteExecute {
		op := c.decodeRemoteExecute()
		if !c.admitNetworkSend(op) {
			return
		}
		c.commitDecode(op)
		return
	}

	op, err := c.decoder.Decode(c.fd.Word, c.fd.Source, c.fd.MemAddr)
	if err != nil {
		// Fatal per spec.md §7: an unrecognized opcode in an
		// already-loaded binary cannot be locally recovered from.
		panic(err)
	}
	op.PacketPC = c.lastStampedAddr

	desc := op.Descriptor()

	if op.Op == isa.OpRMTEXECUTE {
		c.remoteExecute = true
	}

	if desc.EmitsOnNetwork || desc.Category == isa.CatCMTRead || desc.Category == isa.CatCMTWrite {
		if c.fd.FirstOfPacket || !c.cmtCache.valid {
			c.cmtCache.entry = op.CMTEntry
			c.cmtCache.valid = true
		} else {
			op.CMTEntry = c.cmtCache.entry
		}
	}

	c.gatherOperands(op, desc)

	if !c.admitNetworkSend(op) {
		return
	}

	if op.Flags.EndOfPacket {
		c.remoteExecute = false
		c.cmtCache.valid = false
	}

	c.commitDecode(op)
}

// admitNetworkSend implements spec.md §4.4 step 4: stall Decode until
// the CMT entry has a credit and the output buffer is ready, removing
// the credit only once both conditions hold in the same cycle.
func (c *Core) admitNetworkSend(op *isa.Operation) bool {
	if !op.Flags.ForRemoteExec {
		desc := op.Descriptor()
		if !desc.EmitsOnNetwork && !op.Flags.EmitsOnNetwork {
			return true
		}
	}
	if !c.CMT.CanSend(op.CMTEntry) || !c.Output.Ready() {
		c.Stats.Stall(instrument.StallOutput)
		return false
	}
	entry := c.CMT.Entry(op.CMTEntry)
	if entry.Kind == network.ViewCore && entry.Core.UseCredits {
		c.CMT.RemoveCredit(op.CMTEntry)
	}
	return true
}

func (c *Core) commitDecode(op *isa.Operation) {
	c.de = DecodeExecuteRegister{Valid: true, Op: op}
	c.fd = FetchDecodeRegister{}
}

// decodeRemoteExecute implements spec.md §4.4 step 2: bypass decoding
// entirely, re-encoding the word as-is for network emission.
func (c *Core) decodeRemoteExecute() *isa.Operation {
	op := &isa.Operation{
		Op:       isa.Op(c.fd.Word.Opcode()),
		Pred:     c.fd.Word.Predicate(),
		Source:   c.fd.Source,
		MemAddr:  c.fd.MemAddr,
		PacketPC: c.lastStampedAddr,
		Dest:     isa.DestNone,
		CMTEntry: c.cmtCache.entry,
		Operand1: uint32(c.fd.Word),
		Flags:    isa.Flags{ForRemoteExec: true, EndOfPacket: c.fd.Word.Predicate() == isa.PredEndOfPacket},
	}
	if op.Flags.EndOfPacket {
		c.remoteExecute = false
	}
	return op
}

// gatherOperands resolves up to three source operands per spec.md
// §4.4 step 3, applying Execute-stage forwarding (spec.md §4.7
// "Forwarding") ahead of an ordinary register-file read.
//
// Reg1 doubles as the destination register index whenever the opcode
// writes the register file (the conventional "rd, rs, rt" 3-address
// layout spec.md §3 describes for Format3Reg/Format2RegImm): in that
// case operand1/operand2 come from Reg2/Reg3. For opcodes with no
// register destination (memory, CMT, scratchpad, cregs), Reg1 itself
// is the first operand; Reg2 serves double duty as the second
// register operand or, for two-register-plus-immediate stores, as the
// data operand (operand3) once the immediate has claimed operand2.
func (c *Core) gatherOperands(op *isa.Operation, desc isa.Descriptor) {
	if desc.Dest == isa.DestRegister {
		op.Operand1 = c.readOperand(desc.Src1, op.Reg2, op.Immediate)
		op.Operand2 = c.readOperand(desc.Src2, op.Reg3, op.Immediate)
		return
	}
	op.Operand1 = c.readOperand(desc.Src1, op.Reg1, op.Immediate)
	op.Operand2 = c.readOperand(desc.Src2, op.Reg2, op.Immediate)
	op.Operand3 = c.readOperand(desc.Src3, op.Reg2, op.Immediate)
}

func (c *Core) readOperand(src isa.OperandSource, reg uint8, immediate int32) uint32 {
	switch src {
	case isa.SrcNone:
		return 0
	case isa.SrcImmediate:
		return uint32(immediate)
	case isa.SrcRegister, isa.SrcChannelFIFO, isa.SrcForwardedExec:
		if v, ok := c.forwardedValue(reg); ok {
			c.Registers.RawRead(reg) // still performed, for energy accounting (spec.md §4.7)
			return v
		}
		v, _ := c.Registers.Read(reg)
		return v
	default:
		return 0
	}
}

// forwardedValue returns the in-flight Execute-stage result for reg,
// if Execute just computed a value destined for that register this
// same cycle (spec.md §4.7). Indirect writes (`iwtr`) are never
// forwarded, matching Writeback, which does not commit them.
func (c *Core) forwardedValue(reg uint8) (uint32, bool) {
	if !c.ew.Valid || c.ew.Op == nil {
		return 0, false
	}
	op := c.ew.Op
	if !op.WillForward || op.Dest != isa.DestRegister || op.Indirect {
		return 0, false
	}
	destReg := op.Reg1
	if destReg != reg {
		return 0, false
	}
	return op.Result, true
}
