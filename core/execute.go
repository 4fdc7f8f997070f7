package core

import (
	"github.com/sarchlab/lokisim/chanid"
	"github.com/sarchlab/lokisim/instrument"
	"github.com/sarchlab/lokisim/isa"
	"github.com/sarchlab/lokisim/network"
)

// tickExecute implements spec.md §4.5. It consumes c.de and produces
// c.ew, or, while a store's body flit is still pending, spends the
// cycle draining that instead (spec.md §4.5's two-flit store).
func (c *Core) tickExecute() {
	if c.pendingBody != nil {
		if !c.Output.Ready() {
			c.Stats.Stall(instrument.StallOutput)
			return
		}
		c.Output.Send(*c.pendingBody)
		c.Stats.FlitRouted()
		c.pendingBody = nil
		c.ew = ExecuteWritebackRegister{Valid: true, Op: c.pendingBodyOp}
		c.pendingBodyOp = nil
		return
	}

	if !c.de.Valid {
		return
	}
	if c.ew.Valid {
		c.Stats.Stall(instrument.StallCoreData)
		return
	}

	op := c.de.Op

	predicateOK := op.PredicateSatisfied(c.Predicate.Read())
	if !predicateOK {
		op.WillForward = false
	}

	// A remote-execute op's Op field holds the *forwarded* instruction's
	// own opcode (decodeRemoteExecute re-encodes the word as-is), not a
	// remote-execute marker — so this is checked ahead of, and instead
	// of, the ordinary category dispatch below (spec.md §4.4 step 2).
	if op.Flags.ForRemoteExec {
		if !c.Output.Ready() {
			c.Stats.Stall(instrument.StallOutput)
			return
		}
		c.sendFlit(op, op.Operand1)
		c.de = DecodeExecuteRegister{}
		c.ew = ExecuteWritebackRegister{Valid: true, Op: op}
		return
	}

	desc := op.Descriptor()

	switch desc.Category {
	case isa.CatFetch:
		if !c.executeFetchOp(op) {
			c.Stats.Stall(instrument.StallFetch)
			return
		}
	case isa.CatJump:
		c.Jump(op.Immediate)
	case isa.CatNxIPK:
		c.NextIPK()
	case isa.CatSyscall, isa.CatSelectChannel, isa.CatWaitOnChannelEmpty:
		// syscall/selch/woche host-interaction is outside this
		// module's scope per spec.md §1's external collaborators.
	case isa.CatScratchRead:
		if predicateOK {
			op.Result = c.Scratch.Read(op.Operand1)
		}
	case isa.CatScratchWrite:
		if predicateOK {
			c.Scratch.Write(op.Operand1, op.Operand2)
		}
	case isa.CatCRegRead:
		if predicateOK {
			op.Result = c.CtrlRegs.Read(uint8(op.Operand1))
		}
	case isa.CatCRegWrite:
		if predicateOK {
			c.CtrlRegs.Write(uint8(op.Operand1), op.Operand2)
		}
	case isa.CatCMTRead:
		op.Result = c.CMT.Read(op.CMTEntry)
	case isa.CatCMTWrite:
		if predicateOK {
			c.executeCMTWrite(op)
		}
	case isa.CatMemAddr:
		if !c.executeMemoryOp(op, predicateOK) {
			return // stalled on network output readiness
		}
	default:
		result, carryOrBorrow := c.alu.Compute(op, c.Predicate.Read())
		op.Result = result
		if op.Flags.SetsPredicate && predicateOK {
			c.updatePredicate(op, carryOrBorrow)
		}
		if op.Flags.EmitsOnNetwork && predicateOK {
			if !c.Output.Ready() {
				c.Stats.Stall(instrument.StallOutput)
				return
			}
			c.sendFlit(op, op.Result)
		}
	}

	c.de = DecodeExecuteRegister{}
	c.ew = ExecuteWritebackRegister{Valid: true, Op: op}
}

// sendFlit emits payload on op's CMT entry, addressed at that entry's
// core-view destination. Used both for remote-execute forwarding
// (spec.md §4.4 step 2, "bypass decoding entirely, re-encoding the
// word as-is for network emission") and for an ALU-class op's optional
// `-> channel` send (spec.md §8 Scenario 5).
func (c *Core) sendFlit(op *isa.Operation, payload uint32) {
	entry := c.CMT.Entry(op.CMTEntry)
	c.Output.Send(network.Flit{
		Payload:        payload,
		Dest:           entry.Core.Dest,
		EndOfPacket:    op.Flags.EndOfPacket,
		SourceTile:     c.channelID(0).Tile, SourcePos: c.Position, SourceEntry: op.CMTEntry,
		CreditRequired: entry.Kind == network.ViewCore && entry.Core.UseCredits,
	})
	c.Stats.FlitRouted()
}

func (c *Core) updatePredicate(op *isa.Operation, carryOrBorrow bool) {
	switch op.Op {
	case isa.OpADDU, isa.OpADDUI:
		c.Predicate.Write(carryOrBorrow)
	case isa.OpSUBU, isa.OpSUBUI:
		c.Predicate.Write(carryOrBorrow)
	default:
		c.Predicate.Write(op.Result&1 != 0)
	}
}

// executeFetchOp dispatches the four fetch opcodes (spec.md §4.3,
// §4.1): FETCH/FETCHPST use an absolute 23-bit immediate; FETCHR/
// FETCHPSTR use a register base plus a 16+7-bit split immediate.
// FETCHPST/FETCHPSTR mark the packet persistent (spec.md invariant
// (viii)). Returns false if StartFetch could not even enqueue the
// request (the fetch-request buffer is full), in which case Execute
// must stall and retry this instruction next cycle.
func (c *Core) executeFetchOp(op *isa.Operation) bool {
	var addr uint32
	switch op.Op {
	case isa.OpFETCH, isa.OpFETCHPST:
		addr = uint32(op.Immediate)
	case isa.OpFETCHR, isa.OpFETCHPSTR:
		addr = op.Operand1 + uint32(op.Immediate)
	default:
		return true
	}
	persistent := op.Op == isa.OpFETCHPST || op.Op == isa.OpFETCHPSTR
	return c.StartFetch(addr, persistent)
}

// executeCMTWrite implements `setchmap`/`setchmapi` (spec.md §4.8):
// operand2 (or the immediate, for setchmapi) carries a packed
// ChannelID identifying the new core-view destination.
func (c *Core) executeCMTWrite(op *isa.Operation) {
	var packed uint32
	if op.Op == isa.OpSETCHMAPI {
		packed = uint32(op.Immediate)
	} else {
		packed = op.Operand2
	}
	dest := chanid.Decode(packed)
	c.CMT.Write(op.CMTEntry, network.Entry{
		Kind: network.ViewCore,
		Core: network.CoreView{
			Dest:       dest,
			UseCredits: true,
			MaxCredits: defaultCreditMax,
		},
	})
}

const defaultCreditMax = 8

// executeMemoryOp computes the effective address and emits the
// flit(s) a load or store produces (spec.md §4.5, "Memory ops").
// Returns false if the stage must stall because the network output
// is not ready this cycle.
func (c *Core) executeMemoryOp(op *isa.Operation, predicateOK bool) bool {
	desc := op.Descriptor()
	addr := op.Operand1 + op.Operand2
	op.MemAddr = addr
	op.Result = addr

	if !predicateOK {
		return true
	}

	entry := c.CMT.Entry(op.CMTEntry)
	bank := entry.MemoryBankFor(addr)
	dest := chanid.ChannelID{Tile: entry.Memory.Tile, Position: bank}

	switch desc.MemShape {
	case isa.MemShapeLoad:
		if !c.Output.Ready() {
			c.Stats.Stall(instrument.StallOutput)
			return false
		}
		memOp := network.MemOpLoadWord
		if op.Op == isa.OpLDBU {
			memOp = network.MemOpLoadByteUnsigned
		}
		c.Output.Send(network.Flit{
			Payload: addr, Dest: dest, EndOfPacket: true, MemOp: memOp,
			ReturnChan: entry.Memory.ReturnChannel,
			SourceTile: c.channelID(0).Tile, SourcePos: c.Position,
		})
		c.Stats.FlitRouted()
		return true
	case isa.MemShapeStore:
		if !c.Output.Ready() {
			c.Stats.Stall(instrument.StallOutput)
			return false
		}
		memOp := network.MemOpStoreWord
		if op.Op == isa.OpSTB {
			memOp = network.MemOpStoreByte
		}
		c.Output.Send(network.Flit{
			Payload: addr, Dest: dest, EndOfPacket: false, MemOp: memOp,
			ReturnChan: entry.Memory.ReturnChannel,
			SourceTile: c.channelID(0).Tile, SourcePos: c.Position,
		})
		c.Stats.FlitRouted()
		c.pendingBody = &network.Flit{
			Payload: op.Operand3, Dest: dest, EndOfPacket: true, MemOp: memOp,
			SourceTile: c.channelID(0).Tile, SourcePos: c.Position,
		}
		c.pendingBodyOp = op
		c.de = DecodeExecuteRegister{}
		return true
	default:
		return true
	}
}
