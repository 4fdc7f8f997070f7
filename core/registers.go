// Package core wires a tile's per-core state — RegisterFile,
// PredicateRegister, Scratchpad, ControlRegisters, ChannelMapTable,
// InputCrossbar, IPKCache/IPKFIFO, ALU — into the four-stage in-order
// pipeline of spec.md §4.3–§4.6: Fetch, Decode, Execute, Writeback,
// connected by single-slot PipelineRegisters (spec.md §3,
// "PipelineRegisters carry at most one instruction; a stall is
// expressed as 'cannot write downstream'").
package core

import "github.com/sarchlab/lokisim/isa"

// FetchDecodeRegister holds the instruction Fetch handed to Decode
// this cycle (spec.md §4.3 "pushes it into the Decode pipeline
// register"). Grounded on the teacher's `timing/pipeline.IFIDRegister`
// Valid-flag idiom, generalized from a raw instruction word to a
// fetched-and-source-tagged entry.
type FetchDecodeRegister struct {
	Valid       bool
	Word        isa.Raw
	MemAddr     uint32
	Source      isa.SourceTag
	FirstOfPacket bool
}

// DecodeExecuteRegister holds one decoded Operation awaiting Execute.
type DecodeExecuteRegister struct {
	Valid bool
	Op    *isa.Operation
}

// ExecuteWritebackRegister holds one computed Operation awaiting
// Writeback.
type ExecuteWritebackRegister struct {
	Valid bool
	Op    *isa.Operation
}
