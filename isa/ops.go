package isa

// Op identifies a Loki opcode.
type Op uint8

// Loki opcodes. Names follow the mnemonics used in spec.md and the
// original lokisim sources (ADDU, SETGTEI, PSEL, FETCHPSTR, …).
const (
	OpNOP Op = iota
	// Arithmetic / logical (register and immediate forms).
	OpADDU
	OpADDUI
	OpSUBU
	OpSUBUI
	OpAND
	OpANDI
	OpOR
	OpORI
	OpXOR
	OpXORI
	OpNOR
	OpSLL
	OpSRL
	OpSRA
	// Comparisons.
	OpSETEQ
	OpSETNE
	OpSETLT
	OpSETLTU
	OpSETGTE
	OpSETGTEI
	// Multiply / misc ALU.
	OpMULHW
	OpMULLW
	OpCLZ
	OpPSEL
	OpLUI
	// Memory.
	OpLDW
	OpLDBU
	OpSTW
	OpSTB
	// Scratchpad.
	OpSCRATCHRD
	OpSCRATCHWR
	// Control registers.
	OpCREGRD
	OpCREGWR
	// Channel map table.
	OpSETCHMAP
	OpSETCHMAPI
	OpGETCHMAP
	// Control flow / fetch.
	OpJUMP
	OpFETCH
	OpFETCHPST
	OpFETCHR
	OpFETCHPSTR
	OpNXIPK
	OpRMTEXECUTE
	// Misc.
	OpIWTR
	OpSYSCALL
	OpSELCH
	OpWOCHE
)

// Format identifies which bit-ranges of a Raw word are which operand,
// per spec.md §4.1.
type Format uint8

// Instruction formats.
const (
	FormatNone        Format = iota // no register operands (e.g. nxipk)
	Format1Reg                      // one register operand
	Format2Reg                      // two register operands
	Format3Reg                      // three register operands
	Format2RegImm                   // two registers + immediate (addui rd, rs, imm)
	Format1RegImm                   // one register + immediate (lui rd, imm)
	FormatShift                     // shift: rd, rs, narrow shift amount
	FormatFetchAbs                  // 23-bit signed immediate (absolute fetch address)
	FormatFetchSplit                // 16+7 split signed immediate (register-relative fetch)
)

// OperandSource identifies where one operand of an Operation comes
// from, per spec.md §4.1 ("Operand source").
type OperandSource uint8

// Operand sources.
const (
	SrcNone          OperandSource = iota
	SrcRegister                    // ordinary register-file read
	SrcImmediate                   // the instruction's immediate field
	SrcChannelFIFO                 // a register index aliased to a channel-end FIFO (blocks if empty)
	SrcForwardedExec               // bypassed from the op currently in Execute
)

// Category identifies the ALU/ancillary computation an Operation
// performs, per spec.md §4.1 ("Computation").
type Category uint8

// Computation categories.
const (
	CatNone Category = iota
	CatALU
	CatCompare
	CatMulHi
	CatMulLo
	CatClz
	CatPredSelect
	CatMemAddr
	CatLUI
	CatScratchRead
	CatScratchWrite
	CatCMTRead
	CatCMTWrite
	CatCRegRead
	CatCRegWrite
	CatFetch
	CatJump
	CatNxIPK
	CatRemoteExecute
	CatSyscall
	CatSelectChannel
	CatWaitOnChannelEmpty
)

// DestKind identifies where an Operation's result is committed, per
// spec.md §4.1 ("Destination").
type DestKind uint8

// Destination kinds.
const (
	DestNone DestKind = iota
	DestRegister
	DestPredicateReg
	DestNetwork
	DestScratchpad
	DestCMT
	DestCReg
)

// Timing identifies when an Operation's computation happens, per
// spec.md §4.1 ("Timing").
type Timing uint8

// Timing classes.
const (
	TimingExecute  Timing = iota // computed in Execute (the common case)
	TimingEarly                  // computed in Decode (fetches, selch, woche)
	TimingMultiple               // takes one extra cycle (multiply)
)

// MemShape describes how many flits a memory opcode produces and what
// goes in each, per spec.md §4.1 ("Memory semantics").
type MemShape uint8

const (
	MemShapeNone  MemShape = iota
	MemShapeLoad           // one flit: the address
	MemShapeStore          // two flits: head (address+opcode), body (data)
)

// Descriptor is the static, per-opcode table entry that drives every
// pipeline stage uniformly (spec.md §4.1, §9 "mix-in / multiple
// inheritance pattern" — implemented here as data rather than as
// compile-time template composition).
type Descriptor struct {
	Name   string
	Format Format

	// Sources for up to three operands, in (reg1, reg2, reg3) order.
	Src1, Src2, Src3 OperandSource

	Category Category
	Dest     DestKind
	Timing   Timing
	MemShape MemShape

	// SetsPredicateCapable is true for opcodes that support the `.p`
	// suffix (the predicate register is updated from this op's result
	// in addition to its ordinary destination).
	SetsPredicateCapable bool

	// EmitsOnNetwork is true for opcodes whose destination is always
	// the network (memory ops). An ALU-class op's optional `-> ch` send
	// is a per-instance property recorded in Flags.EmitsOnNetwork.
	EmitsOnNetwork bool
}

// descriptors is indexed by Op.
var descriptors = map[Op]Descriptor{
	OpNOP: {Name: "nop", Format: FormatNone, Category: CatNone, Dest: DestNone, Timing: TimingExecute},

	OpADDU:  {Name: "addu", Format: Format3Reg, Src1: SrcRegister, Src2: SrcRegister, Category: CatALU, Dest: DestRegister, Timing: TimingExecute, SetsPredicateCapable: true},
	OpADDUI: {Name: "addui", Format: Format2RegImm, Src1: SrcRegister, Src2: SrcImmediate, Category: CatALU, Dest: DestRegister, Timing: TimingExecute, SetsPredicateCapable: true},
	OpSUBU:  {Name: "subu", Format: Format3Reg, Src1: SrcRegister, Src2: SrcRegister, Category: CatALU, Dest: DestRegister, Timing: TimingExecute, SetsPredicateCapable: true},
	OpSUBUI: {Name: "subui", Format: Format2RegImm, Src1: SrcRegister, Src2: SrcImmediate, Category: CatALU, Dest: DestRegister, Timing: TimingExecute, SetsPredicateCapable: true},
	OpAND:   {Name: "and", Format: Format3Reg, Src1: SrcRegister, Src2: SrcRegister, Category: CatALU, Dest: DestRegister, Timing: TimingExecute, SetsPredicateCapable: true},
	OpANDI:  {Name: "andi", Format: Format2RegImm, Src1: SrcRegister, Src2: SrcImmediate, Category: CatALU, Dest: DestRegister, Timing: TimingExecute, SetsPredicateCapable: true},
	OpOR:    {Name: "or", Format: Format3Reg, Src1: SrcRegister, Src2: SrcRegister, Category: CatALU, Dest: DestRegister, Timing: TimingExecute, SetsPredicateCapable: true},
	OpORI:   {Name: "ori", Format: Format2RegImm, Src1: SrcRegister, Src2: SrcImmediate, Category: CatALU, Dest: DestRegister, Timing: TimingExecute, SetsPredicateCapable: true},
	OpXOR:   {Name: "xor", Format: Format3Reg, Src1: SrcRegister, Src2: SrcRegister, Category: CatALU, Dest: DestRegister, Timing: TimingExecute, SetsPredicateCapable: true},
	OpXORI:  {Name: "xori", Format: Format2RegImm, Src1: SrcRegister, Src2: SrcImmediate, Category: CatALU, Dest: DestRegister, Timing: TimingExecute, SetsPredicateCapable: true},
	OpNOR:   {Name: "nor", Format: Format3Reg, Src1: SrcRegister, Src2: SrcRegister, Category: CatALU, Dest: DestRegister, Timing: TimingExecute, SetsPredicateCapable: true},
	OpSLL:   {Name: "sll", Format: FormatShift, Src1: SrcRegister, Src2: SrcImmediate, Category: CatALU, Dest: DestRegister, Timing: TimingExecute},
	OpSRL:   {Name: "srl", Format: FormatShift, Src1: SrcRegister, Src2: SrcImmediate, Category: CatALU, Dest: DestRegister, Timing: TimingExecute},
	OpSRA:   {Name: "sra", Format: FormatShift, Src1: SrcRegister, Src2: SrcImmediate, Category: CatALU, Dest: DestRegister, Timing: TimingExecute},

	OpSETEQ:   {Name: "seteq", Format: Format3Reg, Src1: SrcRegister, Src2: SrcRegister, Category: CatCompare, Dest: DestRegister, Timing: TimingExecute, SetsPredicateCapable: true},
	OpSETNE:   {Name: "setne", Format: Format3Reg, Src1: SrcRegister, Src2: SrcRegister, Category: CatCompare, Dest: DestRegister, Timing: TimingExecute, SetsPredicateCapable: true},
	OpSETLT:   {Name: "setlt", Format: Format3Reg, Src1: SrcRegister, Src2: SrcRegister, Category: CatCompare, Dest: DestRegister, Timing: TimingExecute, SetsPredicateCapable: true},
	OpSETLTU:  {Name: "setltu", Format: Format3Reg, Src1: SrcRegister, Src2: SrcRegister, Category: CatCompare, Dest: DestRegister, Timing: TimingExecute, SetsPredicateCapable: true},
	OpSETGTE:  {Name: "setgte", Format: Format3Reg, Src1: SrcRegister, Src2: SrcRegister, Category: CatCompare, Dest: DestRegister, Timing: TimingExecute, SetsPredicateCapable: true},
	OpSETGTEI: {Name: "setgtei", Format: Format2RegImm, Src1: SrcRegister, Src2: SrcImmediate, Category: CatCompare, Dest: DestRegister, Timing: TimingExecute, SetsPredicateCapable: true},

	OpMULHW: {Name: "mulhw", Format: Format3Reg, Src1: SrcRegister, Src2: SrcRegister, Category: CatMulHi, Dest: DestRegister, Timing: TimingMultiple},
	OpMULLW: {Name: "mullw", Format: Format3Reg, Src1: SrcRegister, Src2: SrcRegister, Category: CatMulLo, Dest: DestRegister, Timing: TimingMultiple},
	OpCLZ:   {Name: "clz", Format: Format2Reg, Src1: SrcRegister, Category: CatClz, Dest: DestRegister, Timing: TimingExecute},
	OpPSEL:  {Name: "psel", Format: Format3Reg, Src1: SrcRegister, Src2: SrcRegister, Category: CatPredSelect, Dest: DestRegister, Timing: TimingExecute},
	OpLUI:   {Name: "lui", Format: Format1RegImm, Src1: SrcImmediate, Category: CatLUI, Dest: DestRegister, Timing: TimingExecute},

	OpLDW:  {Name: "ldw", Format: Format2RegImm, Src1: SrcRegister, Src2: SrcImmediate, Category: CatMemAddr, Dest: DestRegister, Timing: TimingExecute, MemShape: MemShapeLoad, EmitsOnNetwork: true},
	OpLDBU: {Name: "ldbu", Format: Format2RegImm, Src1: SrcRegister, Src2: SrcImmediate, Category: CatMemAddr, Dest: DestRegister, Timing: TimingExecute, MemShape: MemShapeLoad, EmitsOnNetwork: true},
	OpSTW:  {Name: "stw", Format: Format2RegImm, Src1: SrcRegister, Src2: SrcImmediate, Src3: SrcRegister, Category: CatMemAddr, Dest: DestNetwork, Timing: TimingExecute, MemShape: MemShapeStore, EmitsOnNetwork: true},
	OpSTB:  {Name: "stb", Format: Format2RegImm, Src1: SrcRegister, Src2: SrcImmediate, Src3: SrcRegister, Category: CatMemAddr, Dest: DestNetwork, Timing: TimingExecute, MemShape: MemShapeStore, EmitsOnNetwork: true},

	OpSCRATCHRD: {Name: "scratchrd", Format: Format2Reg, Src1: SrcRegister, Category: CatScratchRead, Dest: DestRegister, Timing: TimingExecute},
	OpSCRATCHWR: {Name: "scratchwr", Format: Format2Reg, Src1: SrcRegister, Src2: SrcRegister, Category: CatScratchWrite, Dest: DestScratchpad, Timing: TimingExecute},

	OpCREGRD: {Name: "cregrd", Format: Format2Reg, Src1: SrcRegister, Category: CatCRegRead, Dest: DestRegister, Timing: TimingExecute},
	OpCREGWR: {Name: "cregwr", Format: Format2Reg, Src1: SrcRegister, Src2: SrcRegister, Category: CatCRegWrite, Dest: DestCReg, Timing: TimingExecute},

	OpSETCHMAP:  {Name: "setchmap", Format: Format2Reg, Src1: SrcRegister, Src2: SrcRegister, Category: CatCMTWrite, Dest: DestCMT, Timing: TimingExecute},
	OpSETCHMAPI: {Name: "setchmapi", Format: Format2RegImm, Src1: SrcRegister, Src2: SrcImmediate, Category: CatCMTWrite, Dest: DestCMT, Timing: TimingExecute},
	OpGETCHMAP:  {Name: "getchmap", Format: Format2Reg, Src1: SrcRegister, Category: CatCMTRead, Dest: DestRegister, Timing: TimingExecute},

	OpJUMP:       {Name: "jump", Format: Format1RegImm, Src1: SrcImmediate, Category: CatJump, Dest: DestNone, Timing: TimingEarly},
	OpFETCH:      {Name: "fetch", Format: FormatFetchAbs, Category: CatFetch, Dest: DestNone, Timing: TimingEarly},
	OpFETCHPST:   {Name: "fetchpst", Format: FormatFetchAbs, Category: CatFetch, Dest: DestNone, Timing: TimingEarly},
	OpFETCHR:     {Name: "fetchr", Format: FormatFetchSplit, Src1: SrcRegister, Category: CatFetch, Dest: DestNone, Timing: TimingEarly},
	OpFETCHPSTR:  {Name: "fetchpstr", Format: FormatFetchSplit, Src1: SrcRegister, Category: CatFetch, Dest: DestNone, Timing: TimingEarly},
	OpNXIPK:      {Name: "nxipk", Format: FormatNone, Category: CatNxIPK, Dest: DestNone, Timing: TimingEarly},
	OpRMTEXECUTE: {Name: "rmtexecute", Format: FormatNone, Category: CatRemoteExecute, Dest: DestNone, Timing: TimingEarly},

	OpIWTR:    {Name: "iwtr", Format: Format2Reg, Src1: SrcRegister, Src2: SrcRegister, Category: CatALU, Dest: DestRegister, Timing: TimingExecute},
	OpSYSCALL: {Name: "syscall", Format: FormatNone, Category: CatSyscall, Dest: DestNone, Timing: TimingExecute},
	OpSELCH:   {Name: "selch", Format: Format1Reg, Category: CatSelectChannel, Dest: DestNone, Timing: TimingEarly},
	OpWOCHE:   {Name: "woche", Format: Format1Reg, Category: CatWaitOnChannelEmpty, Dest: DestNone, Timing: TimingEarly},
}

// Describe returns the static descriptor for an opcode. The second
// return value is false for an opcode with no table entry (an
// unrecognized/invalid instruction, fatal per spec.md §7).
func Describe(op Op) (Descriptor, bool) {
	d, ok := descriptors[op]
	return d, ok
}

// CanOptionallySend reports whether cat is an ALU-class computation
// that may, in addition to its ordinary register destination, also
// send its result on the network when the instruction names a
// channel (spec.md §8 Scenario 5). This is distinct from
// Descriptor.EmitsOnNetwork, which marks memory ops whose *only*
// destination is the network: for these categories the network send
// is an optional extra, decided per instance by the encoded channel
// field rather than by the opcode alone.
func CanOptionallySend(cat Category) bool {
	switch cat {
	case CatALU, CatCompare, CatMulHi, CatMulLo, CatClz, CatPredSelect, CatLUI:
		return true
	default:
		return false
	}
}
