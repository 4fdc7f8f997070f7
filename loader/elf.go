// Package loader provides ELF binary loading and loader-script parsing
// (spec.md §6, "Binary format (input)").
package loader

import (
	"debug/elf"
	"fmt"
)

// Chunk is one allocatable section's worth of program image, ready to
// be written word-by-word into a memory bank (spec.md §6: "Sections
// with SHF_ALLOC and non-SHT_NOBITS are loaded at their virtual
// address ... Sections with SHF_WRITE clear become read-only").
type Chunk struct {
	// VirtAddr is the address Data (or, for a NOBITS section, MemSize
	// zero bytes) should be written at.
	VirtAddr uint32
	// Data holds the section's file contents; empty (but MemSize > 0)
	// for SHT_NOBITS (.bss).
	Data []byte
	// MemSize is the section's in-memory size, which may exceed
	// len(Data) for .bss.
	MemSize uint32
	// ReadOnly is true for sections without SHF_WRITE.
	ReadOnly bool
}

// Program is a loaded ELF image ready for placement into a memory
// bank: an entry point plus every allocatable section.
type Program struct {
	EntryPoint uint32
	Chunks     []Chunk
}

// Load parses a 32-bit little-endian ELF binary (spec.md §6: "a
// standard 32-bit little-endian ELF is accepted"). Unlike a
// conventional OS loader, no particular machine type is required —
// Loki's ISA is not an ELF-registered e_machine, so any e_machine
// value is accepted and only the class and byte order are validated.
func Load(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("not a 32-bit ELF file (class %v)", f.Class)
	}
	if f.Data != elf.ELFDATA2LSB {
		return nil, fmt.Errorf("not a little-endian ELF file")
	}

	prog := &Program{EntryPoint: uint32(f.Entry)}

	for _, sec := range f.Sections {
		if sec.Flags&elf.SHF_ALLOC == 0 {
			continue
		}

		chunk := Chunk{
			VirtAddr: uint32(sec.Addr),
			MemSize:  uint32(sec.Size),
			ReadOnly: sec.Flags&elf.SHF_WRITE == 0,
		}

		if sec.Type != elf.SHT_NOBITS {
			data, err := sec.Data()
			if err != nil {
				return nil, fmt.Errorf("read section %q: %w", sec.Name, err)
			}
			chunk.Data = data
		}

		if chunk.MemSize == 0 {
			continue
		}
		prog.Chunks = append(prog.Chunks, chunk)
	}

	return prog, nil
}
