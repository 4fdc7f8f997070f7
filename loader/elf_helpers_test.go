package loader_test

import (
	"encoding/binary"
	"os"
)

// testSection describes one section of a synthesized ELF32 binary
// used to exercise loader.Load without depending on a real toolchain
// (this module never invokes one).
type testSection struct {
	name     string
	addr     uint32
	data     []byte
	memSize  uint32 // used verbatim for nobits; otherwise len(data) if zero
	writable bool
	alloc    bool
	nobits   bool
}

type minimalELF32 struct {
	entry    uint32
	sections []testSection
}

const (
	shtNull     = 0
	shtProgbits = 1
	shtStrtab   = 3
	shtNobits   = 8

	shfWrite = 1
	shfAlloc = 2
)

// writeMinimalELF32 hand-assembles a 32-bit little-endian ELF file
// with a null section, one section header per entry in spec.sections,
// and a trailing .shstrtab — the minimum debug/elf needs to parse
// section flags/addr/size the way loader.Load reads them.
func writeMinimalELF32(path string, spec minimalELF32) {
	const ehsize = 52
	const shentsize = 40

	names := []string{"", ".shstrtab"}
	for _, s := range spec.sections {
		names = append(names, s.name)
	}
	strtab, nameOff := buildStrtab(names)

	// Lay out section data right after the ELF header.
	offset := uint32(ehsize)
	dataOffsets := make([]uint32, len(spec.sections))
	for i, s := range spec.sections {
		if s.nobits {
			dataOffsets[i] = offset
			continue
		}
		dataOffsets[i] = offset
		offset += uint32(len(s.data))
	}
	strtabOffset := offset
	offset += uint32(len(strtab))
	shoff := offset

	shnum := 2 + len(spec.sections) // null + shstrtab + each section
	shstrndx := uint16(1)

	header := make([]byte, ehsize)
	copy(header[0:4], []byte{0x7f, 'E', 'L', 'F'})
	header[4] = 1 // ELFCLASS32
	header[5] = 1 // ELFDATA2LSB
	header[6] = 1 // EV_CURRENT
	binary.LittleEndian.PutUint16(header[16:18], 2) // ET_EXEC
	binary.LittleEndian.PutUint16(header[18:20], 0) // e_machine (unused by this ISA)
	binary.LittleEndian.PutUint32(header[20:24], 1) // e_version
	binary.LittleEndian.PutUint32(header[24:28], spec.entry)
	binary.LittleEndian.PutUint32(header[28:32], 0) // e_phoff
	binary.LittleEndian.PutUint32(header[32:36], shoff)
	binary.LittleEndian.PutUint32(header[36:40], 0) // e_flags
	binary.LittleEndian.PutUint16(header[40:42], ehsize)
	binary.LittleEndian.PutUint16(header[42:44], 0) // e_phentsize
	binary.LittleEndian.PutUint16(header[44:46], 0) // e_phnum
	binary.LittleEndian.PutUint16(header[46:48], shentsize)
	binary.LittleEndian.PutUint16(header[48:50], uint16(shnum))
	binary.LittleEndian.PutUint16(header[50:52], shstrndx)

	var shdrs []byte
	shdrs = append(shdrs, makeShdr32(0, shtNull, 0, 0, 0, 0)...) // null section

	shstrtabNameOff := nameOff[".shstrtab"]
	shdrs = append(shdrs, makeShdr32(shstrtabNameOff, shtStrtab, 0, 0, strtabOffset, uint32(len(strtab)))...)

	for i, s := range spec.sections {
		typ := uint32(shtProgbits)
		size := uint32(len(s.data))
		if s.nobits {
			typ = shtNobits
			size = s.memSize
		} else if s.memSize != 0 {
			size = s.memSize
		}
		var flags uint32
		if s.alloc {
			flags |= shfAlloc
		}
		if s.writable {
			flags |= shfWrite
		}
		shdrs = append(shdrs, makeShdr32(nameOff[s.name], typ, flags, s.addr, dataOffsets[i], size)...)
	}

	var buf []byte
	buf = append(buf, header...)
	for _, s := range spec.sections {
		if s.nobits {
			continue
		}
		buf = append(buf, s.data...)
	}
	buf = append(buf, strtab...)
	buf = append(buf, shdrs...)

	_ = os.WriteFile(path, buf, 0644)
}

func makeShdr32(name, typ, flags, addr, offset, size uint32) []byte {
	shdr := make([]byte, 40)
	binary.LittleEndian.PutUint32(shdr[0:4], name)
	binary.LittleEndian.PutUint32(shdr[4:8], typ)
	binary.LittleEndian.PutUint32(shdr[8:12], flags)
	binary.LittleEndian.PutUint32(shdr[12:16], addr)
	binary.LittleEndian.PutUint32(shdr[16:20], offset)
	binary.LittleEndian.PutUint32(shdr[20:24], size)
	binary.LittleEndian.PutUint32(shdr[24:28], 0) // sh_link
	binary.LittleEndian.PutUint32(shdr[28:32], 0) // sh_info
	binary.LittleEndian.PutUint32(shdr[32:36], 4) // sh_addralign
	binary.LittleEndian.PutUint32(shdr[36:40], 0) // sh_entsize
	return shdr
}

// buildStrtab concatenates names (each NUL-terminated, starting with
// an empty string at offset 0 as ELF requires) and returns the blob
// plus each name's offset within it.
func buildStrtab(names []string) ([]byte, map[string]uint32) {
	offsets := make(map[string]uint32)
	var buf []byte
	buf = append(buf, 0) // offset 0 is always the empty name
	seen := map[string]bool{"": true}
	for _, n := range names {
		if seen[n] {
			if _, ok := offsets[n]; !ok && n != "" {
				offsets[n] = 0
			}
			continue
		}
		seen[n] = true
		offsets[n] = uint32(len(buf))
		buf = append(buf, []byte(n)...)
		buf = append(buf, 0)
	}
	return buf, offsets
}

// writeMinimalELF64Header writes just enough of a 64-bit ELF header
// for debug/elf.Open to succeed, so loader.Load's own class check is
// what's being exercised.
func writeMinimalELF64Header(path string) {
	header := make([]byte, 64)
	copy(header[0:4], []byte{0x7f, 'E', 'L', 'F'})
	header[4] = 2 // ELFCLASS64
	header[5] = 1 // ELFDATA2LSB
	header[6] = 1
	binary.LittleEndian.PutUint16(header[16:18], 2)
	binary.LittleEndian.PutUint16(header[18:20], 0)
	binary.LittleEndian.PutUint32(header[20:24], 1)
	binary.LittleEndian.PutUint64(header[24:32], 0)  // e_entry
	binary.LittleEndian.PutUint64(header[32:40], 0)  // e_phoff
	binary.LittleEndian.PutUint64(header[40:48], 0)  // e_shoff
	binary.LittleEndian.PutUint32(header[48:52], 0)  // e_flags
	binary.LittleEndian.PutUint16(header[52:54], 64) // e_ehsize
	binary.LittleEndian.PutUint16(header[54:56], 0)  // e_phentsize
	binary.LittleEndian.PutUint16(header[56:58], 0)  // e_phnum
	binary.LittleEndian.PutUint16(header[58:60], 0)  // e_shentsize
	binary.LittleEndian.PutUint16(header[60:62], 0)  // e_shnum
	binary.LittleEndian.PutUint16(header[62:64], 0)  // e_shstrndx

	_ = os.WriteFile(path, header, 0644)
}
