package loader

// Bank is the subset of chip.MemoryBank's interface a Program needs
// to place itself into storage. Kept as an interface so loader has no
// import-time dependency on chip (chip.MemoryBank satisfies it
// structurally; cmd/lokisim imports both packages).
type Bank interface {
	Preload(wordAddr, value uint32, readOnly bool)
}

// PlaceInto writes every chunk of p word-by-word into bank, rounding
// each chunk's start address down to a word boundary and zero-filling
// any BSS tail beyond len(Data) (spec.md §6, ".bss" handling implicit
// in "SHT_NOBITS").
func (p *Program) PlaceInto(bank Bank) {
	for _, chunk := range p.Chunks {
		base, words := chunkWords(chunk)
		for i, w := range words {
			bank.Preload(base/4+uint32(i), w, chunk.ReadOnly)
		}
	}
}

// CodeAt returns the word-packed contents and word-aligned base
// address of whichever chunk contains addr, for handing straight to a
// core's instruction store. Instruction fetch over the simulated
// network is out of this module's scope (spec.md §1, "main-memory
// modeling beyond its request/response interface"), so the loader is
// what gets a program's first packet into the core directly rather
// than via a fetch miss.
func (p *Program) CodeAt(addr uint32) (words []uint32, base uint32, ok bool) {
	for _, chunk := range p.Chunks {
		if addr < chunk.VirtAddr || addr >= chunk.VirtAddr+chunk.MemSize {
			continue
		}
		base, words = chunkWords(chunk)
		return words, base, true
	}
	return nil, 0, false
}

// chunkWords packs a chunk's bytes into little-endian words, returning
// the word-aligned base address the words start at.
func chunkWords(chunk Chunk) (base uint32, words []uint32) {
	base = chunk.VirtAddr &^ 3
	n := (chunk.MemSize + 3) / 4
	words = make([]uint32, n)
	for i := uint32(0); i < n; i++ {
		var word uint32
		byteOff := i * 4
		for b := uint32(0); b < 4; b++ {
			pos := byteOff + b
			if pos >= uint32(len(chunk.Data)) {
				break
			}
			word |= uint32(chunk.Data[pos]) << (8 * b)
		}
		words[i] = word
	}
	return base, words
}
