package loader_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/lokisim/loader"
)

var _ = Describe("ELF Loader", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "elf-loader-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	Describe("Load", func() {
		Context("with a valid 32-bit ELF binary", func() {
			var elfPath string

			BeforeEach(func() {
				elfPath = filepath.Join(tempDir, "test.elf")
				writeMinimalELF32(elfPath, minimalELF32{
					entry: 0x1000,
					sections: []testSection{
						{name: ".text", addr: 0x1000, data: []byte{0x01, 0x02, 0x03, 0x04}, writable: false, alloc: true},
					},
				})
			})

			It("should load without error", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog).NotTo(BeNil())
			})

			It("should extract the correct entry point", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.EntryPoint).To(Equal(uint32(0x1000)))
			})

			It("should load sections into memory", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(len(prog.Chunks)).To(BeNumerically(">", 0))
			})
		})

		Context("with section data and permissions", func() {
			It("marks a non-writable section read-only", func() {
				elfPath := filepath.Join(tempDir, "code.elf")
				codeData := []byte{0xAA, 0xBB, 0xCC, 0xDD}
				writeMinimalELF32(elfPath, minimalELF32{
					entry: 0x2000,
					sections: []testSection{
						{name: ".text", addr: 0x2000, data: codeData, writable: false, alloc: true},
					},
				})

				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())

				var found *loader.Chunk
				for i := range prog.Chunks {
					if prog.Chunks[i].VirtAddr == 0x2000 {
						found = &prog.Chunks[i]
					}
				}
				Expect(found).NotTo(BeNil())
				Expect(found.Data).To(Equal(codeData))
				Expect(found.ReadOnly).To(BeTrue())
			})

			It("marks a writable section read-write", func() {
				elfPath := filepath.Join(tempDir, "data.elf")
				dataBytes := []byte{0x01, 0x02, 0x03, 0x04}
				writeMinimalELF32(elfPath, minimalELF32{
					entry: 0x3000,
					sections: []testSection{
						{name: ".data", addr: 0x3000, data: dataBytes, writable: true, alloc: true},
					},
				})

				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())

				var found *loader.Chunk
				for i := range prog.Chunks {
					if prog.Chunks[i].VirtAddr == 0x3000 {
						found = &prog.Chunks[i]
					}
				}
				Expect(found).NotTo(BeNil())
				Expect(found.ReadOnly).To(BeFalse())
			})
		})

		Context("with an invalid file", func() {
			It("should return error for non-existent file", func() {
				_, err := loader.Load("/nonexistent/path/to/file.elf")
				Expect(err).To(HaveOccurred())
			})

			It("should return error for non-ELF file", func() {
				notElfPath := filepath.Join(tempDir, "not-elf.bin")
				err := os.WriteFile(notElfPath, []byte("not an elf file"), 0644)
				Expect(err).NotTo(HaveOccurred())

				_, err = loader.Load(notElfPath)
				Expect(err).To(HaveOccurred())
			})
		})

		Context("with a 64-bit ELF", func() {
			It("should return error", func() {
				elfPath := filepath.Join(tempDir, "elf64.elf")
				writeMinimalELF64Header(elfPath)

				_, err := loader.Load(elfPath)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("32-bit"))
			})
		})

		Context("with a non-allocatable section", func() {
			It("skips sections without SHF_ALLOC", func() {
				elfPath := filepath.Join(tempDir, "debuginfo.elf")
				writeMinimalELF32(elfPath, minimalELF32{
					entry: 0x4000,
					sections: []testSection{
						{name: ".text", addr: 0x4000, data: []byte{0x00}, writable: false, alloc: true},
						{name: ".debug", addr: 0, data: []byte{0xFF, 0xFF}, writable: false, alloc: false},
					},
				})

				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				for _, chunk := range prog.Chunks {
					Expect(chunk.VirtAddr).NotTo(BeZero())
				}
			})
		})

		Context("with a BSS section", func() {
			It("loads SHT_NOBITS with zero-length Data and a nonzero MemSize", func() {
				elfPath := filepath.Join(tempDir, "bss.elf")
				writeMinimalELF32(elfPath, minimalELF32{
					entry: 0x5000,
					sections: []testSection{
						{name: ".bss", addr: 0x5000, memSize: 256, writable: true, alloc: true, nobits: true},
					},
				})

				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())

				var bss *loader.Chunk
				for i := range prog.Chunks {
					if prog.Chunks[i].VirtAddr == 0x5000 {
						bss = &prog.Chunks[i]
					}
				}
				Expect(bss).NotTo(BeNil())
				Expect(bss.Data).To(BeEmpty())
				Expect(bss.MemSize).To(Equal(uint32(256)))
			})
		})
	})

	Describe("PlaceInto", func() {
		It("writes section words into a bank, word-aligned", func() {
			elfPath := filepath.Join(tempDir, "place.elf")
			writeMinimalELF32(elfPath, minimalELF32{
				entry: 0x1000,
				sections: []testSection{
					{name: ".text", addr: 0x1000, data: []byte{0x78, 0x56, 0x34, 0x12}, writable: false, alloc: true},
				},
			})

			prog, err := loader.Load(elfPath)
			Expect(err).NotTo(HaveOccurred())

			bank := &fakeBank{}
			prog.PlaceInto(bank)

			Expect(bank.writes).To(HaveKeyWithValue(uint32(0x1000/4), uint32(0x12345678)))
			Expect(bank.readOnly[uint32(0x1000/4)]).To(BeTrue())
		})
	})
})

type fakeBank struct {
	writes   map[uint32]uint32
	readOnly map[uint32]bool
}

func (f *fakeBank) Preload(wordAddr, value uint32, readOnly bool) {
	if f.writes == nil {
		f.writes = make(map[uint32]uint32)
		f.readOnly = make(map[uint32]bool)
	}
	f.writes[wordAddr] = value
	f.readOnly[wordAddr] = readOnly
}
