package loader_test

import (
	"encoding/binary"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mur/loader"
)

const (
	machineRISCV = 243
	machineX8664 = 62
)

// testSegment describes one program header of a generated ELF file.
type testSegment struct {
	typ   uint32
	flags uint32
	addr  uint64
	data  []byte
	memsz uint64
}

var _ = Describe("Loader", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "loader-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	path := func(name string) string {
		return filepath.Join(tempDir, name)
	}

	Describe("raw images", func() {
		It("should use the bytes as-is", func() {
			raw := []byte{0x93, 0x02, 0xA0, 0x00} // addi x5, x0, 10
			Expect(os.WriteFile(path("prog.bin"), raw, 0644)).To(Succeed())

			img, err := loader.Load(path("prog.bin"))

			Expect(err).NotTo(HaveOccurred())
			Expect(img.Format).To(Equal(loader.FormatRaw))
			Expect(img.Data).To(Equal(raw))
			Expect(img.Origin).To(BeZero())
			Expect(img.EntryOffset()).To(BeZero())
		})

		It("should reject an empty file", func() {
			Expect(os.WriteFile(path("empty.bin"), nil, 0644)).To(Succeed())

			_, err := loader.Load(path("empty.bin"))

			Expect(err).To(MatchError(loader.ErrEmptyImage))
		})

		It("should return error for non-existent file", func() {
			_, err := loader.Load("/nonexistent/path/to/file.bin")

			Expect(err).To(MatchError(ContainSubstring("failed to open")))
		})
	})

	Describe("ELF images", func() {
		code := []byte{
			0x93, 0x02, 0xA0, 0x00, // addi x5, x0, 10
			0x13, 0x03, 0x40, 0x01, // addi x6, x0, 20
		}

		It("should flatten a single segment", func() {
			writeELF(path("one.elf"), 2, machineRISCV, 0x80000004, []testSegment{
				{typ: 1, flags: 0x5, addr: 0x80000000, data: code},
			})

			img, err := loader.Load(path("one.elf"))

			Expect(err).NotTo(HaveOccurred())
			Expect(img.Format).To(Equal(loader.FormatELF))
			Expect(img.Origin).To(Equal(uint64(0x80000000)))
			Expect(img.Entry).To(Equal(uint64(0x80000004)))
			Expect(img.EntryOffset()).To(Equal(uint64(4)))
			Expect(img.Data).To(Equal(code))
			Expect(img.Segments).To(HaveLen(1))
			Expect(img.Segments[0].Flags & loader.SegmentFlagExecute).NotTo(BeZero())
		})

		It("should lay segments out relative to the lowest address", func() {
			data := []byte{0x01, 0x02, 0x03, 0x04}
			writeELF(path("two.elf"), 2, machineRISCV, 0x80000000, []testSegment{
				{typ: 1, flags: 0x6, addr: 0x80000100, data: data},
				{typ: 1, flags: 0x5, addr: 0x80000000, data: code},
			})

			img, err := loader.Load(path("two.elf"))

			Expect(err).NotTo(HaveOccurred())
			Expect(img.Origin).To(Equal(uint64(0x80000000)))
			Expect(img.Data).To(HaveLen(0x104))
			Expect(img.Data[:8]).To(Equal(code))
			Expect(img.Data[8:0x100]).To(HaveEach(byte(0)))
			Expect(img.Data[0x100:]).To(Equal(data))
			Expect(img.Segments[0].Flags & loader.SegmentFlagWrite).NotTo(BeZero())
		})

		It("should leave BSS to zeroed memory", func() {
			writeELF(path("bss.elf"), 2, machineRISCV, 0x80000000, []testSegment{
				{typ: 1, flags: 0x5, addr: 0x80000000, data: code},
				{typ: 1, flags: 0x6, addr: 0x80001000, memsz: 4096},
			})

			img, err := loader.Load(path("bss.elf"))

			Expect(err).NotTo(HaveOccurred())
			Expect(img.Data).To(Equal(code))
			Expect(img.Segments).To(HaveLen(2))
			Expect(img.Segments[1].Data).To(BeEmpty())
			Expect(img.Segments[1].MemSize).To(Equal(uint64(4096)))
		})

		It("should ignore segments that are not PT_LOAD", func() {
			writeELF(path("note.elf"), 2, machineRISCV, 0x80000000, []testSegment{
				{typ: 4, flags: 0x4, addr: 0x90000000, data: []byte{0xFF, 0xFF}},
				{typ: 1, flags: 0x5, addr: 0x80000000, data: code},
			})

			img, err := loader.Load(path("note.elf"))

			Expect(err).NotTo(HaveOccurred())
			Expect(img.Segments).To(HaveLen(1))
			Expect(img.Data).To(Equal(code))
		})

		It("should reject an ELF without loadable bytes", func() {
			writeELF(path("none.elf"), 2, machineRISCV, 0x80000000, nil)

			_, err := loader.Load(path("none.elf"))

			Expect(err).To(MatchError(loader.ErrEmptyImage))
		})

		It("should return error for x86-64 ELF", func() {
			writeELF(path("x86.elf"), 2, machineX8664, 0, nil)

			_, err := loader.Load(path("x86.elf"))

			Expect(err).To(MatchError(ContainSubstring("not a RISC-V")))
		})

		It("should return error for 32-bit ELF", func() {
			header := make([]byte, 52)
			copy(header, []byte{0x7f, 'E', 'L', 'F', 1, 1, 1})
			binary.LittleEndian.PutUint16(header[16:18], 2)
			binary.LittleEndian.PutUint16(header[18:20], machineRISCV)
			binary.LittleEndian.PutUint32(header[20:24], 1)
			binary.LittleEndian.PutUint16(header[40:42], 52)
			Expect(os.WriteFile(path("elf32.elf"), header, 0644)).To(Succeed())

			_, err := loader.Load(path("elf32.elf"))

			Expect(err).To(MatchError(ContainSubstring("not a 64-bit")))
		})

		It("should return error for a truncated header", func() {
			Expect(os.WriteFile(path("short.elf"), []byte{0x7f, 'E', 'L', 'F', 2}, 0644)).To(Succeed())

			_, err := loader.Load(path("short.elf"))

			Expect(err).To(MatchError(ContainSubstring("failed to parse ELF")))
		})
	})
})

// writeELF writes a little-endian ELF64 executable with the given program
// headers. Segment contents follow the headers in order.
func writeELF(path string, class byte, machine uint16, entry uint64, segs []testSegment) {
	const ehsize, phentsize = 64, 56

	header := make([]byte, ehsize)
	copy(header[0:4], []byte{0x7f, 'E', 'L', 'F'})
	header[4] = class
	header[5] = 1 // little endian
	header[6] = 1 // version
	binary.LittleEndian.PutUint16(header[16:18], 2) // executable
	binary.LittleEndian.PutUint16(header[18:20], machine)
	binary.LittleEndian.PutUint32(header[20:24], 1)
	binary.LittleEndian.PutUint64(header[24:32], entry)
	binary.LittleEndian.PutUint64(header[32:40], ehsize)
	binary.LittleEndian.PutUint16(header[52:54], ehsize)
	binary.LittleEndian.PutUint16(header[54:56], phentsize)
	binary.LittleEndian.PutUint16(header[56:58], uint16(len(segs)))
	binary.LittleEndian.PutUint16(header[58:60], 64)

	offset := uint64(ehsize + phentsize*len(segs))
	phdrs := make([]byte, 0, phentsize*len(segs))
	var contents []byte

	for _, seg := range segs {
		ph := make([]byte, phentsize)
		memsz := seg.memsz
		if memsz == 0 {
			memsz = uint64(len(seg.data))
		}
		binary.LittleEndian.PutUint32(ph[0:4], seg.typ)
		binary.LittleEndian.PutUint32(ph[4:8], seg.flags)
		binary.LittleEndian.PutUint64(ph[8:16], offset)
		binary.LittleEndian.PutUint64(ph[16:24], seg.addr)
		binary.LittleEndian.PutUint64(ph[24:32], seg.addr)
		binary.LittleEndian.PutUint64(ph[32:40], uint64(len(seg.data)))
		binary.LittleEndian.PutUint64(ph[40:48], memsz)
		binary.LittleEndian.PutUint64(ph[48:56], 0x1000)

		phdrs = append(phdrs, ph...)
		contents = append(contents, seg.data...)
		offset += uint64(len(seg.data))
	}

	file := append(append(header, phdrs...), contents...)
	Expect(os.WriteFile(path, file, 0644)).To(Succeed())
}
