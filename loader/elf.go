// Package loader reads program images: raw binaries, or RISC-V ELF64
// executables flattened the way objcopy -O binary would.
package loader

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrEmptyImage is returned when an image holds no bytes to load.
var ErrEmptyImage = errors.New("loader: empty image")

// Format is the on-disk format of an image.
type Format int

const (
	// FormatRaw is a flat binary placed at the bottom of RAM.
	FormatRaw Format = iota
	// FormatELF is an ELF64 RISC-V executable.
	FormatELF
)

func (f Format) String() string {
	switch f {
	case FormatRaw:
		return "raw"
	case FormatELF:
		return "elf"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Segment represents a loadable segment from an ELF binary.
type Segment struct {
	// PhysAddr is the load address of the segment.
	PhysAddr uint64
	// VirtAddr is the address the segment is linked at.
	VirtAddr uint64
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint64
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Image is a program ready to be copied to the bottom of RAM.
type Image struct {
	Format Format
	// Origin is the load address of Data[0]: the lowest segment address of
	// an ELF file, zero for raw images.
	Origin uint64
	// Entry is the ELF entry point, or zero for raw images.
	Entry uint64
	// Data is the flattened image.
	Data []byte
	// Segments lists the ELF PT_LOAD segments.
	Segments []Segment
}

// EntryOffset returns the offset of the entry point from the start of Data.
func (img *Image) EntryOffset() uint64 {
	if img.Entry < img.Origin {
		return 0
	}
	return img.Entry - img.Origin
}

// Load reads the image at path. Files that start with the ELF magic are
// parsed as ELF; anything else is used as raw bytes.
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyImage)
	}

	if !bytes.HasPrefix(data, []byte(elf.ELFMAG)) {
		return &Image{Format: FormatRaw, Data: data}, nil
	}

	img, err := parseELF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return img, nil
}

func parseELF(r io.ReaderAt) (*Image, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS64 {
		return nil, fmt.Errorf("not a 64-bit ELF file")
	}

	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("not a RISC-V ELF file (machine type: %v)", f.Machine)
	}

	img := &Image{
		Format: FormatELF,
		Entry:  f.Entry,
	}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		seg, err := readSegment(phdr)
		if err != nil {
			return nil, err
		}
		img.Segments = append(img.Segments, seg)
	}

	if err := img.flatten(); err != nil {
		return nil, err
	}

	return img, nil
}

func readSegment(phdr *elf.Prog) (Segment, error) {
	data := make([]byte, phdr.Filesz)
	if phdr.Filesz > 0 {
		n, err := phdr.ReadAt(data, 0)
		if err != nil && err != io.EOF {
			return Segment{}, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Paddr, err)
		}
		if uint64(n) != phdr.Filesz {
			return Segment{}, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
				phdr.Paddr, n, phdr.Filesz)
		}
	}

	var flags SegmentFlags
	if phdr.Flags&elf.PF_X != 0 {
		flags |= SegmentFlagExecute
	}
	if phdr.Flags&elf.PF_W != 0 {
		flags |= SegmentFlagWrite
	}
	if phdr.Flags&elf.PF_R != 0 {
		flags |= SegmentFlagRead
	}

	return Segment{
		PhysAddr: phdr.Paddr,
		VirtAddr: phdr.Vaddr,
		Data:     data,
		MemSize:  phdr.Memsz,
		Flags:    flags,
	}, nil
}

// flatten lays the file contents of every segment out relative to the
// lowest load address. Gaps are zero filled; BSS is left to zeroed RAM.
func (img *Image) flatten() error {
	var end uint64
	found := false

	for _, seg := range img.Segments {
		if len(seg.Data) == 0 {
			continue
		}
		if !found || seg.PhysAddr < img.Origin {
			img.Origin = seg.PhysAddr
		}
		end = max(end, seg.PhysAddr+uint64(len(seg.Data)))
		found = true
	}

	if !found {
		return ErrEmptyImage
	}

	img.Data = make([]byte, end-img.Origin)
	for _, seg := range img.Segments {
		if len(seg.Data) > 0 {
			copy(img.Data[seg.PhysAddr-img.Origin:], seg.Data)
		}
	}

	return nil
}
