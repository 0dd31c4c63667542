package emu

import (
	"encoding/binary"
	"sync"
)

// Default RAM geometry.
const (
	DefaultRAMBase uint64 = 0x8000_0000
	DefaultRAMSize uint64 = 128 * 1024 * 1024
)

// Size is the width of a memory access in bytes.
type Size uint8

// Access sizes.
const (
	Byte   Size = 1
	Half   Size = 2
	Word   Size = 4
	Double Size = 8
)

// Bits returns the access width in bits.
func (s Size) Bits() int {
	return int(s) * 8
}

// MemoryOption configures a Memory.
type MemoryOption func(*Memory)

// WithStrictAlignment makes misaligned accesses raise misaligned-access
// exceptions instead of completing.
func WithStrictAlignment() MemoryOption {
	return func(m *Memory) {
		m.strictAlignment = true
	}
}

// Memory is the memory bus: a little-endian byte store covering
// [base, base+size). It is safe for concurrent use by harts and PEs.
type Memory struct {
	mu              sync.RWMutex
	base            uint64
	data            []byte
	strictAlignment bool
}

// NewMemory creates a bus over [base, base+size) and places image at base.
// The memory takes ownership of image; its backing array is reused when
// it is large enough. Bytes beyond size are dropped.
func NewMemory(base, size uint64, image []byte, opts ...MemoryOption) *Memory {
	if uint64(len(image)) > size {
		image = image[:size]
	}

	var data []byte
	if uint64(cap(image)) >= size {
		data = image[:size]
		clear(data[len(image):])
	} else {
		data = make([]byte, size)
		copy(data, image)
	}

	m := &Memory{base: base, data: data}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Base returns the first valid address.
func (m *Memory) Base() uint64 {
	return m.base
}

// Size returns the number of bytes backing the bus.
func (m *Memory) Size() uint64 {
	return uint64(len(m.data))
}

// End returns the first address past the end of RAM.
func (m *Memory) End() uint64 {
	return m.base + uint64(len(m.data))
}

// Contains reports whether [addr, addr+n) lies inside RAM.
func (m *Memory) Contains(addr, n uint64) bool {
	if addr < m.base {
		return false
	}
	off := addr - m.base
	return off <= uint64(len(m.data)) && n <= uint64(len(m.data))-off
}

// Load reads size bytes at addr and zero-extends them.
func (m *Memory) Load(addr uint64, size Size) (uint64, error) {
	if err := m.check(addr, size, KindLoadAccessFault, KindLoadAddrMisaligned); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.read(addr-m.base, size), nil
}

// Store writes the low size bytes of value at addr.
func (m *Memory) Store(addr uint64, size Size, value uint64) error {
	if err := m.check(addr, size, KindStoreAccessFault, KindStoreAddrMisaligned); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.write(addr-m.base, size, value)
	return nil
}

// Fetch reads the 32-bit instruction word at addr.
func (m *Memory) Fetch(addr uint64) (uint32, error) {
	if addr%4 != 0 {
		return 0, NewException(KindInstructionAddrMisaligned, addr)
	}
	if !m.Contains(addr, 4) {
		return 0, NewException(KindInstructionAccessFault, addr)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return uint32(m.read(addr-m.base, Word)), nil
}

// Read32 reads a 32-bit word, returning 0 outside RAM.
func (m *Memory) Read32(addr uint64) uint32 {
	v, err := m.Load(addr, Word)
	if err != nil {
		return 0
	}
	return uint32(v)
}

// Read64 reads a 64-bit word, returning 0 outside RAM.
func (m *Memory) Read64(addr uint64) uint64 {
	v, err := m.Load(addr, Double)
	if err != nil {
		return 0
	}
	return v
}

// Write32 writes a 32-bit word, ignoring addresses outside RAM.
func (m *Memory) Write32(addr uint64, value uint32) {
	_ = m.Store(addr, Word, uint64(value))
}

// Write64 writes a 64-bit word, ignoring addresses outside RAM.
func (m *Memory) Write64(addr uint64, value uint64) {
	_ = m.Store(addr, Double, value)
}

// LoadProgram writes instruction words consecutively starting at addr.
func (m *Memory) LoadProgram(addr uint64, words ...uint32) {
	for i, w := range words {
		m.Write32(addr+uint64(i)*4, w)
	}
}

func (m *Memory) check(addr uint64, size Size, fault, misaligned ExceptionKind) error {
	if !m.Contains(addr, uint64(size)) {
		return NewException(fault, addr)
	}
	if m.strictAlignment && addr%uint64(size) != 0 {
		return NewException(misaligned, addr)
	}
	return nil
}

func (m *Memory) read(off uint64, size Size) uint64 {
	b := m.data[off : off+uint64(size)]
	switch size {
	case Byte:
		return uint64(b[0])
	case Half:
		return uint64(binary.LittleEndian.Uint16(b))
	case Word:
		return uint64(binary.LittleEndian.Uint32(b))
	default:
		return binary.LittleEndian.Uint64(b)
	}
}

func (m *Memory) write(off uint64, size Size, value uint64) {
	b := m.data[off : off+uint64(size)]
	switch size {
	case Byte:
		b[0] = byte(value)
	case Half:
		binary.LittleEndian.PutUint16(b, uint16(value))
	case Word:
		binary.LittleEndian.PutUint32(b, uint32(value))
	default:
		binary.LittleEndian.PutUint64(b, value)
	}
}
