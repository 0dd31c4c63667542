// Package pe implements the processing element (PE) command protocol:
// stream descriptors, command sequences, the blocking issue discipline and
// interrupt-based completion, together with a functional PE device model.
package pe

import (
	"errors"
	"fmt"

	"github.com/sarchlab/mur/emu"
)

// ErrStreamExhausted is returned when reading past the last element.
var ErrStreamExhausted = errors.New("pe: stream exhausted")

// Memory is the view of the memory bus used by streams and PEs.
type Memory interface {
	Load(addr uint64, size emu.Size) (uint64, error)
	Store(addr uint64, size emu.Size, value uint64) error
}

// StreamDescriptor describes a sequence of memory-resident elements bound
// to a stream register.
type StreamDescriptor struct {
	// Register is the stream register the descriptor is bound to.
	Register uint8
	// Base is the address of element 0.
	Base uint64
	// Count is the number of elements.
	Count uint64
	// ElemSize is the width of one element.
	ElemSize emu.Size
}

// Addr returns the address of element i.
func (d StreamDescriptor) Addr(i uint64) uint64 {
	return d.Base + i*uint64(d.ElemSize)
}

// Stream is a lazily materialized stream. Elements are read from memory
// only when first needed.
type Stream struct {
	Desc  StreamDescriptor
	mem   Memory
	elems []uint64
}

// NewStream binds desc and materializes its first prefix elements, the
// minimum needed before a pipelined operation can start.
func NewStream(desc StreamDescriptor, mem Memory, prefix int) (*Stream, error) {
	s := &Stream{Desc: desc, mem: mem}

	n := min(uint64(max(prefix, 0)), desc.Count)
	if err := s.materialize(n); err != nil {
		return nil, err
	}

	return s, nil
}

// Materialized returns how many elements have been read so far.
func (s *Stream) Materialized() int {
	return len(s.elems)
}

// Element returns element i, materializing up to it if needed.
func (s *Stream) Element(i uint64) (uint64, error) {
	if i >= s.Desc.Count {
		return 0, fmt.Errorf("stream s%d element %d: %w", s.Desc.Register, i, ErrStreamExhausted)
	}
	if err := s.materialize(i + 1); err != nil {
		return 0, err
	}
	return s.elems[i], nil
}

func (s *Stream) materialize(n uint64) error {
	for i := uint64(len(s.elems)); i < n; i++ {
		v, err := s.mem.Load(s.Desc.Addr(i), s.Desc.ElemSize)
		if err != nil {
			return fmt.Errorf("failed to materialize stream s%d element %d: %w",
				s.Desc.Register, i, err)
		}
		s.elems = append(s.elems, v)
	}
	return nil
}
