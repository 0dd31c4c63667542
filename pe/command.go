package pe

import (
	"errors"
	"fmt"

	"github.com/rs/xid"
	"github.com/samber/lo"
)

// Sequence validation errors.
var (
	ErrNoConsume     = errors.New("pe: command sequence has no consume command")
	ErrUnboundStream = errors.New("pe: command references an unbound stream register")
)

// CommandKind identifies a PE command.
type CommandKind uint8

// Command kinds. Map kinds are encoded in funct7 of pe.map in this order;
// consume kinds are encoded in funct7 of pe.consume starting at 0.
const (
	MapAdd CommandKind = iota
	MapSub
	MapMul
	MapAnd
	MapOr
	MapXor
	ConsumeStore
	ConsumeSum
)

func (k CommandKind) String() string {
	switch k {
	case MapAdd:
		return "map.add"
	case MapSub:
		return "map.sub"
	case MapMul:
		return "map.mul"
	case MapAnd:
		return "map.and"
	case MapOr:
		return "map.or"
	case MapXor:
		return "map.xor"
	case ConsumeStore:
		return "consume.store"
	case ConsumeSum:
		return "consume.sum"
	default:
		return fmt.Sprintf("CommandKind(%d)", uint8(k))
	}
}

// IsConsume reports whether the kind ends a dataflow chain.
func (k CommandKind) IsConsume() bool {
	return k == ConsumeStore || k == ConsumeSum
}

// MapKind decodes the funct7 field of pe.map.
func MapKind(funct7 uint8) (CommandKind, bool) {
	if funct7 > uint8(MapXor) {
		return 0, false
	}
	return CommandKind(funct7), true
}

// ConsumeKind decodes the funct7 field of pe.consume.
func ConsumeKind(funct7 uint8) (CommandKind, bool) {
	if funct7 > 1 {
		return 0, false
	}
	return ConsumeStore + CommandKind(funct7), true
}

// Command is one PE operation.
//
// Map commands compute Dst = SrcA op SrcB element-wise. ConsumeStore writes
// SrcA into the memory described by stream Dst; ConsumeSum reduces SrcA.
// Consume commands signal completion on interrupt Line.
type Command struct {
	Kind CommandKind
	Dst  uint8
	SrcA uint8
	SrcB uint8
	Line uint8
}

func (c Command) sources() []uint8 {
	if c.Kind.IsConsume() {
		return []uint8{c.SrcA}
	}
	return []uint8{c.SrcA, c.SrcB}
}

// Sequence is the unit of work issued to a PE.
type Sequence struct {
	ID       xid.ID
	Hart     int
	Streams  map[uint8]*Stream
	Commands []Command
}

// Validate checks the sequence before it is issued. A sequence without a
// consume command fails with ErrNoConsume.
func (s *Sequence) Validate() error {
	if !lo.ContainsBy(s.Commands, func(c Command) bool { return c.Kind.IsConsume() }) {
		return ErrNoConsume
	}

	produced := make(map[uint8]bool)
	for i, cmd := range s.Commands {
		for _, src := range cmd.sources() {
			if !produced[src] && s.Streams[src] == nil {
				return fmt.Errorf("command %d (%s) reads s%d: %w", i, cmd.Kind, src, ErrUnboundStream)
			}
		}

		switch {
		case cmd.Kind == ConsumeStore:
			if s.Streams[cmd.Dst] == nil {
				return fmt.Errorf("command %d (%s) writes s%d: %w", i, cmd.Kind, cmd.Dst, ErrUnboundStream)
			}
		case !cmd.Kind.IsConsume():
			produced[cmd.Dst] = true
		}
	}

	return nil
}

// Completion returns the last consume command, which selects the
// completion interrupt line and return value.
func (s *Sequence) Completion() (Command, int) {
	cmd, idx, _ := lo.FindLastIndexOf(s.Commands, func(c Command) bool { return c.Kind.IsConsume() })
	return cmd, idx
}

// Length returns the number of elements the sequence processes: the count
// of the shortest memory stream it touches.
func (s *Sequence) Length() uint64 {
	var regs []uint8
	for _, cmd := range s.Commands {
		regs = append(regs, cmd.sources()...)
		if cmd.Kind == ConsumeStore {
			regs = append(regs, cmd.Dst)
		}
	}

	length, found := uint64(0), false
	for _, reg := range lo.Uniq(regs) {
		st := s.Streams[reg]
		if st == nil {
			continue
		}
		if !found || st.Desc.Count < length {
			length, found = st.Desc.Count, true
		}
	}
	return length
}

// SequenceBuilder accumulates the stream bindings and commands a hart
// emits before pe.issue.
type SequenceBuilder struct {
	streams  map[uint8]*Stream
	commands []Command
}

// NewSequenceBuilder creates an empty builder.
func NewSequenceBuilder() *SequenceBuilder {
	return &SequenceBuilder{streams: make(map[uint8]*Stream)}
}

// Bind binds s to its descriptor's register, replacing any earlier binding.
func (b *SequenceBuilder) Bind(s *Stream) {
	b.streams[s.Desc.Register] = s
}

// Append adds a command.
func (b *SequenceBuilder) Append(cmd Command) {
	b.commands = append(b.commands, cmd)
}

// Build returns the accumulated sequence for hart and resets the builder.
func (b *SequenceBuilder) Build(hart int) *Sequence {
	seq := &Sequence{
		ID:       xid.New(),
		Hart:     hart,
		Streams:  b.streams,
		Commands: b.commands,
	}
	b.Reset()
	return seq
}

// Reset drops all bindings and commands.
func (b *SequenceBuilder) Reset() {
	b.streams = make(map[uint8]*Stream)
	b.commands = nil
}
