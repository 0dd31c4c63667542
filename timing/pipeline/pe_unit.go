package pipeline

import (
	"context"
	"errors"

	"github.com/sarchlab/mur/emu"
	"github.com/sarchlab/mur/insts"
	"github.com/sarchlab/mur/pe"
)

// peUnit is the hart side of the PE command interface. It collects stream
// bindings and commands until pe.issue hands them to the PE.
type peUnit struct {
	issuer   pe.Issuer
	sink     pe.InterruptSink
	memory   pe.Memory
	builder  *pe.SequenceBuilder
	prefetch int
	hartID   int
}

func (u *peUnit) execute(ctx context.Context, inst *insts.Instruction, rs1, rs2 uint64) error {
	illegal := emu.NewException(emu.KindIllegalInstruction, uint64(inst.Word))

	switch inst.Op {
	case insts.OpPEStream:
		desc := pe.StreamDescriptor{
			Register: inst.Rd,
			Base:     rs1,
			Count:    rs2,
			ElemSize: emu.Size(1) << inst.Funct7,
		}
		stream, err := pe.NewStream(desc, u.memory, u.prefetch)
		if err != nil {
			if exc, ok := emu.AsException(err); ok {
				return exc
			}
			return err
		}
		u.builder.Bind(stream)

	case insts.OpPEMap:
		kind, ok := pe.MapKind(inst.Funct7)
		if !ok {
			return illegal
		}
		u.builder.Append(pe.Command{Kind: kind, Dst: inst.Rd, SrcA: inst.Rs1, SrcB: inst.Rs2})

	case insts.OpPEConsume:
		kind, ok := pe.ConsumeKind(inst.Funct7)
		if !ok {
			return illegal
		}
		u.builder.Append(pe.Command{Kind: kind, Dst: inst.Rs2, SrcA: inst.Rs1, Line: inst.Rd})

	case insts.OpPEIssue:
		return u.issue(ctx, inst)
	}

	return nil
}

func (u *peUnit) issue(ctx context.Context, inst *insts.Instruction) error {
	seq := u.builder.Build(u.hartID)

	if err := seq.Validate(); err != nil {
		return rejected(inst, err)
	}

	if u.issuer == nil {
		return emu.NewException(emu.KindIllegalInstruction, uint64(inst.Word))
	}

	err := u.issuer.Issue(ctx, seq, u.sink)
	if errors.Is(err, pe.ErrNoConsume) || errors.Is(err, pe.ErrUnboundStream) {
		return rejected(inst, err)
	}

	return err
}

func rejected(inst *insts.Instruction, cause error) *emu.Exception {
	return &emu.Exception{
		Kind:  emu.KindPECommandRejected,
		Value: uint64(inst.Word),
		Fatal: true,
		Cause: cause,
	}
}
