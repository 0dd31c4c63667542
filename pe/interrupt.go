package pe

import (
	"context"

	"github.com/rs/xid"
)

// Interrupt is the completion notice of an issued sequence.
type Interrupt struct {
	// SequenceID identifies the completed sequence.
	SequenceID xid.ID
	// Hart is the hart that issued the sequence.
	Hart int
	// Line is the software interrupt line chosen by the last consume command.
	Line uint8
	// Value is the return value of the last consume command.
	Value uint64
	// Err is set when the PE failed while running the sequence.
	Err error
}

// InterruptSink receives completion interrupts. RaiseInterrupt is called
// from the PE's goroutine.
type InterruptSink interface {
	RaiseInterrupt(irq Interrupt)
}

// Issuer accepts command sequences from harts.
type Issuer interface {
	// Issue validates seq and hands it to the PE, blocking while the PE is
	// busy. Completion is reported to sink.
	Issue(ctx context.Context, seq *Sequence, sink InterruptSink) error
}
