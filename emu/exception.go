package emu

import (
	"errors"
	"fmt"
)

// ExceptionKind identifies an exception by its RISC-V mcause code.
type ExceptionKind uint8

// Exception kinds. Values match the mcause exception codes; PECommandRejected
// uses the first code of the custom range.
const (
	KindInstructionAddrMisaligned ExceptionKind = 0
	KindInstructionAccessFault    ExceptionKind = 1
	KindIllegalInstruction        ExceptionKind = 2
	KindBreakpoint                ExceptionKind = 3
	KindLoadAddrMisaligned        ExceptionKind = 4
	KindLoadAccessFault           ExceptionKind = 5
	KindStoreAddrMisaligned       ExceptionKind = 6
	KindStoreAccessFault          ExceptionKind = 7
	KindEcallFromU                ExceptionKind = 8
	KindEcallFromS                ExceptionKind = 9
	KindEcallFromM                ExceptionKind = 11
	KindInstructionPageFault      ExceptionKind = 12
	KindLoadPageFault             ExceptionKind = 13
	KindStorePageFault            ExceptionKind = 15
	KindPECommandRejected         ExceptionKind = 24
)

var kindNames = map[ExceptionKind]string{
	KindInstructionAddrMisaligned: "instruction address misaligned",
	KindInstructionAccessFault:    "instruction access fault",
	KindIllegalInstruction:        "illegal instruction",
	KindBreakpoint:                "breakpoint",
	KindLoadAddrMisaligned:        "load address misaligned",
	KindLoadAccessFault:           "load access fault",
	KindStoreAddrMisaligned:       "store address misaligned",
	KindStoreAccessFault:          "store access fault",
	KindEcallFromU:                "environment call from U-mode",
	KindEcallFromS:                "environment call from S-mode",
	KindEcallFromM:                "environment call from M-mode",
	KindInstructionPageFault:      "instruction page fault",
	KindLoadPageFault:             "load page fault",
	KindStorePageFault:            "store page fault",
	KindPECommandRejected:         "PE command rejected",
}

func (k ExceptionKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("exception(%d)", uint8(k))
}

// Fatal reports whether exceptions of this kind terminate execution.
func (k ExceptionKind) Fatal() bool {
	switch k {
	case KindInstructionAddrMisaligned,
		KindInstructionAccessFault,
		KindIllegalInstruction,
		KindLoadAccessFault,
		KindStoreAddrMisaligned,
		KindStoreAccessFault,
		KindPECommandRejected:
		return true
	}
	return false
}

// Exception is a synchronous exception raised by a pipeline stage or the bus.
type Exception struct {
	// Kind is the exception cause.
	Kind ExceptionKind

	// Value is the faulting address, pc or instruction word (mtval).
	Value uint64

	// Fatal indicates the exception aborts the run.
	Fatal bool

	// Cause is an optional underlying error.
	Cause error
}

// NewException creates an exception whose fatality follows its kind.
func NewException(kind ExceptionKind, value uint64) *Exception {
	return &Exception{Kind: kind, Value: value, Fatal: kind.Fatal()}
}

// Code returns the mcause exception code.
func (e *Exception) Code() uint64 {
	return uint64(e.Kind)
}

func (e *Exception) Error() string {
	msg := fmt.Sprintf("%s (value 0x%x)", e.Kind, e.Value)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Exception) Unwrap() error {
	return e.Cause
}

// AsException extracts an *Exception from err.
func AsException(err error) (*Exception, bool) {
	var exc *Exception
	if errors.As(err, &exc) {
		return exc, true
	}
	return nil, false
}

// IsFatal reports whether err terminates execution. Errors that are not
// exceptions are always fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if exc, ok := AsException(err); ok {
		return exc.Fatal
	}
	return true
}
