// Package insts provides RISC-V instruction definitions and decoding.
//
// This package implements decoding of RV64I machine code into structured
// instruction representations. It supports:
//   - Integer computational instructions, including the 32-bit *W forms
//   - Control transfer: JAL, JALR and the conditional branches
//   - Loads and stores of 8, 16, 32 and 64 bits
//   - Zicsr: CSRRW, CSRRS, CSRRC and their immediate forms
//   - FENCE, ECALL, EBREAK
//   - The custom-0 processing element (PE) command instructions
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x00a00293) // addi x5, x0, 10
//	fmt.Printf("Op: %v, Rd: %d, Rs1: %d, Imm: %d\n", inst.Op, inst.Rd, inst.Rs1, inst.Imm)
package insts
