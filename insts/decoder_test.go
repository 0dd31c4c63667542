package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mur/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("Integer computational instructions", func() {
		It("should decode addi x5, x0, 10", func() {
			inst := decoder.Decode(0x00A00293)

			Expect(inst.Op).To(Equal(insts.OpADDI))
			Expect(inst.Class).To(Equal(insts.ClassALU))
			Expect(inst.Rd).To(Equal(uint8(5)))
			Expect(inst.Rs1).To(Equal(uint8(0)))
			Expect(inst.Imm).To(Equal(int64(10)))
			Expect(inst.SrcRegs()).To(Equal([]uint8{0}))
		})

		It("should sign-extend negative immediates", func() {
			inst := decoder.Decode(0xFFF28293) // addi x5, x5, -1

			Expect(inst.Op).To(Equal(insts.OpADDI))
			Expect(inst.Imm).To(Equal(int64(-1)))
		})

		It("should decode add x7, x5, x6", func() {
			inst := decoder.Decode(0x006283B3)

			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.Rd).To(Equal(uint8(7)))
			Expect(inst.SrcRegs()).To(Equal([]uint8{5, 6}))
			Expect(inst.WritesRd()).To(BeTrue())
		})

		It("should decode sub x1, x2, x3", func() {
			inst := decoder.Decode(0x403100B3)

			Expect(inst.Op).To(Equal(insts.OpSUB))
			Expect(inst.SrcRegs()).To(Equal([]uint8{2, 3}))
		})

		It("should decode 64-bit shift amounts", func() {
			inst := decoder.Decode(0x02129293) // slli x5, x5, 33

			Expect(inst.Op).To(Equal(insts.OpSLLI))
			Expect(inst.Imm).To(Equal(int64(33)))
		})

		It("should decode srai x6, x7, 3", func() {
			inst := decoder.Decode(0x4033D313)

			Expect(inst.Op).To(Equal(insts.OpSRAI))
			Expect(inst.Imm).To(Equal(int64(3)))
		})

		It("should decode the word forms", func() {
			Expect(decoder.Decode(0xFFF3029B).Op).To(Equal(insts.OpADDIW)) // addiw x5, x6, -1
			Expect(decoder.Decode(0x007302BB).Op).To(Equal(insts.OpADDW))  // addw x5, x6, x7
		})

		It("should decode lui and auipc without source registers", func() {
			lui := decoder.Decode(0x123452B7) // lui x5, 0x12345
			Expect(lui.Op).To(Equal(insts.OpLUI))
			Expect(lui.Imm).To(Equal(int64(0x12345000)))
			Expect(lui.SrcRegs()).To(BeEmpty())

			auipc := decoder.Decode(0x00001317) // auipc x6, 1
			Expect(auipc.Op).To(Equal(insts.OpAUIPC))
			Expect(auipc.Imm).To(Equal(int64(0x1000)))
		})
	})

	Describe("Loads and stores", func() {
		It("should decode lw x10, 8(x2)", func() {
			inst := decoder.Decode(0x00812503)

			Expect(inst.Op).To(Equal(insts.OpLW))
			Expect(inst.Class).To(Equal(insts.ClassLoad))
			Expect(inst.Rd).To(Equal(uint8(10)))
			Expect(inst.Rs1).To(Equal(uint8(2)))
			Expect(inst.Imm).To(Equal(int64(8)))
		})

		It("should decode ld x11, -8(x2)", func() {
			inst := decoder.Decode(0xFF813583)

			Expect(inst.Op).To(Equal(insts.OpLD))
			Expect(inst.Imm).To(Equal(int64(-8)))
		})

		It("should decode sw x7, 0(x0)", func() {
			inst := decoder.Decode(0x00702023)

			Expect(inst.Op).To(Equal(insts.OpSW))
			Expect(inst.Class).To(Equal(insts.ClassStore))
			Expect(inst.SrcRegs()).To(Equal([]uint8{0, 7}))
			Expect(inst.WritesRd()).To(BeFalse())
		})

		It("should decode the split store immediate", func() {
			inst := decoder.Decode(0x0050B823) // sd x5, 16(x1)

			Expect(inst.Op).To(Equal(insts.OpSD))
			Expect(inst.Imm).To(Equal(int64(16)))
			Expect(inst.Rs1).To(Equal(uint8(1)))
			Expect(inst.Rs2).To(Equal(uint8(5)))
		})
	})

	Describe("Control transfer", func() {
		It("should decode a backward bne", func() {
			inst := decoder.Decode(0xFE029EE3) // bne x5, x0, -4

			Expect(inst.Op).To(Equal(insts.OpBNE))
			Expect(inst.Class).To(Equal(insts.ClassBranch))
			Expect(inst.Imm).To(Equal(int64(-4)))
		})

		It("should decode a forward beq", func() {
			inst := decoder.Decode(0x00208863) // beq x1, x2, 16

			Expect(inst.Op).To(Equal(insts.OpBEQ))
			Expect(inst.Imm).To(Equal(int64(16)))
		})

		It("should decode jal with a linking register", func() {
			inst := decoder.Decode(0x001000EF) // jal x1, 2048

			Expect(inst.Op).To(Equal(insts.OpJAL))
			Expect(inst.Class).To(Equal(insts.ClassJump))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Imm).To(Equal(int64(2048)))
		})

		It("should decode a backward jal", func() {
			inst := decoder.Decode(0xFF9FF06F) // jal x0, -8

			Expect(inst.Imm).To(Equal(int64(-8)))
		})

		It("should decode jalr x0, x1, 0", func() {
			inst := decoder.Decode(0x00008067)

			Expect(inst.Op).To(Equal(insts.OpJALR))
			Expect(inst.SrcRegs()).To(Equal([]uint8{1}))
		})
	})

	Describe("System instructions", func() {
		It("should decode csrrw x1, mscratch, x2", func() {
			inst := decoder.Decode(0x340110F3)

			Expect(inst.Op).To(Equal(insts.OpCSRRW))
			Expect(inst.Class).To(Equal(insts.ClassCSR))
			Expect(inst.CSR).To(Equal(uint16(0x340)))
			Expect(inst.SrcRegs()).To(Equal([]uint8{2}))
		})

		It("should keep CSR indices above 0x7FF unsigned", func() {
			inst := decoder.Decode(0x7C02E1F3) // csrrsi x3, 0x7c0, 5

			Expect(inst.Op).To(Equal(insts.OpCSRRSI))
			Expect(inst.CSR).To(Equal(uint16(0x7C0)))
			Expect(inst.Rs1).To(Equal(uint8(5)))
			Expect(inst.SrcRegs()).To(BeEmpty())
		})

		It("should decode ecall and ebreak", func() {
			Expect(decoder.Decode(0x00000073).Op).To(Equal(insts.OpECALL))
			Expect(decoder.Decode(0x00100073).Op).To(Equal(insts.OpEBREAK))
		})

		It("should treat the all-zero word as unknown", func() {
			inst := decoder.Decode(0x00000000)

			Expect(inst.Op).To(Equal(insts.OpUnknown))
			Expect(inst.Class).To(Equal(insts.ClassUnknown))
		})

		It("should reject mret as unknown", func() {
			Expect(decoder.Decode(0x30200073).Op).To(Equal(insts.OpUnknown))
		})
	})

	Describe("PE command instructions", func() {
		It("should decode pe.stream s1, x10, x11 with 4-byte elements", func() {
			inst := decoder.Decode(0x04B5008B)

			Expect(inst.Op).To(Equal(insts.OpPEStream))
			Expect(inst.Class).To(Equal(insts.ClassPE))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Funct7).To(Equal(uint8(2)))
			Expect(inst.SrcRegs()).To(Equal([]uint8{10, 11}))
		})

		It("should decode pe.map and pe.consume without register reads", func() {
			m := decoder.Decode(0x0010110B) // pe.map s2, s0, s1, add
			Expect(m.Op).To(Equal(insts.OpPEMap))
			Expect(m.SrcRegs()).To(BeEmpty())

			c := decoder.Decode(0x0201218B) // pe.consume 3, s2, s0, sum
			Expect(c.Op).To(Equal(insts.OpPEConsume))
			Expect(c.Rd).To(Equal(uint8(3)))
			Expect(c.Funct7).To(Equal(uint8(1)))
		})

		It("should decode pe.issue", func() {
			Expect(decoder.Decode(0x0000300B).Op).To(Equal(insts.OpPEIssue))
		})

		It("should reject stream registers out of range", func() {
			// pe.stream s9, x10, x11 (rd=9)
			Expect(decoder.Decode(0x04B5048B).Op).To(Equal(insts.OpUnknown))
		})
	})

	It("should name operations", func() {
		Expect(insts.OpBNE.String()).To(Equal("bne"))
		Expect(insts.OpPEIssue.String()).To(Equal("pe.issue"))
	})
})
