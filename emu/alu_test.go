package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mur/emu"
	"github.com/sarchlab/mur/insts"
)

var _ = Describe("ALU", func() {
	var (
		alu     *emu.ALU
		decoder *insts.Decoder
	)

	BeforeEach(func() {
		alu = emu.NewALU()
		decoder = insts.NewDecoder()
	})

	exec := func(word uint32, pc, rs1, rs2 uint64) uint64 {
		return alu.Execute(decoder.Decode(word), pc, rs1, rs2)
	}

	It("should add an immediate", func() {
		Expect(exec(0x00A00293, 0, 0, 0)).To(Equal(uint64(10))) // addi x5, x0, 10
	})

	It("should wrap on add", func() {
		Expect(exec(0x006283B3, 0, ^uint64(0), 2)).To(Equal(uint64(1))) // add x7, x5, x6
	})

	It("should subtract", func() {
		Expect(exec(0x403100B3, 0, 5, 7)).To(Equal(^uint64(1))) // sub x1, x2, x3
	})

	It("should compare signed and unsigned", func() {
		Expect(exec(0x0020A1B3, 0, ^uint64(0), 1)).To(Equal(uint64(1))) // slt x3, x1, x2
		Expect(exec(0xFFF0B193, 0, 5, 0)).To(Equal(uint64(1)))          // sltiu x3, x1, -1
	})

	It("should shift arithmetically", func() {
		Expect(exec(0x4020D1B3, 0, 0x8000000000000000, 63)).To(Equal(^uint64(0))) // sra x3, x1, x2
		Expect(exec(0x4033D313, 0, 0xF0, 0)).To(Equal(uint64(0x1E)))              // srai x6, x7, 3
	})

	It("should shift left by a 6-bit amount", func() {
		Expect(exec(0x02129293, 0, 1, 0)).To(Equal(uint64(1) << 33)) // slli x5, x5, 33
	})

	It("should sign-extend the word forms", func() {
		Expect(exec(0xFFF3029B, 0, 0, 0)).To(Equal(^uint64(0)))                // addiw x5, x6, -1
		Expect(exec(0x007302BB, 0, 0x7FFFFFFF, 1)).To(Equal(uint64(0xFFFFFFFF80000000))) // addw x5, x6, x7
		Expect(exec(0x402081BB, 0, 0, 1)).To(Equal(^uint64(0)))                // subw x3, x1, x2
		Expect(exec(0x4010D19B, 0, 0x80000000, 0)).To(Equal(uint64(0xFFFFFFFFC0000000))) // sraiw x3, x1, 1
	})

	It("should compute lui and auipc", func() {
		Expect(exec(0x123452B7, 0x80, 0, 0)).To(Equal(uint64(0x12345000))) // lui x5, 0x12345
		Expect(exec(0x00001317, 0x80, 0, 0)).To(Equal(uint64(0x1080)))     // auipc x6, 1
	})
})

var _ = Describe("BranchUnit", func() {
	var (
		branchUnit *emu.BranchUnit
		decoder    *insts.Decoder
	)

	BeforeEach(func() {
		branchUnit = emu.NewBranchUnit()
		decoder = insts.NewDecoder()
	})

	It("should evaluate bne", func() {
		inst := decoder.Decode(0xFE029EE3) // bne x5, x0, -4

		Expect(branchUnit.Taken(inst, 3, 0)).To(BeTrue())
		Expect(branchUnit.Taken(inst, 0, 0)).To(BeFalse())
		Expect(branchUnit.Target(inst, 0x108, 0)).To(Equal(uint64(0x104)))
	})

	It("should compare signed on blt and unsigned on bgeu", func() {
		blt := decoder.Decode(0xFE20C8E3)  // blt x1, x2, -16
		bgeu := decoder.Decode(0x0020F463) // bgeu x1, x2, 8

		Expect(branchUnit.Taken(blt, ^uint64(0), 0)).To(BeTrue())
		Expect(branchUnit.Taken(bgeu, ^uint64(0), 0)).To(BeTrue())
	})

	It("should clear the low bit of jalr targets", func() {
		inst := decoder.Decode(0x003280E7) // jalr x1, x5, 3

		Expect(branchUnit.Target(inst, 0x40, 0x100)).To(Equal(uint64(0x102)))
		Expect(branchUnit.Link(0x40)).To(Equal(uint64(0x44)))
	})

	It("should compute pc-relative jal targets", func() {
		inst := decoder.Decode(0x001000EF) // jal x1, 2048

		Expect(branchUnit.Target(inst, 0x1000, 0)).To(Equal(uint64(0x1800)))
	})
})

var _ = Describe("LoadStoreUnit", func() {
	var (
		memory  *emu.Memory
		lsu     *emu.LoadStoreUnit
		decoder *insts.Decoder
	)

	BeforeEach(func() {
		memory = emu.NewMemory(0, 64, nil)
		lsu = emu.NewLoadStoreUnit(memory)
		decoder = insts.NewDecoder()
		memory.Write64(0, 0xFFFFFFFF_FFFF_FF80)
	})

	It("should sign-extend lb and lh", func() {
		v, err := lsu.Load(decoder.Decode(0x00008283), 0) // lb x5, 0(x1)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint64(0xFFFFFFFFFFFFFF80)))

		v, _ = lsu.Load(decoder.Decode(0x00009283), 0) // lh x5, 0(x1)
		Expect(v).To(Equal(^uint64(0x7F)))
	})

	It("should zero-extend lbu and lwu", func() {
		v, _ := lsu.Load(decoder.Decode(0x0000C283), 0) // lbu x5, 0(x1)
		Expect(v).To(Equal(uint64(0x80)))

		v, _ = lsu.Load(decoder.Decode(0x0000E283), 0) // lwu x5, 0(x1)
		Expect(v).To(Equal(uint64(0xFFFFFF80)))
	})

	It("should store only the access width", func() {
		inst := decoder.Decode(0x00509223) // sh x5, 4(x1)
		addr := lsu.EffectiveAddress(inst, 8)

		Expect(lsu.Store(inst, addr, 0x12345678)).To(Succeed())
		Expect(memory.Read32(12)).To(Equal(uint32(0x5678)))
	})

	It("should propagate bus faults", func() {
		_, err := lsu.Load(decoder.Decode(0x00812503), 100) // lw x10, 8(x2)

		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("RegFile", func() {
	It("should hard-wire x0 to zero", func() {
		regFile := emu.NewRegFile(0x100)
		regFile.WriteReg(0, 42)

		Expect(regFile.ReadReg(0)).To(BeZero())
		Expect(regFile.X[0]).To(BeZero())
	})

	It("should initialise the stack pointer", func() {
		regFile := emu.NewRegFile(0x8FFFFFFF)

		Expect(regFile.ReadReg(2)).To(Equal(uint64(0x8FFFFFFF)))
	})

	It("should snapshot registers", func() {
		regFile := emu.NewRegFile(0)
		regFile.WriteReg(7, 30)
		snap := regFile.Snapshot()
		regFile.WriteReg(7, 31)

		Expect(snap[7]).To(Equal(uint64(30)))
	})
})
