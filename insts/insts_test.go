package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mur/insts"
)

var _ = Describe("Insts Package", func() {
	It("should have an Instruction type", func() {
		var i insts.Instruction
		Expect(i).To(BeZero())
	})

	It("should have a Decoder type", func() {
		decoder := insts.NewDecoder()
		Expect(decoder).ToNot(BeNil())
	})

	It("should name registers by ABI convention", func() {
		Expect(insts.RegName(0)).To(Equal("zero"))
		Expect(insts.RegName(2)).To(Equal("sp"))
		Expect(insts.RegName(10)).To(Equal("a0"))
		Expect(insts.RegName(31)).To(Equal("t6"))
	})
})
