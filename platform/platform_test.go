package platform_test

import (
	"context"
	"encoding/binary"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mur/config"
	"github.com/sarchlab/mur/emu"
	"github.com/sarchlab/mur/loader"
	"github.com/sarchlab/mur/platform"
	"github.com/sarchlab/mur/timing/core"
)

func rawImage(words ...uint32) *loader.Image {
	data := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(data[4*i:], w)
	}
	return &loader.Image{Format: loader.FormatRaw, Data: data}
}

var _ = Describe("Platform", func() {
	var cfg *config.Config

	BeforeEach(func() {
		cfg = config.DefaultConfig()
		cfg.RAMBase = 0
		cfg.RAMSize = 0x10000
		cfg.MaxCycles = 1_000_000
	})

	It("should reject an invalid config", func() {
		cfg.Harts = 0

		_, err := platform.New(cfg, rawImage(0x00000013))

		Expect(err).To(MatchError(ContainSubstring("harts must be >= 1")))
	})

	It("should reject an image larger than RAM", func() {
		cfg.RAMSize = 4

		_, err := platform.New(cfg, rawImage(0x00000013, 0x00000013))

		Expect(err).To(MatchError(platform.ErrImageTooLarge))
	})

	It("should give every hart its id and the entry point", func() {
		cfg.Harts = 3
		img := rawImage(
			0x00000000, // halt marker, skipped by the entry point
			0xF1402273, // csrrs x4, mhartid, x0
		)
		img.Format = loader.FormatELF
		img.Origin = 0x8000_0000
		img.Entry = 0x8000_0004

		p, err := platform.New(cfg, img)
		Expect(err).NotTo(HaveOccurred())

		results, err := p.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
		for i, r := range results {
			Expect(r.Hart).To(Equal(i))
			Expect(r.Reason).To(Equal(core.ExitHaltMarker))
			Expect(r.Success()).To(BeTrue())
			Expect(p.Cores()[i].Pipeline.ReadReg(4)).To(Equal(uint64(i)))
		}
	})

	It("should share the PE between harts", func() {
		cfg.Harts = 2
		p, err := platform.New(cfg, rawImage(
			0x10000513, // addi x10, x0, 0x100
			0x00400593, // addi x11, x0, 4
			0x04B5008B, // pe.stream s1, x10, x11, 2
			0x0010910B, // pe.map s2, s1, s1, add
			0x0201218B, // pe.consume 3, s2, s0, sum
			0x0000300B, // pe.issue
			0x7C002673, // csrrs x12, pepending, x0
			0xFE060EE3, // beq x12, x0, -4
			0x7CB026F3, // csrrs x13, peret3, x0
		))
		Expect(err).NotTo(HaveOccurred())
		for i := uint64(0); i < 4; i++ {
			p.Bus().Write32(0x100+4*i, uint32(i+1))
		}

		results, err := p.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		for _, r := range results {
			Expect(r.Reason).To(Equal(core.ExitHaltMarker))
			Expect(r.Stats.Interrupts).To(Equal(uint64(1)))
		}
		for _, c := range p.Cores() {
			Expect(c.Pipeline.ReadReg(13)).To(Equal(uint64(20)))
		}
		Expect(p.PE().Completed()).To(Equal(uint64(2)))
	})

	It("should stop every hart on its cycle budget", func() {
		cfg.Harts = 2
		cfg.MaxCycles = 100
		p, err := platform.New(cfg, rawImage(0x0000006F)) // jal x0, 0
		Expect(err).NotTo(HaveOccurred())

		results, err := p.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		for _, r := range results {
			Expect(r.Reason).To(Equal(core.ExitBudget))
			Expect(r.Stats.Cycles).To(Equal(uint64(100)))
		}
	})

	It("should return the fault of a failing hart", func() {
		p, err := platform.New(cfg, rawImage(
			0x000102B7, // lui x5, 0x10
			0x0002B303, // ld x6, 0(x5)
			0x00000013, // nop
			0x00000013, // nop
		))
		Expect(err).NotTo(HaveOccurred())

		results, err := p.Run(context.Background())

		exc, ok := emu.AsException(err)
		Expect(ok).To(BeTrue())
		Expect(exc.Kind).To(Equal(emu.KindLoadAccessFault))
		Expect(results[0].Reason).To(Equal(core.ExitFault))
		Expect(results[0].Success()).To(BeFalse())
	})

	It("should stop when the context is canceled", func() {
		cfg.MaxCycles = 0
		p, err := platform.New(cfg, rawImage(0x0000006F)) // jal x0, 0
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		results, err := p.Run(ctx)

		Expect(err).To(MatchError(context.Canceled))
		Expect(results[0].Reason).To(Equal(core.ExitCanceled))
	})
})
