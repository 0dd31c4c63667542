package pe_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mur/emu"
	"github.com/sarchlab/mur/pe"
)

// countingMemory counts loads and can hold them until its gate opens.
type countingMemory struct {
	*emu.Memory

	mu    sync.Mutex
	loads int
	gate  chan struct{}
}

func newCountingMemory() *countingMemory {
	gate := make(chan struct{})
	close(gate)

	return &countingMemory{
		Memory: emu.NewMemory(0, 4096, nil),
		gate:   gate,
	}
}

func (m *countingMemory) Load(addr uint64, size emu.Size) (uint64, error) {
	m.mu.Lock()
	gate := m.gate
	m.loads++
	m.mu.Unlock()

	<-gate

	return m.Memory.Load(addr, size)
}

func (m *countingMemory) Loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.loads
}

func (m *countingMemory) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gate = make(chan struct{})
}

func (m *countingMemory) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	close(m.gate)
}

var _ = Describe("Stream", func() {
	var (
		memory *countingMemory
		desc   pe.StreamDescriptor
	)

	BeforeEach(func() {
		memory = newCountingMemory()
		for i := uint64(0); i < 8; i++ {
			memory.Write32(0x100+4*i, uint32(10*(i+1)))
		}
		desc = pe.StreamDescriptor{Register: 1, Base: 0x100, Count: 8, ElemSize: emu.Word}
	})

	It("should compute element addresses", func() {
		Expect(desc.Addr(0)).To(Equal(uint64(0x100)))
		Expect(desc.Addr(3)).To(Equal(uint64(0x10C)))
	})

	It("should materialize only the requested prefix", func() {
		s, err := pe.NewStream(desc, memory, 2)

		Expect(err).NotTo(HaveOccurred())
		Expect(s.Materialized()).To(Equal(2))
		Expect(memory.Loads()).To(Equal(2))
	})

	It("should materialize elements on demand", func() {
		s, _ := pe.NewStream(desc, memory, 0)

		v, err := s.Element(4)

		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint64(50)))
		Expect(s.Materialized()).To(Equal(5))

		_, _ = s.Element(2)
		Expect(memory.Loads()).To(Equal(5))
	})

	It("should cap the prefix at the element count", func() {
		desc.Count = 3

		s, err := pe.NewStream(desc, memory, 16)

		Expect(err).NotTo(HaveOccurred())
		Expect(s.Materialized()).To(Equal(3))
	})

	It("should materialize every element when read in order", func() {
		s, _ := pe.NewStream(desc, memory, 1)

		for i := uint64(0); i < desc.Count; i++ {
			_, err := s.Element(i)
			Expect(err).NotTo(HaveOccurred())
		}

		Expect(s.Materialized()).To(Equal(8))
		Expect(memory.Loads()).To(Equal(8))
	})

	It("should report reads past the end", func() {
		s, _ := pe.NewStream(desc, memory, 0)

		_, err := s.Element(8)

		Expect(err).To(MatchError(pe.ErrStreamExhausted))
	})

	It("should wrap memory faults", func() {
		desc.Base = 0xFF8

		s, err := pe.NewStream(desc, memory, 2)
		Expect(err).NotTo(HaveOccurred())

		_, err = s.Element(2)

		exc, ok := emu.AsException(err)
		Expect(ok).To(BeTrue())
		Expect(exc.Kind).To(Equal(emu.KindLoadAccessFault))
		Expect(exc.Value).To(Equal(uint64(0x1000)))
	})
})
