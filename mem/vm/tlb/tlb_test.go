package tlb

import (
	"errors"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tlbsim/mem/vm"
	"github.com/sarchlab/tlbsim/sim/hooking"
)

func key(l1, l2 uint64) vm.AddressKey {
	return vm.AddressKey{Level1: l1, Level2: l2}
}

var _ = Describe("TLB", func() {
	var (
		tlb     *TLB
		a, b, c vm.AddressKey
	)

	BeforeEach(func() {
		var err error
		tlb, err = New(2)
		Expect(err).NotTo(HaveOccurred())

		a, b, c = key(0, 0), key(0, 1), key(1, 0)
	})

	It("should reject non-positive capacity", func() {
		for _, n := range []int{0, -1} {
			_, err := New(n)
			Expect(errors.Is(err, vm.ErrInvalidConfig)).To(BeTrue())
		}
	})

	It("should miss on an empty TLB", func() {
		_, found := tlb.Get(a)

		Expect(found).To(BeFalse())
		Expect(tlb.Len()).To(Equal(0))
	})

	It("should return what was put", func() {
		tlb.Put(a, 5)

		frame, found := tlb.Get(a)

		Expect(found).To(BeTrue())
		Expect(frame).To(Equal(vm.FrameNumber(5)))
	})

	It("should overwrite an existing page without evicting", func() {
		tlb.Put(a, 1)
		tlb.Put(b, 2)

		_, didEvict := tlb.Put(a, 9)
		frame, _ := tlb.Get(a)

		Expect(didEvict).To(BeFalse())
		Expect(tlb.Len()).To(Equal(2))
		Expect(frame).To(Equal(vm.FrameNumber(9)))
	})

	It("should evict the least recently put page", func() {
		tlb.Put(a, 1)
		tlb.Put(b, 2)

		evicted, didEvict := tlb.Put(c, 3)

		Expect(didEvict).To(BeTrue())
		Expect(evicted).To(Equal(a))
		Expect(tlb.Keys()).To(Equal([]vm.AddressKey{b, c}))
	})

	It("should promote a page on hit", func() {
		tlb.Put(a, 1)
		tlb.Put(b, 2)
		tlb.Get(a)

		evicted, _ := tlb.Put(c, 3)

		Expect(evicted).To(Equal(b))
		Expect(tlb.Contains(a)).To(BeTrue())
		Expect(tlb.Contains(b)).To(BeFalse())
	})

	It("should promote a page on overwrite", func() {
		tlb.Put(a, 1)
		tlb.Put(b, 2)
		tlb.Put(a, 1)

		evicted, _ := tlb.Put(c, 3)

		Expect(evicted).To(Equal(b))
	})

	It("should not promote a page on Contains", func() {
		tlb.Put(a, 1)
		tlb.Put(b, 2)
		tlb.Contains(a)

		evicted, _ := tlb.Put(c, 3)

		Expect(evicted).To(Equal(a))
	})

	It("should be empty after reset", func() {
		tlb.Put(a, 1)
		tlb.Put(b, 2)

		tlb.Reset()

		Expect(tlb.Len()).To(Equal(0))
		Expect(tlb.Contains(a)).To(BeFalse())
		Expect(tlb.Capacity()).To(Equal(2))
	})

	It("should never exceed its capacity", func() {
		big, err := New(16)
		Expect(err).NotTo(HaveOccurred())

		rng := rand.New(rand.NewSource(1))
		for i := 0; i < 1000; i++ {
			k := key(uint64(rng.Intn(8)), uint64(rng.Intn(8)))
			if rng.Intn(2) == 0 {
				big.Get(k)
			} else {
				big.Put(k, vm.FrameNumber(i))
			}

			Expect(big.Len()).To(BeNumerically("<=", 16))
		}
	})

	It("should evict exactly the least recently accessed page", func() {
		lru, err := New(4)
		Expect(err).NotTo(HaveOccurred())

		keys := []vm.AddressKey{key(0, 0), key(0, 1), key(0, 2), key(0, 3)}
		for i, k := range keys {
			lru.Put(k, vm.FrameNumber(i))
		}

		lru.Get(keys[0])
		lru.Get(keys[2])
		lru.Put(keys[1], 7)

		evicted, _ := lru.Put(key(1, 0), 9)

		Expect(evicted).To(Equal(keys[3]))
		Expect(lru.Keys()).To(Equal([]vm.AddressKey{
			keys[0], keys[2], keys[1], key(1, 0),
		}))
	})

	Context("with hooks", func() {
		var counter *hooking.PosCountHook

		BeforeEach(func() {
			counter = hooking.NewPosCountHook()
			tlb.AcceptHook(counter)
		})

		It("should report hits, misses, inserts and evictions", func() {
			tlb.Get(a)
			tlb.Put(a, 1)
			tlb.Put(b, 2)
			tlb.Get(a)
			tlb.Put(c, 3)

			Expect(counter.Count(HookPosMiss)).To(Equal(uint64(1)))
			Expect(counter.Count(HookPosHit)).To(Equal(uint64(1)))
			Expect(counter.Count(HookPosInsert)).To(Equal(uint64(3)))
			Expect(counter.Count(HookPosEvict)).To(Equal(uint64(1)))
		})

		It("should name the evicted page", func() {
			var evicted []any
			tlb.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
				if ctx.Pos == HookPosEvict {
					evicted = append(evicted, ctx.Item)
				}
			}))

			tlb.Put(a, 1)
			tlb.Put(b, 2)
			tlb.Put(c, 3)

			Expect(evicted).To(Equal([]any{a}))
		})
	})
})

var _ = Describe("Builder", func() {
	It("should attach hooks to the TLBs it builds", func() {
		counter := hooking.NewPosCountHook()

		t, err := MakeBuilder().
			WithNumEntries(1).
			WithHook(counter).
			Build("L1TLB")
		Expect(err).NotTo(HaveOccurred())

		t.Put(key(0, 0), 1)
		t.Put(key(0, 1), 2)

		Expect(t.Name()).To(Equal("L1TLB"))
		Expect(t.NumHooks()).To(Equal(1))
		Expect(counter.Count(HookPosEvict)).To(Equal(uint64(1)))
	})
})
