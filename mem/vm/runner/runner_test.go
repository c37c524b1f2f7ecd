package runner_test

import (
	"bytes"
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tlbsim/mem/vm"
	"github.com/sarchlab/tlbsim/mem/vm/addresstranslator"
	"github.com/sarchlab/tlbsim/mem/vm/pagetable"
	"github.com/sarchlab/tlbsim/mem/vm/pattern"
	"github.com/sarchlab/tlbsim/mem/vm/runner"
	"github.com/sarchlab/tlbsim/sim/hooking"
)

var _ = Describe("Runner", func() {
	var (
		layout  vm.Layout
		a, b, c uint64
		table   *pagetable.Table
	)

	BeforeEach(func() {
		layout = vm.MustNewLayout(2, 2, 8)
		a, b, c = 0x000, 0x100, 0x400

		var err error
		table, err = pagetable.FromEntries(layout, []pagetable.Entry{
			{Key: vm.AddressKey{Level1: 0, Level2: 0}, Frame: 1},
			{Key: vm.AddressKey{Level1: 0, Level2: 1}, Frame: 2},
			{Key: vm.AddressKey{Level1: 1, Level2: 0}, Frame: 3},
		})
		Expect(err).NotTo(HaveOccurred())
	})

	build := func(capacity int) *runner.Runner {
		r, err := runner.MakeBuilder().
			WithLayout(layout).
			WithPageTable(table).
			WithTLBCapacity(capacity).
			Build("Runner")
		Expect(err).NotTo(HaveOccurred())

		return r
	}

	It("should keep the recently hit page over the older one", func() {
		var outcomes []vm.Outcome

		r, err := runner.MakeBuilder().
			WithLayout(layout).
			WithPageTable(table).
			WithTLBCapacity(2).
			WithTranslationHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
				outcomes = append(outcomes,
					ctx.Item.(addresstranslator.Result).Outcome)
			})).
			Build("Runner")
		Expect(err).NotTo(HaveOccurred())

		stats, err := r.Run([]uint64{a, b, a, c, a})

		Expect(err).NotTo(HaveOccurred())
		Expect(outcomes).To(Equal([]vm.Outcome{
			vm.MissResolved, vm.MissResolved, vm.Hit, vm.MissResolved, vm.Hit,
		}))
		Expect(stats).To(Equal(runner.Statistics{
			TotalAccesses:  5,
			Hits:           2,
			Misses:         3,
			Evictions:      1,
			HitRatePercent: 40,
		}))
	})

	It("should report a zero hit rate for an empty pattern", func() {
		stats, err := build(2).Run(nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(stats.TotalAccesses).To(BeZero())
		Expect(stats.HitRatePercent).To(BeZero())
	})

	It("should count faults as misses and separately", func() {
		unmapped := uint64(0xF00)

		stats, err := build(2).Run([]uint64{unmapped, a, unmapped, a})

		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Hits).To(Equal(uint64(1)))
		Expect(stats.Misses).To(Equal(uint64(3)))
		Expect(stats.Faults).To(Equal(uint64(2)))
		Expect(stats.ResolvedMisses()).To(Equal(uint64(1)))
		Expect(stats.HitRatePercent).To(Equal(25.0))
	})

	It("should start every run with an empty TLB", func() {
		r := build(2)

		first, _ := r.Run([]uint64{a, a})
		second, _ := r.Run([]uint64{a, a})

		Expect(second).To(Equal(first))
		Expect(second.Hits).To(Equal(uint64(1)))
	})

	It("should stop on wide addresses in strict mode", func() {
		r, err := runner.MakeBuilder().
			WithLayout(layout).
			WithPageTable(table).
			WithStrictAddresses(true).
			Build("Runner")
		Expect(err).NotTo(HaveOccurred())

		_, err = r.Run([]uint64{a, 0x10000})

		Expect(errors.Is(err, vm.ErrAddressOutOfRange)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("access 1"))
	})

	It("should mask wide addresses by default", func() {
		stats, err := build(2).Run([]uint64{a, 0x10000 | a})

		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Hits).To(Equal(uint64(1)))
	})

	Context("with a full page table", func() {
		BeforeEach(func() {
			var err error
			table, err = pagetable.Full(layout,
				func(k vm.AddressKey) vm.FrameNumber {
					return vm.FrameNumber(k.Level1<<2 | k.Level2)
				})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should never hit when sweeping more pages than the TLB holds", func() {
			stats, err := build(8).Run(pattern.Sequential(layout, 3))

			Expect(err).NotTo(HaveOccurred())
			Expect(stats.TotalAccesses).To(Equal(uint64(48)))
			Expect(stats.Hits).To(BeZero())
			Expect(stats.Misses).To(Equal(uint64(48)))
			Expect(stats.Evictions).To(Equal(uint64(40)))
		})

		It("should miss only on the first pass over a small subset", func() {
			stats, err := build(3).Run(pattern.Repeated(layout, 3, 5))

			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Misses).To(Equal(uint64(3)))
			Expect(stats.Hits).To(Equal(uint64(12)))
			Expect(stats.HitRatePercent).To(Equal(80.0))
			Expect(stats.Evictions).To(BeZero())
		})
	})

	Context("running several patterns", func() {
		It("should return results in pattern order", func() {
			results, err := build(2).RunAll(context.Background(),
				[]runner.NamedPattern{
					{Name: "scenario", Addresses: []uint64{a, b, a, c, a}},
					{Name: "empty"},
					{Name: "same", Addresses: []uint64{c, c, c, c}},
				})

			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(results[0].Name).To(Equal("scenario"))
			Expect(results[0].HitRatePercent).To(Equal(40.0))
			Expect(results[1].TotalAccesses).To(BeZero())
			Expect(results[2].HitRatePercent).To(Equal(75.0))
		})

		It("should skip patterns once the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := build(2).RunAll(ctx, []runner.NamedPattern{
				{Name: "p", Addresses: []uint64{a}},
			})

			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		})
	})
})

var _ = Describe("Builder", func() {
	It("should fail fast on bad settings", func() {
		layout := vm.MustNewLayout(2, 2, 8)
		table, _ := pagetable.New(layout)

		builders := []runner.Builder{
			runner.MakeBuilder().WithPageTable(table),
			runner.MakeBuilder().WithLayout(layout),
			runner.MakeBuilder().WithLayout(layout).WithPageTable(table).
				WithTLBCapacity(0),
		}

		for _, b := range builders {
			_, err := b.Build("Runner")
			Expect(errors.Is(err, vm.ErrInvalidConfig)).To(BeTrue())
		}
	})

	It("should reject a nil page table pointer", func() {
		var table *pagetable.Table

		_, err := runner.MakeBuilder().
			WithLayout(vm.MustNewLayout(2, 2, 8)).
			WithPageTable(table).
			Build("Runner")

		Expect(errors.Is(err, vm.ErrInvalidConfig)).To(BeTrue())
	})

	It("should reject a page table built for another layout", func() {
		table, _ := pagetable.New(vm.MustNewLayout(2, 2, 12))

		_, err := runner.MakeBuilder().
			WithLayout(vm.MustNewLayout(2, 2, 8)).
			WithPageTable(table).
			Build("Runner")

		Expect(errors.Is(err, vm.ErrInvalidConfig)).To(BeTrue())
	})
})

var _ = Describe("Report", func() {
	It("should encode as YAML", func() {
		report := runner.Report{
			Layout:       "2/2/8",
			TLBCapacity:  2,
			MappedPages:  3,
			TotalPages:   16,
			FaultPolicy:  "faults-count-as-misses",
			AddressCheck: "mask",
			Runs: []runner.NamedStatistics{{
				Name: "scenario",
				Statistics: runner.Statistics{
					TotalAccesses: 5, Hits: 2, Misses: 3,
					HitRatePercent: 40,
				},
			}},
		}

		buf := new(bytes.Buffer)
		Expect(report.WriteYAML(buf)).To(Succeed())

		Expect(buf.String()).To(ContainSubstring("layout: 2/2/8"))
		Expect(buf.String()).To(ContainSubstring("  - name: scenario"))
		Expect(buf.String()).To(ContainSubstring("    hit_rate_percent: 40"))
	})

	It("should print a summary", func() {
		buf := new(bytes.Buffer)

		err := runner.WriteSummary(buf, runner.NamedStatistics{
			Name: "Repeated",
			Statistics: runner.Statistics{
				TotalAccesses: 30, Hits: 27, Misses: 3,
				HitRatePercent: 90,
			},
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("TLB Hit Rate: 90.00%"))
	})
})
