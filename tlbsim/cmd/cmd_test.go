package cmd

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tlbsim/config"
	"github.com/sarchlab/tlbsim/mem/vm"
)

// pages (0, 0), (0, 1) and (0, 2) of a 2/2/8 layout, accessed as A B A C A.
const abaca = "0x000,0x100,0x000,0x200,0x000"

func explicitConfig() config.Config {
	cfg := config.Default()
	cfg.TLBCapacity = 2
	cfg.PageTable = config.PageTable{
		Mode: config.PageTableExplicit,
		Entries: []config.Mapping{
			{Level1: 0, Level2: 0, Frame: 5},
			{Level1: 0, Level2: 1, Frame: 6},
			{Level1: 0, Level2: 2, Frame: 7},
		},
	}
	cfg.Seed = 1

	return cfg
}

var _ = Describe("simulate", func() {
	var (
		out    *bytes.Buffer
		logBuf *bytes.Buffer
		logger *log.Logger
	)

	BeforeEach(func() {
		out = new(bytes.Buffer)
		logBuf = new(bytes.Buffer)
		logger = log.New(logBuf, "", 0)
	})

	It("should report hits, misses and evictions of the given addresses", func() {
		opts := runOptions{addresses: abaca}

		err := simulate(context.Background(), explicitConfig(), opts, out, logger)

		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(ContainSubstring("3 of 16 pages mapped"))
		Expect(out.String()).To(ContainSubstring("Total Accesses: 5"))
		Expect(out.String()).To(ContainSubstring("TLB Hits: 2"))
		Expect(out.String()).To(ContainSubstring("TLB Misses: 3 (page faults: 0)"))
		Expect(out.String()).To(ContainSubstring("TLB Evictions: 1"))
		Expect(out.String()).To(ContainSubstring("TLB Hit Rate: 40.00%"))
		Expect(logBuf.Len()).To(BeZero())
	})

	It("should count faults on unmapped pages", func() {
		opts := runOptions{addresses: "0x300,0x300"}

		err := simulate(context.Background(), explicitConfig(), opts, out, logger)

		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(ContainSubstring("TLB Misses: 2 (page faults: 2)"))
		Expect(out.String()).To(ContainSubstring("TLB Hit Rate: 0.00%"))
	})

	It("should log every translation when verbose", func() {
		opts := runOptions{addresses: abaca + ",0x300", verbose: true}

		err := simulate(context.Background(), explicitConfig(), opts, out, logger)

		Expect(err).NotTo(HaveOccurred())
		Expect(logBuf.String()).To(ContainSubstring(
			"TLB hit for virtual page (0, 0)"))
		Expect(logBuf.String()).To(ContainSubstring(
			"TLB miss, page table maps virtual page (0, 1) to frame 6"))
		Expect(logBuf.String()).To(ContainSubstring(
			"page fault, virtual page (0, 3) is not in the page table"))
		Expect(logBuf.String()).To(ContainSubstring("TLBEvict"))
	})

	It("should run every configured pattern", func() {
		cfg := config.Default()
		cfg.Seed = 42
		cfg.Parallel = true

		err := simulate(context.Background(), cfg, runOptions{}, out, logger)

		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(ContainSubstring("Sequential\n"))
		Expect(out.String()).To(ContainSubstring("Random\n"))
		Expect(out.String()).To(ContainSubstring("Repeated\n"))
		Expect(out.String()).To(ContainSubstring("Total Accesses: 50"))
	})

	It("should reject addresses wider than the layout", func() {
		cfg := explicitConfig()
		cfg.AddressPolicy = config.AddressPolicyReject
		opts := runOptions{addresses: "0x1000"}

		err := simulate(context.Background(), cfg, opts, out, logger)

		Expect(err).To(MatchError(vm.ErrAddressOutOfRange))
	})

	It("should reject an invalid configuration", func() {
		cfg := explicitConfig()
		cfg.TLBCapacity = 0

		err := simulate(context.Background(), cfg, runOptions{}, out, logger)

		Expect(err).To(MatchError(vm.ErrInvalidConfig))
	})

	It("should write the report to stdout", func() {
		opts := runOptions{addresses: abaca, reportPath: "-"}

		err := simulate(context.Background(), explicitConfig(), opts, out, logger)

		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(ContainSubstring("layout: 2/2/8"))
		Expect(out.String()).To(ContainSubstring("tlb_capacity: 2"))
		Expect(out.String()).To(ContainSubstring("- name: Addresses"))
		Expect(out.String()).To(ContainSubstring("hit_rate_percent: 40"))
	})

	It("should write the report to a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "report.yaml")
		opts := runOptions{addresses: abaca, reportPath: path}

		err := simulate(context.Background(), explicitConfig(), opts, out, logger)

		Expect(err).NotTo(HaveOccurred())

		content, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(ContainSubstring("evictions: 1"))
	})

	It("should record a trace that the trace command can read", func() {
		base := filepath.Join(GinkgoT().TempDir(), "trace")
		cfg := explicitConfig()
		cfg.Trace = config.Trace{Enabled: true, Path: base}
		opts := runOptions{addresses: abaca + ",0x300"}

		err := simulate(context.Background(), cfg, opts, out, logger)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(ContainSubstring("Recording trace to " + base))

		traceOut := new(bytes.Buffer)
		rootCmd.SetOut(traceOut)
		rootCmd.SetArgs([]string{
			"trace", base + ".sqlite3", "--run", "",
			"--outcome", "fault", "--limit", "0", "--offset", "0",
		})
		defer rootCmd.SetOut(nil)

		Expect(rootCmd.Execute()).To(Succeed())
		Expect(traceOut.String()).To(ContainSubstring("tlbsim.Addresses"))
		Expect(traceOut.String()).To(ContainSubstring("0x300"))
		Expect(traceOut.String()).To(ContainSubstring("1 of 1 accesses, from #1"))

		traceOut.Reset()
		rootCmd.SetArgs([]string{
			"trace", base + ".sqlite3", "--run", "tlbsim.Addresses",
			"--outcome", "", "--limit", "1", "--offset", "3",
		})

		Expect(rootCmd.Execute()).To(Succeed())
		Expect(traceOut.String()).To(ContainSubstring("0x200"))
		Expect(traceOut.String()).NotTo(ContainSubstring("0x300"))
		Expect(traceOut.String()).To(ContainSubstring("1 of 6 accesses, from #4"))
	})
})

var _ = Describe("decode", func() {
	It("should split addresses with the layout from the flags", func() {
		out := new(bytes.Buffer)
		rootCmd.SetOut(out)
		rootCmd.SetArgs([]string{
			"decode", "--env-file", "", "--level1-bits", "4",
			"0x1234,0xabc",
		})
		defer rootCmd.SetOut(nil)

		Expect(rootCmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring(
			"0x1234: level1=4 level2=2 offset=0x34"))
		Expect(out.String()).To(ContainSubstring(
			"0xabc: level1=2 level2=2 offset=0xbc"))
	})
})

var _ = Describe("version", func() {
	It("should print the program name", func() {
		out := new(bytes.Buffer)
		rootCmd.SetOut(out)
		rootCmd.SetArgs([]string{"version"})
		defer rootCmd.SetOut(nil)

		Expect(rootCmd.Execute()).To(Succeed())
		Expect(out.String()).To(HavePrefix("tlbsim "))
	})
})
