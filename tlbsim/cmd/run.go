package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarchlab/tlbsim/config"
	"github.com/sarchlab/tlbsim/datarecording"
	"github.com/sarchlab/tlbsim/mem/vm/runner"
	"github.com/sarchlab/tlbsim/mem/vm/tlb"
	"github.com/sarchlab/tlbsim/sim/hooking"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run access patterns through the TLB and the page table.",
	Long: "`run` builds a page table and translates every configured access " +
		"pattern with a fresh TLB, then prints the hit, miss and fault " +
		"counts of each pattern.",
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}

		opts := runOptions{}
		opts.addresses, _ = c.Flags().GetString("addresses")
		opts.reportPath, _ = c.Flags().GetString("report")
		opts.verbose, _ = c.Flags().GetBool("verbose")

		logger := log.New(c.ErrOrStderr(), "", 0)

		return simulate(c.Context(), cfg, opts, c.OutOrStdout(), logger)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	addConfigFlags(runCmd)

	f := runCmd.Flags()
	f.Int("tlb-capacity", 0, "number of TLB entries")
	f.Int64("seed", 0, "random seed, 0 picks one from the clock")
	f.String("page-table", "", "page table mode: random, full or explicit")
	f.Int("frame-bits", 0, "width of the random frame numbers")
	f.Float64("density", 0, "fraction of pages mapped by a random page table")
	f.String("address-policy", "",
		"what to do with addresses wider than the layout: mask or reject")
	f.Bool("parallel", false, "run the patterns concurrently")
	f.Bool("trace", false, "record every access in a SQLite database")
	f.String("trace-path", "", "trace database path, without the extension")
	f.String("addresses", "",
		"comma separated addresses to run instead of the configured patterns")
	f.String("report", "", "write a YAML report to this file, - for stdout")
	f.BoolP("verbose", "v", false, "log every TLB hit, miss, eviction and fault")
}

type runOptions struct {
	addresses  string
	reportPath string
	verbose    bool
}

func simulate(
	ctx context.Context,
	cfg config.Config,
	opts runOptions,
	out io.Writer,
	logger *log.Logger,
) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.addresses != "" {
		cfg.Patterns = []config.Pattern{{
			Name:      "Addresses",
			Kind:      config.PatternList,
			Addresses: opts.addresses,
		}}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	layout, err := cfg.AddressLayout()
	if err != nil {
		return err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	rng := cfg.NewRand(seed)

	table, err := cfg.BuildPageTable(layout, rng)
	if err != nil {
		return err
	}

	patterns, err := cfg.BuildPatterns(layout, rng)
	if err != nil {
		return err
	}

	b := runner.MakeBuilder().
		WithLayout(layout).
		WithPageTable(table).
		WithTLBCapacity(cfg.TLBCapacity).
		WithStrictAddresses(cfg.StrictAddresses())

	if opts.verbose {
		b = b.WithTLBHook(hooking.NewLogHook(logger, tlb.HookPosEvict)).
			WithTranslationHook(newTranslationLogger(logger))
	}

	var accessRecorder *datarecording.AccessRecorder

	if cfg.Trace.Enabled {
		recorder, err := datarecording.New(cfg.Trace.Path)
		if err != nil {
			return err
		}
		defer recorder.Close()

		accessRecorder = datarecording.NewAccessRecorder(recorder)
		b = b.WithTLBHook(accessRecorder).WithTranslationHook(accessRecorder)

		fmt.Fprintf(out, "Recording trace to %s (session %s)\n",
			recorder.Filename(), accessRecorder.Session())
	}

	r, err := b.Build("tlbsim")
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Layout %s, TLB %d entries, %d of %d pages mapped, seed %d\n",
		layout, cfg.TLBCapacity, table.NumMapped(), layout.NumPages(), seed)

	results, err := runPatterns(ctx, r, patterns, cfg.Parallel)
	if err != nil {
		return err
	}

	for _, res := range results {
		fmt.Fprintln(out)

		if err := runner.WriteSummary(out, res); err != nil {
			return err
		}

		if accessRecorder != nil {
			accessRecorder.RecordSummary(r.RunName(res.Name), res.Statistics)
		}
	}

	if opts.reportPath == "" {
		return nil
	}

	report := runner.Report{
		Layout:       layout.String(),
		TLBCapacity:  cfg.TLBCapacity,
		MappedPages:  table.NumMapped(),
		TotalPages:   layout.NumPages(),
		FaultPolicy:  "faults counted as misses and as faults",
		AddressCheck: cfg.AddressPolicy,
		Runs:         results,
	}

	return writeReport(report, opts.reportPath, out)
}

// runPatterns runs the patterns concurrently when parallel is set and one
// after the other otherwise.
func runPatterns(
	ctx context.Context,
	r *runner.Runner,
	patterns []runner.NamedPattern,
	parallel bool,
) ([]runner.NamedStatistics, error) {
	if parallel {
		return r.RunAll(ctx, patterns)
	}

	results := make([]runner.NamedStatistics, 0, len(patterns))

	for _, p := range patterns {
		res, err := r.RunAll(ctx, []runner.NamedPattern{p})
		if err != nil {
			return nil, err
		}

		results = append(results, res...)
	}

	return results, nil
}

func writeReport(report runner.Report, path string, stdout io.Writer) error {
	if path == "-" {
		fmt.Fprintln(stdout)
		return report.WriteYAML(stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := report.WriteYAML(f); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
