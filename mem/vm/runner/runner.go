// Package runner feeds access patterns through an address translator and
// collects TLB statistics.
package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/sarchlab/tlbsim/mem/vm"
	"github.com/sarchlab/tlbsim/mem/vm/addresstranslator"
	"github.com/sarchlab/tlbsim/mem/vm/tlb"
	"github.com/sarchlab/tlbsim/sim/hooking"
)

// A NamedPattern is an ordered list of virtual addresses with a label.
type NamedPattern struct {
	Name      string
	Addresses []uint64
}

// NamedStatistics pairs the statistics of a run with the pattern's name.
type NamedStatistics struct {
	Name       string `yaml:"name"`
	Statistics `yaml:",inline"`
}

// Runner translates access patterns. Every run starts from an empty TLB and
// shares the runner's page table, which must not change while runs are in
// progress.
type Runner struct {
	name             string
	layout           vm.Layout
	pageTable        addresstranslator.PageTable
	tlbBuilder       tlb.Builder
	translationHooks []hooking.Hook
	strict           bool
}

// Name returns the name of the runner.
func (r *Runner) Name() string {
	return r.name
}

// RunName returns the name RunAll gives to the run of a pattern.
func (r *Runner) RunName(pattern string) string {
	return r.name + "." + pattern
}

// Run translates the addresses in order and returns the statistics. With
// strict addresses enabled, an address wider than the layout stops the run
// with an error; otherwise the error is always nil. Page faults never stop a
// run.
func (r *Runner) Run(pattern []uint64) (Statistics, error) {
	return r.run(r.name, pattern)
}

// run names the TLB and the translator of the run after the prefix, so that
// hooks shared by concurrent runs can tell the runs apart.
func (r *Runner) run(prefix string, pattern []uint64) (Statistics, error) {
	var stats Statistics

	evictions := hooking.NewPosCountHook()

	cache, err := r.tlbBuilder.WithHook(evictions).Build(prefix + ".TLB")
	if err != nil {
		return stats, err
	}

	translator, err := r.buildTranslator(prefix, cache)
	if err != nil {
		return stats, err
	}

	for i, vAddr := range pattern {
		result, err := r.translate(translator, vAddr)
		if err != nil {
			return stats, fmt.Errorf("access %d: %w", i, err)
		}

		stats.record(result.Outcome)
	}

	stats.Evictions = evictions.Count(tlb.HookPosEvict)
	stats.updateHitRate()

	return stats, nil
}

func (r *Runner) buildTranslator(
	prefix string,
	cache *tlb.TLB,
) (*addresstranslator.Translator, error) {
	b := addresstranslator.MakeBuilder().
		WithLayout(r.layout).
		WithTLB(cache).
		WithPageTable(r.pageTable)

	for _, h := range r.translationHooks {
		b = b.WithHook(h)
	}

	return b.Build(prefix + ".AddressTranslator")
}

func (r *Runner) translate(
	t *addresstranslator.Translator,
	vAddr uint64,
) (addresstranslator.Result, error) {
	if r.strict {
		return t.TranslateStrict(vAddr)
	}

	return t.Translate(vAddr), nil
}

// RunAll runs each pattern independently and concurrently. The results keep
// the order of the patterns. Patterns that have not started when ctx is
// cancelled are skipped and RunAll returns the context's error; a pattern
// that has started always runs to completion. The components of each run are
// named after the runner and the pattern, as in "Runner.Sequential.TLB".
//
// Hooks attached to the runner are shared by all the runs and must be safe
// for concurrent use.
func (r *Runner) RunAll(
	ctx context.Context,
	patterns []NamedPattern,
) ([]NamedStatistics, error) {
	results := make([]NamedStatistics, len(patterns))
	errs := make([]error, len(patterns))

	var wg sync.WaitGroup

	for i, p := range patterns {
		wg.Add(1)

		go func(i int, p NamedPattern) {
			defer wg.Done()

			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}

			stats, err := r.run(r.RunName(p.Name), p.Addresses)
			if err != nil {
				errs[i] = fmt.Errorf("pattern %q: %w", p.Name, err)
				return
			}

			results[i] = NamedStatistics{Name: p.Name, Statistics: stats}
		}(i, p)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}

	return results, nil
}
