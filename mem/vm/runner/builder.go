package runner

import (
	"github.com/sarchlab/tlbsim/mem/vm"
	"github.com/sarchlab/tlbsim/mem/vm/addresstranslator"
	"github.com/sarchlab/tlbsim/mem/vm/tlb"
	"github.com/sarchlab/tlbsim/sim/hooking"
)

// A Builder can build Runners.
type Builder struct {
	layout           vm.Layout
	pageTable        addresstranslator.PageTable
	tlbCapacity      int
	tlbHooks         []hooking.Hook
	translationHooks []hooking.Hook
	strict           bool
}

// MakeBuilder returns a Builder with an 8-entry TLB.
func MakeBuilder() Builder {
	return Builder{
		tlbCapacity: 8,
	}
}

// WithLayout sets how virtual addresses are decoded.
func (b Builder) WithLayout(layout vm.Layout) Builder {
	b.layout = layout
	return b
}

// WithPageTable sets the page table shared by all runs.
func (b Builder) WithPageTable(pageTable addresstranslator.PageTable) Builder {
	b.pageTable = pageTable
	return b
}

// WithTLBCapacity sets the number of entries of the TLB of each run.
func (b Builder) WithTLBCapacity(n int) Builder {
	b.tlbCapacity = n
	return b
}

// WithTLBHook attaches a hook to the TLB of every run.
func (b Builder) WithTLBHook(hook hooking.Hook) Builder {
	b.tlbHooks = append(append([]hooking.Hook(nil), b.tlbHooks...), hook)
	return b
}

// WithTranslationHook attaches a hook to the address translator of every run.
func (b Builder) WithTranslationHook(hook hooking.Hook) Builder {
	b.translationHooks = append(
		append([]hooking.Hook(nil), b.translationHooks...), hook)
	return b
}

// WithStrictAddresses makes runs fail on addresses wider than the layout
// instead of masking the extra bits.
func (b Builder) WithStrictAddresses(strict bool) Builder {
	b.strict = strict
	return b
}

// Build creates a Runner. Invalid settings are reported here, before any
// address is translated.
func (b Builder) Build(name string) (*Runner, error) {
	if b.layout.IsZero() {
		return nil, vm.NewConfigError("layout", "is not set")
	}

	if addresstranslator.IsNil(b.pageTable) {
		return nil, vm.NewConfigError("page table", "is not set")
	}

	if err := addresstranslator.CheckLayout(b.pageTable, b.layout); err != nil {
		return nil, err
	}

	tlbBuilder := tlb.MakeBuilder().WithNumEntries(b.tlbCapacity)
	for _, h := range b.tlbHooks {
		tlbBuilder = tlbBuilder.WithHook(h)
	}

	if _, err := tlbBuilder.Build(name + ".TLB"); err != nil {
		return nil, err
	}

	r := &Runner{
		name:             name,
		layout:           b.layout,
		pageTable:        b.pageTable,
		tlbBuilder:       tlbBuilder,
		translationHooks: b.translationHooks,
		strict:           b.strict,
	}

	return r, nil
}
