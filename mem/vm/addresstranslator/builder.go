package addresstranslator

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/tlbsim/mem/vm"
	"github.com/sarchlab/tlbsim/sim/hooking"
)

// A Builder can create address translators.
type Builder struct {
	layout    vm.Layout
	tlb       TLB
	pageTable PageTable
	hooks     []hooking.Hook
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithLayout sets how virtual addresses are split into page table indices
// and offsets.
func (b Builder) WithLayout(layout vm.Layout) Builder {
	b.layout = layout
	return b
}

// WithTLB sets the TLB that the translator consults first.
func (b Builder) WithTLB(tlb TLB) Builder {
	b.tlb = tlb
	return b
}

// WithPageTable sets the page table that is walked on a TLB miss.
func (b Builder) WithPageTable(pageTable PageTable) Builder {
	b.pageTable = pageTable
	return b
}

// WithHook attaches a hook to the translator.
func (b Builder) WithHook(hook hooking.Hook) Builder {
	b.hooks = append(append([]hooking.Hook(nil), b.hooks...), hook)
	return b
}

// Build creates a translator. It fails if the layout, the TLB, or the page
// table is missing, or if the page table is indexed with another layout.
func (b Builder) Build(name string) (*Translator, error) {
	switch {
	case b.layout.IsZero():
		return nil, vm.NewConfigError("layout", "is not set")
	case IsNil(b.tlb):
		return nil, vm.NewConfigError("tlb", "is not set")
	case IsNil(b.pageTable):
		return nil, vm.NewConfigError("page table", "is not set")
	}

	if err := CheckLayout(b.pageTable, b.layout); err != nil {
		return nil, err
	}

	t := &Translator{
		name:      name,
		layout:    b.layout,
		tlb:       b.tlb,
		pageTable: b.pageTable,
	}

	for _, h := range b.hooks {
		t.AcceptHook(h)
	}

	return t, nil
}

// A LayoutProvider reports the layout it is indexed with, as
// *pagetable.Table does.
type LayoutProvider interface {
	Layout() vm.Layout
}

// CheckLayout fails if the page table provides a layout different from the
// translator's. Page tables that do not provide one are accepted.
func CheckLayout(pageTable PageTable, layout vm.Layout) error {
	p, ok := pageTable.(LayoutProvider)
	if !ok || p.Layout() == layout {
		return nil
	}

	return vm.NewConfigError("page table",
		fmt.Sprintf("is indexed with layout %s, not %s", p.Layout(), layout))
}

// IsNil tells if v is nil or an interface holding a nil pointer, map, slice,
// func or channel.
func IsNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func,
		reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
