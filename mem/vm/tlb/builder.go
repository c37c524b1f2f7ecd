package tlb

import (
	"container/list"
	"fmt"

	"github.com/sarchlab/tlbsim/mem/vm"
	"github.com/sarchlab/tlbsim/sim/hooking"
)

// A Builder can build TLBs.
type Builder struct {
	numEntries int
	hooks      []hooking.Hook
}

// MakeBuilder returns a Builder.
func MakeBuilder() Builder {
	return Builder{
		numEntries: 8,
	}
}

// WithNumEntries sets the number of pages the TLB can hold.
func (b Builder) WithNumEntries(n int) Builder {
	b.numEntries = n
	return b
}

// WithHook attaches a hook to every TLB the builder creates.
func (b Builder) WithHook(hook hooking.Hook) Builder {
	b.hooks = append(append([]hooking.Hook(nil), b.hooks...), hook)
	return b
}

// Build creates a new, empty TLB.
func (b Builder) Build(name string) (*TLB, error) {
	if b.numEntries <= 0 {
		return nil, vm.NewConfigError("tlb_capacity",
			fmt.Sprintf("must be positive, got %d", b.numEntries))
	}

	t := &TLB{
		name:     name,
		capacity: b.numEntries,
		entries:  list.New(),
		index:    make(map[vm.AddressKey]*list.Element, b.numEntries),
	}

	for _, h := range b.hooks {
		t.AcceptHook(h)
	}

	return t, nil
}
