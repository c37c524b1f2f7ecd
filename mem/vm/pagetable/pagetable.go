// Package pagetable provides a two-level page table that maps virtual pages to
// physical frames.
package pagetable

import (
	"fmt"
	"sync"

	"github.com/sarchlab/tlbsim/mem/vm"
)

// maxPageBits bounds level1Bits+level2Bits. A fully mapped table holds one
// entry per page, and so does a sequential sweep over it.
const maxPageBits = 22

// A PageTable resolves a virtual page to the frame that backs it.
type PageTable interface {
	// Lookup returns the frame that the page is mapped to. The bool return
	// value is false if the page is unmapped.
	Lookup(key vm.AddressKey) (vm.FrameNumber, bool)
}

// An Entry is a single mapping in the page table.
type Entry struct {
	Key   vm.AddressKey
	Frame vm.FrameNumber
}

type pte struct {
	frame vm.FrameNumber
	valid bool
}

// Table is a two-level page table. The level-1 table has one slot per level-1
// index and points to a level-2 table with one slot per level-2 index.
// Level-2 tables are only allocated once they hold a mapping, so a sparse
// table stays small.
//
// A Table is populated with Map while it is being built and only read
// afterwards. Lookups are safe to run from multiple goroutines.
type Table struct {
	sync.RWMutex
	layout    vm.Layout
	level1    []*[]pte
	numMapped int
}

// New creates an empty page table for the layout. Every page starts
// unmapped.
func New(layout vm.Layout) (*Table, error) {
	if layout.IsZero() {
		return nil, vm.NewConfigError("layout", "is not set")
	}

	pageBits := layout.Level1Bits() + layout.Level2Bits()
	if pageBits > maxPageBits {
		return nil, vm.NewConfigError("layout",
			fmt.Sprintf("%s has %d index bits, more than the %d a table can hold",
				layout, pageBits, maxPageBits))
	}

	t := &Table{
		layout: layout,
		level1: make([]*[]pte, layout.NumLevel1Entries()),
	}

	return t, nil
}

// Layout returns the address layout the table is indexed with.
func (t *Table) Layout() vm.Layout {
	return t.layout
}

// Map points the page at the frame, replacing any earlier mapping. The frame
// must not exceed the layout's MaxFrame.
func (t *Table) Map(key vm.AddressKey, frame vm.FrameNumber) error {
	if !t.layout.Contains(key) {
		return vm.NewConfigError("page",
			fmt.Sprintf("%s is outside a %s table", key, t.layout))
	}

	if frame > t.layout.MaxFrame() {
		return vm.NewConfigError("frame",
			fmt.Sprintf("0x%x of page %s does not fit beside %d offset bits",
				uint64(frame), key, t.layout.OffsetBits()))
	}

	t.Lock()
	defer t.Unlock()

	level2 := t.level1[key.Level1]
	if level2 == nil {
		entries := make([]pte, t.layout.NumLevel2Entries())
		level2 = &entries
		t.level1[key.Level1] = level2
	}

	entry := &(*level2)[key.Level2]
	if !entry.valid {
		t.numMapped++
	}

	entry.frame = frame
	entry.valid = true

	return nil
}

// Lookup returns the frame that backs the page.
func (t *Table) Lookup(key vm.AddressKey) (vm.FrameNumber, bool) {
	if !t.layout.Contains(key) {
		return 0, false
	}

	t.RLock()
	defer t.RUnlock()

	level2 := t.level1[key.Level1]
	if level2 == nil {
		return 0, false
	}

	entry := (*level2)[key.Level2]

	return entry.frame, entry.valid
}

// NumMapped returns the number of pages that have a frame.
func (t *Table) NumMapped() int {
	t.RLock()
	defer t.RUnlock()

	return t.numMapped
}

// Entries lists all the mappings, ordered by level-1 index and then by
// level-2 index.
func (t *Table) Entries() []Entry {
	t.RLock()
	defer t.RUnlock()

	entries := make([]Entry, 0, t.numMapped)

	for l1, level2 := range t.level1 {
		if level2 == nil {
			continue
		}

		for l2, e := range *level2 {
			if !e.valid {
				continue
			}

			entries = append(entries, Entry{
				Key:   vm.AddressKey{Level1: uint64(l1), Level2: uint64(l2)},
				Frame: e.frame,
			})
		}
	}

	return entries
}
