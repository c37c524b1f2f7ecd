// Package tlb provides a fully associative translation lookaside buffer with
// least-recently-used replacement.
package tlb

import (
	"container/list"

	"github.com/sarchlab/tlbsim/mem/vm"
	"github.com/sarchlab/tlbsim/sim/hooking"
)

// Hook positions triggered by the TLB. The item of the hook context is the
// vm.AddressKey involved and the detail is the vm.FrameNumber, if any.
var (
	// HookPosHit is triggered when Get finds the page.
	HookPosHit = &hooking.HookPos{Name: "TLBHit"}

	// HookPosMiss is triggered when Get does not find the page.
	HookPosMiss = &hooking.HookPos{Name: "TLBMiss"}

	// HookPosInsert is triggered when Put adds a new page.
	HookPosInsert = &hooking.HookPos{Name: "TLBInsert"}

	// HookPosEvict is triggered when a page is dropped to make room.
	HookPosEvict = &hooking.HookPos{Name: "TLBEvict"}
)

type entry struct {
	key   vm.AddressKey
	frame vm.FrameNumber
}

// TLB caches page-to-frame translations. Entries are kept in a recency list,
// least recently used at the front, with a map from key to list element so
// that lookup, promotion and eviction all take constant time.
//
// A TLB is not safe for concurrent use.
type TLB struct {
	hooking.HookableBase

	name     string
	capacity int
	entries  *list.List
	index    map[vm.AddressKey]*list.Element
}

// New creates an empty TLB that can hold capacity entries.
func New(capacity int) (*TLB, error) {
	return MakeBuilder().WithNumEntries(capacity).Build("TLB")
}

// Name returns the name of the TLB.
func (t *TLB) Name() string {
	return t.name
}

// Capacity returns the maximum number of entries.
func (t *TLB) Capacity() int {
	return t.capacity
}

// Len returns the number of entries currently held.
func (t *TLB) Len() int {
	return t.entries.Len()
}

// Get returns the frame cached for the page. A successful lookup makes the
// page the most recently used one.
func (t *TLB) Get(key vm.AddressKey) (vm.FrameNumber, bool) {
	elem, found := t.index[key]
	if !found {
		t.invoke(HookPosMiss, key, nil)
		return 0, false
	}

	t.entries.MoveToBack(elem)
	e := elem.Value.(*entry)
	t.invoke(HookPosHit, key, e.frame)

	return e.frame, true
}

// Contains tells if the page is cached without touching its recency.
func (t *TLB) Contains(key vm.AddressKey) bool {
	_, found := t.index[key]
	return found
}

// Put caches the translation and makes the page the most recently used one.
// If a new page pushes the TLB over capacity, the least recently used page
// is evicted and returned.
func (t *TLB) Put(
	key vm.AddressKey,
	frame vm.FrameNumber,
) (evicted vm.AddressKey, didEvict bool) {
	if elem, found := t.index[key]; found {
		elem.Value.(*entry).frame = frame
		t.entries.MoveToBack(elem)

		return vm.AddressKey{}, false
	}

	t.index[key] = t.entries.PushBack(&entry{key: key, frame: frame})
	t.invoke(HookPosInsert, key, frame)

	if t.entries.Len() <= t.capacity {
		return vm.AddressKey{}, false
	}

	return t.evict(), true
}

func (t *TLB) evict() vm.AddressKey {
	leastRecent := t.entries.Front()
	e := t.entries.Remove(leastRecent).(*entry)
	delete(t.index, e.key)

	t.invoke(HookPosEvict, e.key, e.frame)

	return e.key
}

// Keys returns the cached pages from the least recently used to the most
// recently used.
func (t *TLB) Keys() []vm.AddressKey {
	keys := make([]vm.AddressKey, 0, t.entries.Len())
	for elem := t.entries.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*entry).key)
	}

	return keys
}

// Reset drops all the entries.
func (t *TLB) Reset() {
	t.entries.Init()
	t.index = make(map[vm.AddressKey]*list.Element, t.capacity)
}

func (t *TLB) invoke(pos *hooking.HookPos, key vm.AddressKey, detail any) {
	if t.NumHooks() == 0 {
		return
	}

	t.InvokeHook(hooking.HookCtx{
		Domain: t,
		Pos:    pos,
		Item:   key,
		Detail: detail,
	})
}
