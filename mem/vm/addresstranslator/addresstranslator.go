// Package addresstranslator resolves virtual addresses to physical addresses
// by consulting a TLB first and walking a page table on a TLB miss.
package addresstranslator

import (
	"github.com/sarchlab/tlbsim/mem/vm"
	"github.com/sarchlab/tlbsim/sim/hooking"
)

// HookPosTranslated is triggered after every translation. The item of the
// hook context is the Result.
var HookPosTranslated = &hooking.HookPos{Name: "Translated"}

// A TLB caches translations in front of the page table.
type TLB interface {
	Get(key vm.AddressKey) (vm.FrameNumber, bool)
	Put(key vm.AddressKey, frame vm.FrameNumber) (evicted vm.AddressKey, didEvict bool)
}

// A PageTable provides the translation when the TLB misses.
type PageTable interface {
	Lookup(key vm.AddressKey) (vm.FrameNumber, bool)
}

// Result describes the translation of one virtual address.
type Result struct {
	VirtualAddress  uint64
	Key             vm.AddressKey
	Offset          uint64
	Outcome         vm.Outcome
	Frame           vm.FrameNumber
	PhysicalAddress uint64
}

// HasPhysicalAddress tells if the translation produced a physical address.
// Only faults do not.
func (r Result) HasPhysicalAddress() bool {
	return r.Outcome != vm.Fault
}

// Translator turns virtual addresses into physical addresses.
//
// A Translator mutates its TLB on every call and therefore must not be used
// by more than one goroutine at a time.
type Translator struct {
	hooking.HookableBase

	name      string
	layout    vm.Layout
	tlb       TLB
	pageTable PageTable
}

// Name returns the name of the translator.
func (t *Translator) Name() string {
	return t.name
}

// Layout returns the layout used to decode addresses.
func (t *Translator) Layout() vm.Layout {
	return t.layout
}

// Translate resolves the virtual address. Bits above the layout's width are
// ignored. An unmapped page yields a Result with the Fault outcome and leaves
// the TLB untouched.
func (t *Translator) Translate(vAddr uint64) Result {
	key, offset := t.layout.Decode(vAddr)

	return t.translate(vAddr, key, offset)
}

// TranslateStrict is like Translate but refuses addresses wider than the
// layout with vm.ErrAddressOutOfRange.
func (t *Translator) TranslateStrict(vAddr uint64) (Result, error) {
	key, offset, err := t.layout.DecodeStrict(vAddr)
	if err != nil {
		return Result{}, err
	}

	return t.translate(vAddr, key, offset), nil
}

func (t *Translator) translate(
	vAddr uint64,
	key vm.AddressKey,
	offset uint64,
) Result {
	r := Result{
		VirtualAddress: vAddr,
		Key:            key,
		Offset:         offset,
	}

	if frame, found := t.tlb.Get(key); found {
		r.Outcome = vm.Hit
		r.Frame = frame
	} else if frame, found := t.pageTable.Lookup(key); found {
		r.Outcome = vm.MissResolved
		r.Frame = frame
		t.tlb.Put(key, frame)
	} else {
		r.Outcome = vm.Fault
	}

	if r.HasPhysicalAddress() {
		r.PhysicalAddress = t.layout.Compose(r.Frame, offset)
	}

	if t.NumHooks() > 0 {
		t.InvokeHook(hooking.HookCtx{
			Domain: t,
			Pos:    HookPosTranslated,
			Item:   r,
		})
	}

	return r
}
