// Package pattern generates sequences of virtual addresses to feed through a
// translator.
package pattern

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/sarchlab/tlbsim/mem/vm"
)

// PageAddress returns the address of the first byte of the n-th page, where
// pages are numbered in address order.
func PageAddress(layout vm.Layout, n int) uint64 {
	key := vm.AddressKey{
		Level1: uint64(n / layout.NumLevel2Entries()),
		Level2: uint64(n % layout.NumLevel2Entries()),
	}

	return layout.AddressOf(key, 0)
}

// Sequential visits every page of the address space once per pass, one page
// apart, starting at address 0.
func Sequential(layout vm.Layout, passes int) []uint64 {
	numPages := layout.NumPages()
	addrs := make([]uint64, 0, numPages*max(passes, 0))

	for p := 0; p < passes; p++ {
		for n := 0; n < numPages; n++ {
			addrs = append(addrs, PageAddress(layout, n))
		}
	}

	return addrs
}

// Random draws n addresses uniformly from the address space.
func Random(layout vm.Layout, rng *rand.Rand, n int) []uint64 {
	size := layout.AddressSpaceSize()
	addrs := make([]uint64, 0, max(n, 0))

	for i := 0; i < n; i++ {
		v := rng.Uint64()
		if size != ^uint64(0) {
			v %= size
		}

		addrs = append(addrs, v)
	}

	return addrs
}

// Repeated cycles through the first numPages pages, repeat times.
func Repeated(layout vm.Layout, numPages, repeat int) []uint64 {
	numPages = min(numPages, layout.NumPages())
	addrs := make([]uint64, 0, max(numPages*repeat, 0))

	for r := 0; r < repeat; r++ {
		for n := 0; n < numPages; n++ {
			addrs = append(addrs, PageAddress(layout, n))
		}
	}

	return addrs
}

// Parse reads addresses separated by commas or white space. Each address can
// be written in decimal, or in hexadecimal, octal or binary with a 0x, 0o or
// 0b prefix.
func Parse(s string) ([]uint64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})

	addrs := make([]uint64, 0, len(fields))

	for _, f := range fields {
		v, err := strconv.ParseUint(f, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", f, err)
		}

		addrs = append(addrs, v)
	}

	return addrs, nil
}
