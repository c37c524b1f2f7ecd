package pagetable

import (
	"fmt"
	"math/rand"

	"github.com/sarchlab/tlbsim/mem/vm"
)

// FromEntries creates a page table holding exactly the given mappings. Pages
// not listed stay unmapped.
func FromEntries(layout vm.Layout, entries []Entry) (*Table, error) {
	t, err := New(layout)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		err = t.Map(e.Key, e.Frame)
		if err != nil {
			return nil, err
		}
	}

	return t, nil
}

// Full creates a page table in which every page is mapped to the frame that
// frameOf returns.
func Full(
	layout vm.Layout,
	frameOf func(key vm.AddressKey) vm.FrameNumber,
) (*Table, error) {
	t, err := New(layout)
	if err != nil {
		return nil, err
	}

	for l1 := 0; l1 < layout.NumLevel1Entries(); l1++ {
		for l2 := 0; l2 < layout.NumLevel2Entries(); l2++ {
			key := vm.AddressKey{Level1: uint64(l1), Level2: uint64(l2)}

			err = t.Map(key, frameOf(key))
			if err != nil {
				return nil, err
			}
		}
	}

	return t, nil
}

// Random creates a page table that maps each page with probability density
// to a frame drawn uniformly from [0, 2^frameBits). A density of 1 maps every
// page, so no translation can fault. Frames and offsets together must fit in
// 64 bits.
func Random(
	layout vm.Layout,
	rng *rand.Rand,
	frameBits int,
	density float64,
) (*Table, error) {
	maxFrameBits := min(63, 64-int(layout.OffsetBits()))
	if frameBits <= 0 || frameBits > maxFrameBits {
		return nil, vm.NewConfigError("frame_bits",
			fmt.Sprintf("must be in [1, %d], got %d", maxFrameBits, frameBits))
	}

	if density < 0 || density > 1 {
		return nil, vm.NewConfigError("density",
			fmt.Sprintf("must be in [0, 1], got %g", density))
	}

	t, err := New(layout)
	if err != nil {
		return nil, err
	}

	numFrames := int64(1) << frameBits

	for l1 := 0; l1 < layout.NumLevel1Entries(); l1++ {
		for l2 := 0; l2 < layout.NumLevel2Entries(); l2++ {
			if density < 1 && rng.Float64() >= density {
				continue
			}

			key := vm.AddressKey{Level1: uint64(l1), Level2: uint64(l2)}
			frame := vm.FrameNumber(rng.Int63n(numFrames))

			err = t.Map(key, frame)
			if err != nil {
				return nil, err
			}
		}
	}

	return t, nil
}
