package vm

import (
	"fmt"
)

// maxAddressBits is the widest virtual address a Layout can describe.
const maxAddressBits = 64

// A Layout describes how a virtual address is split into a level-1 index, a
// level-2 index, and an in-page offset. From the most significant bit to the
// least significant bit, an address reads as
//
//	| level-1 index | level-2 index | offset |
//
// Bits above the total width are not part of the address. Decode masks them
// away, while DecodeStrict rejects the address.
type Layout struct {
	level1Bits uint
	level2Bits uint
	offsetBits uint
}

// NewLayout creates a Layout with the given field widths. Every field must be
// at least one bit wide and the fields together must fit in a 64-bit address.
func NewLayout(level1Bits, level2Bits, offsetBits int) (Layout, error) {
	switch {
	case level1Bits <= 0:
		return Layout{}, newConfigError("level1_bits",
			fmt.Sprintf("must be positive, got %d", level1Bits))
	case level2Bits <= 0:
		return Layout{}, newConfigError("level2_bits",
			fmt.Sprintf("must be positive, got %d", level2Bits))
	case offsetBits <= 0:
		return Layout{}, newConfigError("offset_bits",
			fmt.Sprintf("must be positive, got %d", offsetBits))
	}

	total := level1Bits + level2Bits + offsetBits
	if total > maxAddressBits {
		return Layout{}, newConfigError("address width",
			fmt.Sprintf("%d bits exceed the %d-bit address", total,
				maxAddressBits))
	}

	return Layout{
		level1Bits: uint(level1Bits),
		level2Bits: uint(level2Bits),
		offsetBits: uint(offsetBits),
	}, nil
}

// MustNewLayout is like NewLayout but panics on invalid widths.
func MustNewLayout(level1Bits, level2Bits, offsetBits int) Layout {
	l, err := NewLayout(level1Bits, level2Bits, offsetBits)
	if err != nil {
		panic(err)
	}

	return l
}

// Level1Bits returns the width of the level-1 index.
func (l Layout) Level1Bits() uint { return l.level1Bits }

// Level2Bits returns the width of the level-2 index.
func (l Layout) Level2Bits() uint { return l.level2Bits }

// OffsetBits returns the width of the in-page offset.
func (l Layout) OffsetBits() uint { return l.offsetBits }

// TotalBits returns the width of a virtual address.
func (l Layout) TotalBits() uint {
	return l.level1Bits + l.level2Bits + l.offsetBits
}

// IsZero tells if the layout was never initialized by NewLayout.
func (l Layout) IsZero() bool {
	return l.TotalBits() == 0
}

// PageSize returns the number of bytes in a page.
func (l Layout) PageSize() uint64 {
	return 1 << l.offsetBits
}

// NumLevel1Entries returns the number of entries in the level-1 table.
func (l Layout) NumLevel1Entries() int {
	return 1 << l.level1Bits
}

// NumLevel2Entries returns the number of entries in each level-2 table.
func (l Layout) NumLevel2Entries() int {
	return 1 << l.level2Bits
}

// NumPages returns the number of distinct pages the layout can address.
func (l Layout) NumPages() int {
	return l.NumLevel1Entries() * l.NumLevel2Entries()
}

// AddressSpaceSize returns the number of addressable bytes. It saturates at
// the largest uint64 for 64-bit layouts.
func (l Layout) AddressSpaceSize() uint64 {
	if l.TotalBits() >= maxAddressBits {
		return ^uint64(0)
	}

	return 1 << l.TotalBits()
}

func (l Layout) addressMask() uint64 {
	if l.TotalBits() >= maxAddressBits {
		return ^uint64(0)
	}

	return (1 << l.TotalBits()) - 1
}

// InRange tells if the virtual address fits in the layout's width.
func (l Layout) InRange(vAddr uint64) bool {
	return vAddr&^l.addressMask() == 0
}

// Decode splits a virtual address into its page key and offset. High-order
// bits beyond the layout's width are silently dropped.
func (l Layout) Decode(vAddr uint64) (key AddressKey, offset uint64) {
	offset = vAddr & mask(l.offsetBits)
	key.Level2 = (vAddr >> l.offsetBits) & mask(l.level2Bits)
	key.Level1 = (vAddr >> (l.offsetBits + l.level2Bits)) & mask(l.level1Bits)

	return key, offset
}

// DecodeStrict is like Decode but returns ErrAddressOutOfRange for addresses
// that do not fit in the layout.
func (l Layout) DecodeStrict(vAddr uint64) (AddressKey, uint64, error) {
	if !l.InRange(vAddr) {
		return AddressKey{}, 0, fmt.Errorf("%w: 0x%x needs more than %d bits",
			ErrAddressOutOfRange, vAddr, l.TotalBits())
	}

	key, offset := l.Decode(vAddr)

	return key, offset, nil
}

// MaxFrame returns the largest frame number whose physical addresses fit in
// 64 bits.
func (l Layout) MaxFrame() FrameNumber {
	return FrameNumber(^uint64(0) >> l.offsetBits)
}

// Compose builds the physical address of the given offset in a frame. Frame
// bits above MaxFrame are lost.
func (l Layout) Compose(frame FrameNumber, offset uint64) uint64 {
	return uint64(frame)<<l.offsetBits | offset&mask(l.offsetBits)
}

// AddressOf returns the virtual address of the offset within the page
// identified by key. It is the inverse of Decode.
func (l Layout) AddressOf(key AddressKey, offset uint64) uint64 {
	return (key.Level1&mask(l.level1Bits))<<(l.offsetBits+l.level2Bits) |
		(key.Level2&mask(l.level2Bits))<<l.offsetBits |
		offset&mask(l.offsetBits)
}

// Contains tells if the key indexes an entry of a table with this layout.
func (l Layout) Contains(key AddressKey) bool {
	return key.Level1 < uint64(l.NumLevel1Entries()) &&
		key.Level2 < uint64(l.NumLevel2Entries())
}

// String prints the layout as level1/level2/offset bit widths.
func (l Layout) String() string {
	return fmt.Sprintf("%d/%d/%d", l.level1Bits, l.level2Bits, l.offsetBits)
}

func mask(bits uint) uint64 {
	if bits >= maxAddressBits {
		return ^uint64(0)
	}

	return (1 << bits) - 1
}
