// Package config describes a simulation: the address layout, the TLB, the
// page table and the access patterns to run.
package config

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/tlbsim/mem/vm"
	"github.com/sarchlab/tlbsim/mem/vm/pagetable"
	"github.com/sarchlab/tlbsim/mem/vm/pattern"
	"github.com/sarchlab/tlbsim/mem/vm/runner"
)

// Page table modes.
const (
	PageTableRandom   = "random"
	PageTableFull     = "full"
	PageTableExplicit = "explicit"
)

// Address policies for addresses wider than the layout.
const (
	AddressPolicyMask   = "mask"
	AddressPolicyReject = "reject"
)

// Pattern kinds.
const (
	PatternSequential = "sequential"
	PatternRandom     = "random"
	PatternRepeated   = "repeated"
	PatternList       = "list"
)

// Layout holds the widths of the fields of a virtual address.
type Layout struct {
	Level1Bits int `yaml:"level1_bits"`
	Level2Bits int `yaml:"level2_bits"`
	OffsetBits int `yaml:"offset_bits"`
}

// Mapping is an explicit page table entry.
type Mapping struct {
	Level1 uint64 `yaml:"level1"`
	Level2 uint64 `yaml:"level2"`
	Frame  uint64 `yaml:"frame"`
}

// PageTable describes how the page table is populated.
type PageTable struct {
	Mode      string    `yaml:"mode"`
	FrameBits int       `yaml:"frame_bits"`
	Density   float64   `yaml:"density"`
	Entries   []Mapping `yaml:"entries,omitempty"`
}

// Pattern describes one access pattern. Which fields are used depends on
// the kind.
type Pattern struct {
	Name      string `yaml:"name"`
	Kind      string `yaml:"kind"`
	Passes    int    `yaml:"passes,omitempty"`
	Count     int    `yaml:"count,omitempty"`
	Pages     int    `yaml:"pages,omitempty"`
	Repeat    int    `yaml:"repeat,omitempty"`
	Addresses string `yaml:"addresses,omitempty"`
}

// Trace controls the SQLite access trace.
type Trace struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Config is a complete simulation setup.
type Config struct {
	Layout        Layout    `yaml:"layout"`
	TLBCapacity   int       `yaml:"tlb_capacity"`
	PageTable     PageTable `yaml:"page_table"`
	AddressPolicy string    `yaml:"address_policy"`
	Seed          int64     `yaml:"seed"`
	Parallel      bool      `yaml:"parallel"`
	Patterns      []Pattern `yaml:"patterns"`
	Trace         Trace     `yaml:"trace"`
}

// Default returns a 2/2/8-bit layout with an 8-entry TLB and a fully
// populated page table of 4-bit frames, exercised by a sequential, a random
// and a repeated pattern.
func Default() Config {
	return Config{
		Layout: Layout{
			Level1Bits: 2,
			Level2Bits: 2,
			OffsetBits: 8,
		},
		TLBCapacity: 8,
		PageTable: PageTable{
			Mode:      PageTableRandom,
			FrameBits: 4,
			Density:   1,
		},
		AddressPolicy: AddressPolicyMask,
		Patterns: []Pattern{
			{Name: "Sequential", Kind: PatternSequential, Passes: 1},
			{Name: "Random", Kind: PatternRandom, Count: 50},
			{Name: "Repeated", Kind: PatternRepeated, Pages: 3, Repeat: 10},
		},
	}
}

// Load reads a YAML file on top of the defaults. Unknown keys are errors.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads YAML on top of the defaults.
func Decode(r io.Reader) (Config, error) {
	c := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	err := dec.Decode(&c)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	return c, nil
}

// Encode writes the configuration as YAML.
func (c Config) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(c); err != nil {
		return err
	}

	return enc.Close()
}

// StrictAddresses tells if addresses wider than the layout are rejected.
func (c Config) StrictAddresses() bool {
	return c.AddressPolicy == AddressPolicyReject
}

// Validate checks the settings that do not depend on building components.
func (c Config) Validate() error {
	if _, err := c.AddressLayout(); err != nil {
		return err
	}

	if c.TLBCapacity <= 0 {
		return vm.NewConfigError("tlb_capacity",
			fmt.Sprintf("must be positive, got %d", c.TLBCapacity))
	}

	switch c.AddressPolicy {
	case AddressPolicyMask, AddressPolicyReject:
	default:
		return vm.NewConfigError("address_policy",
			fmt.Sprintf("must be %q or %q, got %q",
				AddressPolicyMask, AddressPolicyReject, c.AddressPolicy))
	}

	switch c.PageTable.Mode {
	case PageTableRandom, PageTableFull, PageTableExplicit:
	default:
		return vm.NewConfigError("page_table.mode",
			fmt.Sprintf("unknown mode %q", c.PageTable.Mode))
	}

	names := make(map[string]bool, len(c.Patterns))
	for i, p := range c.Patterns {
		if p.Name == "" {
			return vm.NewConfigError(fmt.Sprintf("patterns[%d].name", i),
				"is empty")
		}

		if names[p.Name] {
			return vm.NewConfigError(fmt.Sprintf("patterns[%d].name", i),
				fmt.Sprintf("%q is used twice", p.Name))
		}

		names[p.Name] = true
	}

	return nil
}

// AddressLayout converts the layout section into a vm.Layout.
func (c Config) AddressLayout() (vm.Layout, error) {
	return vm.NewLayout(
		c.Layout.Level1Bits, c.Layout.Level2Bits, c.Layout.OffsetBits)
}

// NewRand returns the random source for the seed. A zero seed is replaced by
// seed, which is typically derived from the clock.
func (c Config) NewRand(seed int64) *rand.Rand {
	if c.Seed != 0 {
		seed = c.Seed
	}

	return rand.New(rand.NewSource(seed))
}

// BuildPageTable creates the page table described by the configuration.
func (c Config) BuildPageTable(
	layout vm.Layout,
	rng *rand.Rand,
) (*pagetable.Table, error) {
	switch c.PageTable.Mode {
	case PageTableRandom:
		return pagetable.Random(layout, rng,
			c.PageTable.FrameBits, c.PageTable.Density)
	case PageTableFull:
		return pagetable.Full(layout, func(k vm.AddressKey) vm.FrameNumber {
			return vm.FrameNumber(k.Level1<<layout.Level2Bits() | k.Level2)
		})
	case PageTableExplicit:
		entries := make([]pagetable.Entry, 0, len(c.PageTable.Entries))
		for _, m := range c.PageTable.Entries {
			entries = append(entries, pagetable.Entry{
				Key:   vm.AddressKey{Level1: m.Level1, Level2: m.Level2},
				Frame: vm.FrameNumber(m.Frame),
			})
		}

		return pagetable.FromEntries(layout, entries)
	default:
		return nil, vm.NewConfigError("page_table.mode",
			fmt.Sprintf("unknown mode %q", c.PageTable.Mode))
	}
}

// BuildPatterns generates the access patterns in the order they are listed.
func (c Config) BuildPatterns(
	layout vm.Layout,
	rng *rand.Rand,
) ([]runner.NamedPattern, error) {
	patterns := make([]runner.NamedPattern, 0, len(c.Patterns))

	for _, p := range c.Patterns {
		addrs, err := p.generate(layout, rng)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p.Name, err)
		}

		patterns = append(patterns, runner.NamedPattern{
			Name:      p.Name,
			Addresses: addrs,
		})
	}

	return patterns, nil
}

func (p Pattern) generate(layout vm.Layout, rng *rand.Rand) ([]uint64, error) {
	switch p.Kind {
	case PatternSequential:
		return pattern.Sequential(layout, max(p.Passes, 1)), nil
	case PatternRandom:
		if p.Count < 0 {
			return nil, vm.NewConfigError("count", "must not be negative")
		}

		return pattern.Random(layout, rng, p.Count), nil
	case PatternRepeated:
		if p.Pages <= 0 || p.Repeat <= 0 {
			return nil, vm.NewConfigError("pages/repeat", "must be positive")
		}

		return pattern.Repeated(layout, p.Pages, p.Repeat), nil
	case PatternList:
		return pattern.Parse(p.Addresses)
	default:
		return nil, vm.NewConfigError("kind",
			fmt.Sprintf("unknown pattern kind %q", p.Kind))
	}
}
