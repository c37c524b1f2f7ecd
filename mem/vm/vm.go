// Package vm defines the types shared by the components that translate
// virtual addresses into physical addresses.
package vm

import (
	"errors"
	"fmt"
)

// An AddressKey identifies a virtual page by its level-1 and level-2 page
// table indices. It is the granularity at which translations are cached.
type AddressKey struct {
	Level1 uint64
	Level2 uint64
}

// String prints the key as (level1, level2).
func (k AddressKey) String() string {
	return fmt.Sprintf("(%d, %d)", k.Level1, k.Level2)
}

// A FrameNumber identifies a physical frame.
type FrameNumber uint64

// Outcome classifies how a translation was resolved.
type Outcome int

// The possible translation outcomes.
const (
	// Hit means the translation was found in the TLB.
	Hit Outcome = iota

	// MissResolved means the TLB missed and the page table provided the
	// translation.
	MissResolved

	// Fault means neither the TLB nor the page table maps the page.
	Fault
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case MissResolved:
		return "miss"
	case Fault:
		return "fault"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// ErrInvalidConfig is the error that every configuration error wraps.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrAddressOutOfRange is returned when a virtual address is wider than the
// layout and the caller asked for addresses to be rejected rather than masked.
var ErrAddressOutOfRange = errors.New("virtual address out of range")

// A ConfigError reports a parameter that cannot be used to build a component.
type ConfigError struct {
	Param  string
	Reason string
}

func newConfigError(param, reason string) *ConfigError {
	return &ConfigError{Param: param, Reason: reason}
}

// NewConfigError creates a ConfigError for the given parameter.
func NewConfigError(param, reason string) error {
	return newConfigError(param, reason)
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidConfig, e.Param, e.Reason)
}

// Unwrap allows errors.Is(err, ErrInvalidConfig).
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}
