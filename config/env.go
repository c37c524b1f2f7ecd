package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// EnvPrefix is the prefix of the environment variables that override the
// configuration.
const EnvPrefix = "TLBSIM_"

// LookupFunc finds the value of an environment variable.
type LookupFunc func(key string) (string, bool)

// EnvLookup returns a LookupFunc over the process environment, falling back
// to the variables of the dotenv file. Variables already set in the process
// take precedence. A missing dotenv file is not an error.
func EnvLookup(dotenvPath string) (LookupFunc, error) {
	fileVars := map[string]string{}

	if dotenvPath != "" {
		vars, err := godotenv.Read(dotenvPath)
		switch {
		case err == nil:
			fileVars = vars
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("reading %s: %w", dotenvPath, err)
		}
	}

	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}

		v, ok := fileVars[key]

		return v, ok
	}, nil
}

// ApplyEnv overrides fields with TLBSIM_* variables:
//
//	TLBSIM_LEVEL1_BITS, TLBSIM_LEVEL2_BITS, TLBSIM_OFFSET_BITS,
//	TLBSIM_TLB_CAPACITY, TLBSIM_SEED, TLBSIM_ADDRESS_POLICY,
//	TLBSIM_PAGE_TABLE_MODE, TLBSIM_FRAME_BITS, TLBSIM_DENSITY,
//	TLBSIM_PARALLEL, TLBSIM_TRACE, TLBSIM_TRACE_PATH
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	ints := []struct {
		name string
		dst  *int
	}{
		{"LEVEL1_BITS", &c.Layout.Level1Bits},
		{"LEVEL2_BITS", &c.Layout.Level2Bits},
		{"OFFSET_BITS", &c.Layout.OffsetBits},
		{"TLB_CAPACITY", &c.TLBCapacity},
		{"FRAME_BITS", &c.PageTable.FrameBits},
	}

	for _, v := range ints {
		if err := envInt(lookup, v.name, v.dst); err != nil {
			return err
		}
	}

	if s, ok := lookup(EnvPrefix + "SEED"); ok {
		seed, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return envError("SEED", s, err)
		}

		c.Seed = seed
	}

	if s, ok := lookup(EnvPrefix + "DENSITY"); ok {
		density, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return envError("DENSITY", s, err)
		}

		c.PageTable.Density = density
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"PARALLEL", &c.Parallel},
		{"TRACE", &c.Trace.Enabled},
	}

	for _, v := range bools {
		if s, ok := lookup(EnvPrefix + v.name); ok {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return envError(v.name, s, err)
			}

			*v.dst = b
		}
	}

	strs := []struct {
		name string
		dst  *string
	}{
		{"ADDRESS_POLICY", &c.AddressPolicy},
		{"PAGE_TABLE_MODE", &c.PageTable.Mode},
		{"TRACE_PATH", &c.Trace.Path},
	}

	for _, v := range strs {
		if s, ok := lookup(EnvPrefix + v.name); ok {
			*v.dst = s
		}
	}

	return nil
}

func envInt(lookup LookupFunc, name string, dst *int) error {
	s, ok := lookup(EnvPrefix + name)
	if !ok {
		return nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return envError(name, s, err)
	}

	*dst = v

	return nil
}

func envError(name, value string, err error) error {
	return fmt.Errorf("%s%s=%q: %w", EnvPrefix, name, value, err)
}
