package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/tlbsim/config"
)

// addConfigFlags registers the flags that select and override the
// configuration.
func addConfigFlags(c *cobra.Command) {
	f := c.Flags()
	f.String("config", "", "YAML configuration file")
	f.String("env-file", ".env", "dotenv file with TLBSIM_* overrides")
	f.Int("level1-bits", 0, "width of the level-1 index")
	f.Int("level2-bits", 0, "width of the level-2 index")
	f.Int("offset-bits", 0, "width of the page offset")
}

// loadConfig builds the configuration from, in increasing priority, the
// defaults, the config file, the environment and the command-line flags.
func loadConfig(c *cobra.Command) (config.Config, error) {
	f := c.Flags()

	cfg := config.Default()

	path, _ := f.GetString("config")
	if path != "" {
		var err error

		cfg, err = config.Load(path)
		if err != nil {
			return cfg, err
		}
	}

	envFile, _ := f.GetString("env-file")

	lookup, err := config.EnvLookup(envFile)
	if err != nil {
		return cfg, err
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return cfg, err
	}

	overrideInt(c, "level1-bits", &cfg.Layout.Level1Bits)
	overrideInt(c, "level2-bits", &cfg.Layout.Level2Bits)
	overrideInt(c, "offset-bits", &cfg.Layout.OffsetBits)
	overrideInt(c, "tlb-capacity", &cfg.TLBCapacity)
	overrideInt(c, "frame-bits", &cfg.PageTable.FrameBits)
	overrideInt64(c, "seed", &cfg.Seed)
	overrideFloat(c, "density", &cfg.PageTable.Density)
	overrideString(c, "page-table", &cfg.PageTable.Mode)
	overrideString(c, "address-policy", &cfg.AddressPolicy)
	overrideString(c, "trace-path", &cfg.Trace.Path)
	overrideBool(c, "parallel", &cfg.Parallel)
	overrideBool(c, "trace", &cfg.Trace.Enabled)

	return cfg, nil
}

func overrideInt(c *cobra.Command, name string, dst *int) {
	if f := c.Flags().Lookup(name); f != nil && f.Changed {
		*dst, _ = c.Flags().GetInt(name)
	}
}

func overrideInt64(c *cobra.Command, name string, dst *int64) {
	if f := c.Flags().Lookup(name); f != nil && f.Changed {
		*dst, _ = c.Flags().GetInt64(name)
	}
}

func overrideFloat(c *cobra.Command, name string, dst *float64) {
	if f := c.Flags().Lookup(name); f != nil && f.Changed {
		*dst, _ = c.Flags().GetFloat64(name)
	}
}

func overrideString(c *cobra.Command, name string, dst *string) {
	if f := c.Flags().Lookup(name); f != nil && f.Changed {
		*dst, _ = c.Flags().GetString(name)
	}
}

func overrideBool(c *cobra.Command, name string, dst *bool) {
	if f := c.Flags().Lookup(name); f != nil && f.Changed {
		*dst, _ = c.Flags().GetBool(name)
	}
}
