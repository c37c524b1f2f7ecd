package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/tlbsim/mem/vm/pattern"
)

var decodeCmd = &cobra.Command{
	Use:   "decode ADDRESS...",
	Short: "Split virtual addresses into page table indices and offsets.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}

		layout, err := cfg.AddressLayout()
		if err != nil {
			return err
		}

		strict := cfg.StrictAddresses()
		out := c.OutOrStdout()

		for _, arg := range args {
			addrs, err := pattern.Parse(arg)
			if err != nil {
				return err
			}

			for _, va := range addrs {
				if strict {
					if _, _, err := layout.DecodeStrict(va); err != nil {
						return err
					}
				}

				key, offset := layout.Decode(va)
				fmt.Fprintf(out, "0x%x: level1=%d level2=%d offset=0x%x\n",
					va, key.Level1, key.Level2, offset)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)

	addConfigFlags(decodeCmd)
	decodeCmd.Flags().String("address-policy", "",
		"what to do with addresses wider than the layout: mask or reject")
}
