package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/tlbsim/datarecording"
)

var traceCmd = &cobra.Command{
	Use:   "trace DATABASE",
	Short: "Print the accesses recorded by `run --trace`.",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		run, _ := c.Flags().GetString("run")
		outcome, _ := c.Flags().GetString("outcome")
		limit, _ := c.Flags().GetInt("limit")
		offset, _ := c.Flags().GetInt("offset")

		reader, err := datarecording.NewReader(args[0])
		if err != nil {
			return err
		}
		defer reader.Close()

		reader.MapTable(datarecording.AccessTable, datarecording.AccessEntry{})

		params := datarecording.QueryParams{
			OrderBy: "Run ASC, Seq ASC",
			Limit:   limit,
			Offset:  offset,
		}

		addFilter(&params, "Run = ?", run)
		addFilter(&params, "Outcome = ?", outcome)

		results, total, err := reader.Query(c.Context(),
			datarecording.AccessTable, params)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(c.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tSEQ\tVADDR\tPAGE\tOUTCOME\tPADDR")

		for _, r := range results {
			e := r.(*datarecording.AccessEntry)
			fmt.Fprintf(w, "%s\t%d\t%s\t(%d, %d)\t%s\t%s\n",
				e.Run, e.Seq, e.VirtualAddress, e.Level1, e.Level2,
				e.Outcome, e.PhysicalAddress)
		}

		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Fprintf(c.OutOrStdout(), "%d of %d accesses, from #%d\n",
			len(results), total, offset+1)

		return nil
	},
}

func addFilter(params *datarecording.QueryParams, clause, value string) {
	if value == "" {
		return
	}

	if params.Where != "" {
		params.Where += " AND "
	}

	params.Where += clause
	params.Args = append(params.Args, value)
}

func init() {
	rootCmd.AddCommand(traceCmd)

	f := traceCmd.Flags()
	f.String("run", "", "only show this run, such as tlbsim.Sequential")
	f.String("outcome", "", "only show hit, miss or fault accesses")
	f.Int("limit", 50, "maximum number of accesses to print, 0 for all")
	f.Int("offset", 0, "number of matching accesses to skip")
}
