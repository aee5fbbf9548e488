package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/poi-engine/pkg/clustering"
	"github.com/gilchrisn/poi-engine/pkg/poi"
)

type compareFlags struct {
	Snapshot   string
	Strategies []string
	Output     string
}

func newCompareCommand(global *globalFlags, out, errOut io.Writer) *cobra.Command {
	flags := &compareFlags{}

	cmd := &cobra.Command{
		Use:   "compare --snapshot FILE",
		Short: "Run several clustering strategies and compare their importance vectors",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			eng, err := global.load(errOut, nil)
			if err != nil {
				return err
			}
			snapshot, err := loadSnapshot(flags.Snapshot)
			if err != nil {
				return err
			}

			strategies := make([]clustering.StrategyType, 0, len(flags.Strategies))
			for _, name := range flags.Strategies {
				strategy, err := clustering.ParseStrategyType(name)
				if err != nil {
					return err
				}
				strategies = append(strategies, strategy)
			}

			comparison, err := poi.CompareStrategies(snapshot, eng.options, eng.logger, strategies...)
			if err != nil {
				return err
			}

			if flags.Output != "" {
				if err := writeJSON(flags.Output, comparison); err != nil {
					return err
				}
			}
			return printComparison(out, comparison)
		},
	}

	cmd.Flags().StringVar(&flags.Snapshot, "snapshot", "", "snapshot file")
	cmd.Flags().StringSliceVar(&flags.Strategies, "strategies", nil, "strategies to compare, the first is the reference (default all)")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "write the comparison as JSON to this file")
	return cmd
}

func printComparison(out io.Writer, comparison *poi.Comparison) error {
	fmt.Fprintf(out, "height %d, reference %s\n", comparison.Height, comparison.Reference)
	fmt.Fprintf(out, "louvain baseline: %d communities, modularity %.4f\n\n", comparison.Louvain.NumCommunities, comparison.Louvain.Modularity)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STRATEGY\tCLUSTERS\tHUBS\tOUTLIERS\tITERATIONS\tL1 TO REFERENCE\tRAND INDEX\tL1 TO PAGERANK\tLOUVAIN RAND\tMS")
	for _, s := range comparison.Strategies {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.6f\t%.4f\t%.6f\t%.4f\t%.2f\n",
			s.Strategy, s.Clusters, s.Hubs, s.Outliers, s.Iterations, s.ImportanceL1, s.RandIndex, s.PageRankL1, s.LouvainRandIndex, s.DurationMS)
	}
	return w.Flush()
}
