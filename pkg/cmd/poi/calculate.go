package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/poi-engine/pkg/poi"
	"github.com/gilchrisn/poi-engine/pkg/validation"
)

type calculateFlags struct {
	Snapshot string
	Strategy string
	Output   string
	Top      int
}

func newCalculateCommand(global *globalFlags, out, errOut io.Writer) *cobra.Command {
	flags := &calculateFlags{Top: 10}

	cmd := &cobra.Command{
		Use:   "calculate --snapshot FILE",
		Short: "Compute the importance vector of a snapshot",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			eng, err := global.load(errOut, strategyOverride(flags.Strategy))
			if err != nil {
				return err
			}
			snapshot, err := loadSnapshot(flags.Snapshot)
			if err != nil {
				return err
			}

			calculator, err := poi.NewCalculator(eng.options, eng.logger, nil)
			if err != nil {
				return err
			}
			result, err := calculator.Calculate(snapshot)
			if err != nil {
				return err
			}

			if flags.Output != "" {
				if err := writeJSON(flags.Output, result); err != nil {
					return err
				}
			}
			return printImportances(out, result, flags.Top)
		},
	}

	cmd.Flags().StringVar(&flags.Snapshot, "snapshot", "", "snapshot file (.json, .yaml, .yml, .txt, .edges, .edgelist)")
	cmd.Flags().StringVar(&flags.Strategy, "strategy", "", "clustering strategy, overrides the config")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "write the full result as JSON to this file")
	cmd.Flags().IntVar(&flags.Top, "top", flags.Top, "print the N most important accounts (0 for all)")
	return cmd
}

func strategyOverride(strategy string) map[string]interface{} {
	if strategy == "" {
		return nil
	}
	return map[string]interface{}{"clustering.strategy": strategy}
}

func printImportances(out io.Writer, result *poi.Result, top int) error {
	order := make([]int, len(result.Importances))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return result.Importances[order[a]] > result.Importances[order[b]]
	})
	if top > 0 && top < len(order) {
		order = order[:top]
	}

	fmt.Fprintf(out, "height %d (grouped %d), strategy %s, %d iterations, delta %.3g\n",
		result.Height, result.GroupedHeight, result.Strategy, result.Iterations, result.FinalDelta)
	fmt.Fprintf(out, "clusters %d, hubs %d, outliers %d\n\n",
		result.Clustering.NumClusters(), len(result.Clustering.Hubs()), len(result.Clustering.Outliers()))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tADDRESS\tIMPORTANCE\tRANK")
	for position, i := range order {
		fmt.Fprintf(w, "%d\t%s\t%.8f\t%.8f\n", position+1, result.Addresses[i], result.Importances[i], result.Rank[i])
	}
	return w.Flush()
}

// writeJSON writes v indented to path, creating its directory
func writeJSON(path string, v interface{}) error {
	if err := validation.ValidateOutputDirectory(filepath.Dir(path)); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}
