package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/poi-engine/pkg/clustering"
	"github.com/gilchrisn/poi-engine/pkg/graph"
	"github.com/gilchrisn/poi-engine/pkg/poi"
	"github.com/gilchrisn/poi-engine/pkg/validation"
)

type clusterFlags struct {
	Snapshot  string
	Strategy  string
	Proximity bool
}

func newClusterCommand(global *globalFlags, out, errOut io.Writer) *cobra.Command {
	flags := &clusterFlags{}

	cmd := &cobra.Command{
		Use:   "cluster --snapshot FILE",
		Short: "Print the clusters, hubs and outliers of a snapshot",
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
			if err := validation.ValidateSnapshot(snapshot); err != nil {
				return fmt.Errorf("%w: %w", poi.ErrInvalidSnapshot, err)
			}

			outlinks := poi.BuildOutlinkMatrix(snapshot, eng.options.UseNetOutlinks)
			nh, err := graph.BuildNeighborhood(outlinks.Weights, eng.options.Clustering)
			if err != nil {
				return err
			}
			strategy, err := clustering.NewStrategy(eng.options.Strategy, eng.logger)
			if err != nil {
				return err
			}
			result, err := strategy.Cluster(nh)
			if err != nil {
				return err
			}
			if err := validation.CheckPartition(result); err != nil {
				return err
			}

			addresses := snapshot.Addresses()
			fmt.Fprintf(out, "strategy %s, mu %d, epsilon %g\n", strategy.Name(), eng.options.Clustering.Mu, eng.options.Clustering.Epsilon)
			printGroup(out, "cluster", result.Clusters(), addresses)
			printGroup(out, "hub", result.Hubs(), addresses)
			printGroup(out, "outlier", result.Outliers(), addresses)

			if flags.Proximity {
				proximity, err := clustering.NewInterLevelProximityMatrix(result, nh)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\nproximity R, %d columns x %d accounts:\n%s\n",
					proximity.NumColumns(), len(addresses), proximity.R().ToDense())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.Snapshot, "snapshot", "", "snapshot file")
	cmd.Flags().StringVar(&flags.Strategy, "strategy", "", "clustering strategy, overrides the config")
	cmd.Flags().BoolVar(&flags.Proximity, "proximity", false, "also print the inter-level proximity matrix")
	return cmd
}

func printGroup(out io.Writer, kind string, groups []*clustering.Cluster, addresses []string) {
	for _, c := range groups {
		ids := c.Members().IDs()
		members := make([]string, len(ids))
		for i, node := range ids {
			members[i] = addresses[node]
		}
		fmt.Fprintf(out, "%s %d: %s\n", kind, c.ID().Raw(), strings.Join(members, " "))
	}
}
