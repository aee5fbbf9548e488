package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/poi-engine/pkg/poi"
)

func newGroupedHeightCommand(global *globalFlags, out, errOut io.Writer) *cobra.Command {
	var interval uint64

	cmd := &cobra.Command{
		Use:   "grouped-height HEIGHT",
		Short: "Print the height whose importances apply at HEIGHT",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			height, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid height %q: %w", args[0], err)
			}

			if !c.Flags().Changed("interval") {
				eng, err := global.load(errOut, nil)
				if err != nil {
					return err
				}
				interval = eng.options.GroupingInterval
			}

			grouped, err := poi.GroupedHeight(height, interval)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, grouped)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&interval, "interval", poi.DefaultGroupingInterval, "grouping interval, overrides the config")
	return cmd
}
