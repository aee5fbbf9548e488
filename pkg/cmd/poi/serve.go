package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/poi-engine/backend"
	"github.com/gilchrisn/poi-engine/backend/config"
	"github.com/gilchrisn/poi-engine/pkg/poi"
)

func newServeCommand(global *globalFlags, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve calculations over HTTP (settings from SERVER_*, JOB_* and CORS_* variables)",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			eng, err := global.load(errOut, nil)
			if err != nil {
				return err
			}
			log.Logger = eng.logger

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := backend.NewServer(cfg, eng.options, poi.NewMetrics("poi"))
			return server.Run(ctx)
		},
	}
}
