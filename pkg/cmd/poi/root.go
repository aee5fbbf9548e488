package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/poi-engine/pkg/models"
	"github.com/gilchrisn/poi-engine/pkg/parser"
	"github.com/gilchrisn/poi-engine/pkg/poi"
	"github.com/gilchrisn/poi-engine/pkg/validation"
)

var rootExample = `# importance of every account of a snapshot, top 20
%[1]s calculate --snapshot snapshot.json --top 20

# clusters, hubs and outliers found by plain SCAN
%[1]s cluster --snapshot transfers.edges --strategy scan

# grouped height of block 1000
%[1]s grouped-height 1000
`

// globalFlags are shared by every subcommand
type globalFlags struct {
	ConfigFile string
	LogLevel   string
}

// engine is the configuration every subcommand runs with
type engine struct {
	config  *poi.Config
	options poi.Options
	logger  zerolog.Logger
}

// load reads the config file, applies overrides and freezes the options.
// Logs go to errOut so results on out stay machine readable.
func (f *globalFlags) load(errOut io.Writer, overrides map[string]interface{}) (*engine, error) {
	config := poi.NewConfig()
	if f.ConfigFile != "" {
		if err := config.LoadFromFile(f.ConfigFile); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", f.ConfigFile, err)
		}
	}
	if f.LogLevel != "" {
		config.Set("logging.level", f.LogLevel)
	}
	for key, value := range overrides {
		config.Set(key, value)
	}

	options, err := config.Options()
	if err != nil {
		return nil, err
	}

	return &engine{
		config:  config,
		options: options,
		logger:  config.CreateLoggerTo(errOut),
	}, nil
}

// loadSnapshot checks the file and parses it
func loadSnapshot(path string) (*models.Snapshot, error) {
	if path == "" {
		return nil, fmt.Errorf("--snapshot is required")
	}
	if err := validation.ValidateFileFormat(path); err != nil {
		return nil, err
	}
	return parser.LoadSnapshot(path)
}

// NewRootCommand builds the poi command tree
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "poi",
		Short:         "Proof-of-importance clustering and scoring",
		Long:          "Clusters account graphs with SCAN variants and computes cluster-aware importance vectors",
		Example:       fmt.Sprintf(rootExample, "poi"),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVar(&flags.ConfigFile, "config", "", "configuration file (yaml, json or toml)")
	cmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "log level: debug, info, warn or error")

	cmd.AddCommand(
		newCalculateCommand(flags, out, errOut),
		newClusterCommand(flags, out, errOut),
		newCompareCommand(flags, out, errOut),
		newGroupedHeightCommand(flags, out, errOut),
		newGenerateCommand(out),
		newServeCommand(flags, errOut),
	)
	return cmd
}
