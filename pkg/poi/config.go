package poi

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/gilchrisn/poi-engine/pkg/clustering"
	"github.com/gilchrisn/poi-engine/pkg/graph"
)

// Config manages engine configuration using Viper
type Config struct {
	v *viper.Viper
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	v := viper.New()

	// Clustering parameters
	v.SetDefault("clustering.strategy", string(clustering.StrategyFastScan))
	v.SetDefault("clustering.mu", 3)
	v.SetDefault("clustering.epsilon", 0.40)

	// Importance parameters
	v.SetDefault("importance.max_iterations", DefaultMaxIterations)
	v.SetDefault("importance.tolerance", DefaultTolerance)
	v.SetDefault("importance.min_teleportation", DefaultMinTeleportation)
	v.SetDefault("importance.additive_teleportation", DefaultAdditiveTeleportation)
	v.SetDefault("importance.inter_level_weight", DefaultInterLevelWeight)
	v.SetDefault("importance.balance_weight", DefaultBalanceWeight)
	v.SetDefault("importance.outlink_weight", DefaultOutlinkWeight)
	v.SetDefault("importance.rank_weight", DefaultRankWeight)
	v.SetDefault("importance.use_net_outlinks", false)

	v.SetDefault("poi.grouping_interval", DefaultGroupingInterval)

	// Logging parameters
	v.SetDefault("logging.level", "info")

	v.SetDefault("analysis.track_iterations", false)
	v.SetDefault("analysis.output_file", "")

	return &Config{v: v}
}

// LoadFromFile loads configuration from file
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// Getters for clustering parameters
func (c *Config) Strategy() string { return c.v.GetString("clustering.strategy") }
func (c *Config) Mu() int { return c.v.GetInt("clustering.mu") }
func (c *Config) Epsilon() float64 { return c.v.GetFloat64("clustering.epsilon") }

func (c *Config) MaxIterations() int { return c.v.GetInt("importance.max_iterations") }
func (c *Config) Tolerance() float64 { return c.v.GetFloat64("importance.tolerance") }
func (c *Config) MinTeleportation() float64 { return c.v.GetFloat64("importance.min_teleportation") }
func (c *Config) AdditiveTeleportation() float64 { return c.v.GetFloat64("importance.additive_teleportation") }
func (c *Config) InterLevelWeight() float64 { return c.v.GetFloat64("importance.inter_level_weight") }
func (c *Config) BalanceWeight() float64 { return c.v.GetFloat64("importance.balance_weight") }
func (c *Config) OutlinkWeight() float64 { return c.v.GetFloat64("importance.outlink_weight") }
func (c *Config) RankWeight() float64 { return c.v.GetFloat64("importance.rank_weight") }
func (c *Config) UseNetOutlinks() bool { return c.v.GetBool("importance.use_net_outlinks") }

func (c *Config) GroupingInterval() int { return c.v.GetInt("poi.grouping_interval") }

func (c *Config) LogLevel() string { return c.v.GetString("logging.level") }

func (c *Config) TrackIterations() bool { return c.v.GetBool("analysis.track_iterations") }
func (c *Config) TrackingOutputFile() string { return c.v.GetString("analysis.output_file") }

// Set allows dynamic configuration changes
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// Options validates the configuration and freezes it into an Options value
func (c *Config) Options() (Options, error) {
	strategy, err := clustering.ParseStrategyType(c.Strategy())
	if err != nil {
		return Options{}, invalidConfigf("%v", err)
	}

	interval := c.GroupingInterval()
	if interval < 1 {
		return Options{}, invalidConfigf("grouping interval must be at least 1, got %d", interval)
	}

	opts := Options{
		Strategy:              strategy,
		Clustering:            graph.Params{Mu: c.Mu(), Epsilon: c.Epsilon()},
		MaxIterations:         c.MaxIterations(),
		Tolerance:             c.Tolerance(),
		MinTeleportation:      c.MinTeleportation(),
		AdditiveTeleportation: c.AdditiveTeleportation(),
		InterLevelWeight:      c.InterLevelWeight(),
		BalanceWeight:         c.BalanceWeight(),
		OutlinkWeight:         c.OutlinkWeight(),
		RankWeight:            c.RankWeight(),
		UseNetOutlinks:        c.UseNetOutlinks(),
		GroupingInterval:      uint64(interval),
		TrackIterations:       c.TrackIterations(),
		TrackingOutputFile:    c.TrackingOutputFile(),
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// CreateLogger creates a zerolog logger based on config
func (c *Config) CreateLogger() zerolog.Logger {
	return c.CreateLoggerTo(os.Stdout)
}

// CreateLoggerTo is CreateLogger writing to out
func (c *Config) CreateLoggerTo(out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
		NoColor:    out != os.Stdout,
	}).Level(level).With().Timestamp().Str("service", "poi").Logger()
}
