package poi

import (
	"math"

	"github.com/gilchrisn/poi-engine/pkg/clustering"
	"github.com/gilchrisn/poi-engine/pkg/graph"
)

// Options is the frozen parameter set of one calculator.
// It is passed by value; nothing in the engine reads global state.
type Options struct {
	Strategy   clustering.StrategyType `json:"strategy" yaml:"strategy"`
	Clustering graph.Params            `json:"clustering" yaml:"clustering"`

	MaxIterations         int     `json:"maxIterations" yaml:"maxIterations"`
	Tolerance             float64 `json:"tolerance" yaml:"tolerance"`
	MinTeleportation      float64 `json:"minTeleportation" yaml:"minTeleportation"`
	AdditiveTeleportation float64 `json:"additiveTeleportation" yaml:"additiveTeleportation"`

	// InterLevelWeight is the share of link-following mass routed through
	// the proximity row of the account's cluster
	InterLevelWeight float64 `json:"interLevelWeight" yaml:"interLevelWeight"`

	BalanceWeight  float64 `json:"balanceWeight" yaml:"balanceWeight"`
	OutlinkWeight  float64 `json:"outlinkWeight" yaml:"outlinkWeight"`
	RankWeight     float64 `json:"rankWeight" yaml:"rankWeight"`
	UseNetOutlinks bool    `json:"useNetOutlinks" yaml:"useNetOutlinks"`

	GroupingInterval uint64 `json:"groupingInterval" yaml:"groupingInterval"`

	TrackIterations    bool   `json:"trackIterations" yaml:"trackIterations"`
	TrackingOutputFile string `json:"trackingOutputFile" yaml:"trackingOutputFile"`
}

// Defaults
const (
	DefaultMaxIterations         = 100
	DefaultTolerance             = 1e-8
	DefaultMinTeleportation      = 0.70
	DefaultAdditiveTeleportation = 0.25
	DefaultInterLevelWeight      = 0.10
	DefaultBalanceWeight         = 1.0
	DefaultOutlinkWeight         = 1.25
	DefaultRankWeight            = 0.1337
	DefaultGroupingInterval      = 359
)

// DefaultOptions returns the default parameter set
func DefaultOptions() Options {
	return Options{
		Strategy:              clustering.StrategyFastScan,
		Clustering:            graph.DefaultParams(),
		MaxIterations:         DefaultMaxIterations,
		Tolerance:             DefaultTolerance,
		MinTeleportation:      DefaultMinTeleportation,
		AdditiveTeleportation: DefaultAdditiveTeleportation,
		InterLevelWeight:      DefaultInterLevelWeight,
		BalanceWeight:         DefaultBalanceWeight,
		OutlinkWeight:         DefaultOutlinkWeight,
		RankWeight:            DefaultRankWeight,
		GroupingInterval:      DefaultGroupingInterval,
	}
}

// Validate checks every parameter; nothing is clamped
func (o Options) Validate() error {
	if _, err := clustering.ParseStrategyType(string(o.Strategy)); err != nil {
		return invalidConfigf("%v", err)
	}
	if err := o.Clustering.Validate(); err != nil {
		return invalidConfigf("%v", err)
	}

	switch {
	case o.MaxIterations < 1:
		return invalidConfigf("max iterations must be at least 1, got %d", o.MaxIterations)
	case !(o.Tolerance > 0) || math.IsInf(o.Tolerance, 0):
		return invalidConfigf("tolerance must be positive and finite, got %v", o.Tolerance)
	case !nonNegative(o.MinTeleportation):
		return invalidConfigf("min teleportation must be non-negative, got %v", o.MinTeleportation)
	case !nonNegative(o.AdditiveTeleportation):
		return invalidConfigf("additive teleportation must be non-negative, got %v", o.AdditiveTeleportation)
	case o.MinTeleportation+o.AdditiveTeleportation > 1:
		return invalidConfigf("min + additive teleportation must not exceed 1, got %v",
			o.MinTeleportation+o.AdditiveTeleportation)
	case !nonNegative(o.InterLevelWeight) || o.InterLevelWeight > 1:
		return invalidConfigf("inter-level weight must be in [0, 1], got %v", o.InterLevelWeight)
	case !nonNegative(o.BalanceWeight):
		return invalidConfigf("balance weight must be non-negative, got %v", o.BalanceWeight)
	case !nonNegative(o.OutlinkWeight):
		return invalidConfigf("outlink weight must be non-negative, got %v", o.OutlinkWeight)
	case !(o.RankWeight > 0) || math.IsInf(o.RankWeight, 0):
		return invalidConfigf("rank weight must be positive, got %v", o.RankWeight)
	case o.GroupingInterval < 1:
		return invalidConfigf("grouping interval must be at least 1, got %d", o.GroupingInterval)
	case o.TrackIterations && o.TrackingOutputFile == "":
		return invalidConfigf("iteration tracking needs an output file")
	}
	return nil
}

func nonNegative(value float64) bool {
	return value >= 0 && !math.IsInf(value, 0)
}
