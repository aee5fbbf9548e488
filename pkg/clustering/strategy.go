package clustering

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/poi-engine/pkg/graph"
)

// Strategy partitions the nodes of a neighborhood.
// Every implementation returns a result satisfying the partition invariant
// or an error; a partially classified result is never returned.
type Strategy interface {
	Name() string
	Cluster(nh *graph.Neighborhood) (*ClusteringResult, error)
}

// StrategyType names a clustering strategy in configuration
type StrategyType string

const (
	StrategyScan              StrategyType = "scan"
	StrategyFastScan          StrategyType = "fast_scan"
	StrategyOutlierScan       StrategyType = "outlier_scan"
	StrategySingleClusterScan StrategyType = "single_cluster_scan"
)

// AllStrategyTypes returns every known strategy, the SCAN variants first
func AllStrategyTypes() []StrategyType {
	return []StrategyType{StrategyScan, StrategyFastScan, StrategyOutlierScan, StrategySingleClusterScan}
}

// ParseStrategyType maps a configuration string onto a StrategyType.
// Matching ignores case and accepts '-' for '_'.
func ParseStrategyType(value string) (StrategyType, error) {
	normalized := StrategyType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_"))
	for _, t := range AllStrategyTypes() {
		if normalized == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown clustering strategy %q", graph.ErrInvalidArgument, value)
}

// NewStrategy creates the strategy named by t
func NewStrategy(t StrategyType, logger zerolog.Logger) (Strategy, error) {
	switch t {
	case StrategyScan:
		return NewScan(logger), nil
	case StrategyFastScan:
		return NewFastScan(logger), nil
	case StrategyOutlierScan:
		return NewOutlierScan(), nil
	case StrategySingleClusterScan:
		return NewSingleClusterScan(), nil
	default:
		return nil, fmt.Errorf("%w: unknown clustering strategy %q", graph.ErrInvalidArgument, string(t))
	}
}
