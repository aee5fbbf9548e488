package poi

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/poi-engine/pkg/clustering"
	"github.com/gilchrisn/poi-engine/pkg/graph"
	"github.com/gilchrisn/poi-engine/pkg/louvain"
	"github.com/gilchrisn/poi-engine/pkg/models"
	"github.com/gilchrisn/poi-engine/pkg/validation"
)

// StrategyComparison summarizes one strategy run against the reference run
type StrategyComparison struct {
	Strategy   string  `json:"strategy"`
	Clusters   int     `json:"clusters"`
	Hubs       int     `json:"hubs"`
	Outliers   int     `json:"outliers"`
	Iterations int     `json:"iterations"`
	DurationMS float64 `json:"durationMs"`

	// ImportanceL1 is the L1 distance of the importance vector to the reference
	ImportanceL1 float64 `json:"importanceL1"`

	// RandIndex is the pairwise agreement of the clustering with the reference
	RandIndex float64 `json:"randIndex"`

	// PageRankL1 is the L1 distance of the importance vector to plain PageRank
	PageRankL1 float64 `json:"pageRankL1"`

	// LouvainRandIndex is the pairwise agreement with the modularity communities
	LouvainRandIndex float64 `json:"louvainRandIndex"`
}

// Comparison is the outcome of CompareStrategies
type Comparison struct {
	Height     uint64               `json:"height"`
	Reference  string               `json:"reference"`
	Strategies []StrategyComparison `json:"strategies"`
	PageRank   []float64            `json:"pageRank"`
	Louvain    *louvain.Result      `json:"louvain"`

	Results map[string]*Result `json:"-"`
}

// CompareStrategies runs the calculator once per strategy with otherwise
// identical options. The first strategy is the reference; every run is
// also measured against a balance-blind PageRank of the outlink graph and
// against the Louvain modularity communities of the same graph.
// With no strategies given, all known strategies are compared.
func CompareStrategies(snapshot *models.Snapshot, opts Options, logger zerolog.Logger, strategies ...clustering.StrategyType) (*Comparison, error) {
	if len(strategies) == 0 {
		strategies = clustering.AllStrategyTypes()
	}

	pageRank, err := validation.ComparePageRank(snapshot)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}

	outlinks := BuildOutlinkMatrix(snapshot, opts.UseNetOutlinks)
	communities, err := louvain.Run(outlinks.Weights, louvain.DefaultOptions(), logger)
	if err != nil {
		return nil, fmt.Errorf("louvain baseline: %w", err)
	}
	modularityPartition, err := louvainPartition(communities)
	if err != nil {
		return nil, err
	}

	comparison := &Comparison{
		Height:     snapshot.Height,
		Reference:  string(strategies[0]),
		Strategies: make([]StrategyComparison, 0, len(strategies)),
		PageRank:   pageRank,
		Louvain:    communities,
		Results:    make(map[string]*Result, len(strategies)),
	}

	var reference *Result
	for _, strategy := range strategies {
		runOpts := opts
		runOpts.Strategy = strategy
		runOpts.TrackIterations = false

		calculator, err := NewCalculator(runOpts, logger, nil)
		if err != nil {
			return nil, err
		}
		result, err := calculator.Calculate(snapshot)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", strategy, err)
		}
		if reference == nil {
			reference = result
		}
		comparison.Results[string(strategy)] = result

		entry := StrategyComparison{
			Strategy:   string(strategy),
			Clusters:   result.Clustering.NumClusters(),
			Hubs:       len(result.Clustering.Hubs()),
			Outliers:   len(result.Clustering.Outliers()),
			Iterations: result.Iterations,
			DurationMS: float64(result.Duration.Microseconds()) / 1000,
		}
		if entry.ImportanceL1, err = validation.L1Distance(reference.Importances, result.Importances); err != nil {
			return nil, err
		}
		if entry.RandIndex, err = validation.RandIndex(reference.Clustering, result.Clustering); err != nil {
			return nil, err
		}
		if entry.PageRankL1, err = validation.L1Distance(pageRank, result.Importances); err != nil {
			return nil, err
		}
		if entry.LouvainRandIndex, err = validation.RandIndex(modularityPartition, result.Clustering); err != nil {
			return nil, err
		}
		comparison.Strategies = append(comparison.Strategies, entry)

		logger.Debug().
			Str("strategy", entry.Strategy).
			Float64("importance_l1", entry.ImportanceL1).
			Float64("rand_index", entry.RandIndex).
			Msg("Strategy compared")
	}

	return comparison, nil
}

// louvainPartition turns modularity communities into regular clusters
// identified by their lowest member; a community of one node becomes an
// outlier
func louvainPartition(r *louvain.Result) (*clustering.ClusteringResult, error) {
	var clusters, outliers []*clustering.Cluster
	for _, members := range r.Groups() {
		if len(members) == 1 {
			outliers = append(outliers, clustering.NewSingletonCluster(graph.NodeID(members[0])))
			continue
		}
		ids := make([]graph.NodeID, len(members))
		for k, node := range members {
			ids[k] = graph.NodeID(node)
		}
		clusters = append(clusters, clustering.NewCluster(graph.ClusterIDOf(ids[0]), graph.NewNodeNeighbors(ids...)))
	}
	return clustering.NewClusteringResult(len(r.Communities), clusters, nil, outliers)
}
