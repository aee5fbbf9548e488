package poi

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/poi-engine/pkg/clustering"
	"github.com/gilchrisn/poi-engine/pkg/graph"
	"github.com/gilchrisn/poi-engine/pkg/matrix"
	"github.com/gilchrisn/poi-engine/pkg/models"
	"github.com/gilchrisn/poi-engine/pkg/utils"
	"github.com/gilchrisn/poi-engine/pkg/validation"
)

// Result is the outcome of one importance recalculation
type Result struct {
	Height        uint64 `json:"height"`
	GroupedHeight uint64 `json:"groupedHeight"`
	Strategy      string `json:"strategy"`

	// Addresses and Importances are index-aligned with the snapshot accounts
	Addresses   []string  `json:"addresses"`
	Importances []float64 `json:"importances"`

	// Rank is the converged power-iteration vector before blending
	Rank       []float64 `json:"rank"`
	Iterations int       `json:"iterations"`
	FinalDelta float64   `json:"finalDelta"`

	Clustering      *clustering.ClusteringResult `json:"clustering"`
	IgnoredOutlinks int                          `json:"ignoredOutlinks"`
	Duration        time.Duration                `json:"duration"`
}

// Calculator computes importance vectors from snapshots.
// It keeps no state between calls beyond its options; every structure is
// rebuilt per Calculate, and concurrent calls on one calculator are safe.
type Calculator struct {
	opts    Options
	logger  zerolog.Logger
	metrics *Metrics
}

// NewCalculator validates opts and creates a calculator; metrics may be nil
func NewCalculator(opts Options, logger zerolog.Logger, metrics *Metrics) (*Calculator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{opts: opts, logger: logger, metrics: metrics}, nil
}

// Options returns the calculator options
func (c *Calculator) Options() Options { return c.opts }

// Calculate clusters the snapshot, runs the power iteration and blends the
// final importance vector. Invalid input fails before any iteration; a
// broken internal invariant or a non-converging iteration fails the whole
// call. No fallback vector is ever returned.
func (c *Calculator) Calculate(snapshot *models.Snapshot) (result *Result, err error) {
	start := time.Now()
	strategyName := string(c.opts.Strategy)

	defer func() {
		if err != nil {
			outcome := classify(err)
			c.metrics.recordFailure(strategyName, outcome, time.Since(start))
			level := zerolog.ErrorLevel
			if outcome == OutcomeInvalidInput {
				level = zerolog.WarnLevel
			}
			c.logger.WithLevel(level).Err(err).Str("strategy", strategyName).Str("outcome", outcome).Msg("Importance recalculation failed")
		}
	}()
	defer graph.RecoverInvariant(&err)

	if err := validation.ValidateSnapshot(snapshot); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	groupedHeight, err := GroupedHeight(snapshot.Height, c.opts.GroupingInterval)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	c.logger.Info().
		Uint64("height", snapshot.Height).
		Int("accounts", snapshot.NumAccounts()).
		Int("outlinks", snapshot.NumOutlinks()).
		Str("strategy", strategyName).
		Msg("Starting importance recalculation")

	outlinks := BuildOutlinkMatrix(snapshot, c.opts.UseNetOutlinks)
	if outlinks.Ignored > 0 {
		c.logger.Debug().Int("ignored", outlinks.Ignored).Msg("Ignored self and unknown outlinks")
	}

	clusteringResult, proximity, err := c.cluster(outlinks.Weights)
	if err != nil {
		return nil, err
	}

	var tracker *utils.IterationTracker
	if c.opts.TrackIterations {
		t, trackErr := utils.NewIterationTracker(c.opts.TrackingOutputFile, strategyName, snapshot.Height)
		if trackErr != nil {
			c.logger.Warn().Err(trackErr).Msg("Iteration tracking disabled")
		}
		tracker = t
		defer tracker.Close()
	}

	balances := matrix.NewVector(snapshot.NumAccounts())
	cdwBalances := matrix.NewVector(snapshot.NumAccounts())
	for i, account := range snapshot.Accounts {
		balances.Set(i, account.Balance)
		cdwBalances.Set(i, account.CoinDayWeightedBalance)
	}

	stochastic := outlinks.Weights.Clone()
	stochastic.NormalizeRows()

	iteration, err := newPowerIteration(c.opts, tracker, c.logger).run(balances, stochastic, proximity)
	if err != nil {
		return nil, err
	}

	importance, err := blend(
		blendWeights{balance: c.opts.BalanceWeight, outlink: c.opts.OutlinkWeight, rank: c.opts.RankWeight},
		cdwBalances, outlinkScores(outlinks.Weights), iteration.rank)
	if err != nil {
		return nil, err
	}

	result = &Result{
		Height:          snapshot.Height,
		GroupedHeight:   groupedHeight,
		Strategy:        strategyName,
		Addresses:       snapshot.Addresses(),
		Importances:     importance.Raw(),
		Rank:            iteration.rank.Raw(),
		Iterations:      iteration.iterations,
		FinalDelta:      iteration.delta,
		Clustering:      clusteringResult,
		IgnoredOutlinks: outlinks.Ignored,
		Duration:        time.Since(start),
	}
	c.metrics.recordSuccess(result)

	c.logger.Info().
		Uint64("grouped_height", groupedHeight).
		Int("clusters", clusteringResult.NumClusters()).
		Int("hubs", len(clusteringResult.Hubs())).
		Int("outliers", len(clusteringResult.Outliers())).
		Int("iterations", iteration.iterations).
		Float64("final_delta", iteration.delta).
		Dur("duration", result.Duration).
		Msg("Importance recalculation completed")

	return result, nil
}

// cluster runs the configured strategy and derives the proximity matrix
func (c *Calculator) cluster(outlinks *matrix.SparseMatrix) (*clustering.ClusteringResult, *clustering.InterLevelProximityMatrix, error) {
	nh, err := graph.BuildNeighborhood(outlinks, c.opts.Clustering)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	strategy, err := clustering.NewStrategy(c.opts.Strategy, c.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	result, err := strategy.Cluster(nh)
	if err != nil {
		return nil, nil, fmt.Errorf("clustering with %s failed: %w", strategy.Name(), err)
	}

	proximity, err := clustering.NewInterLevelProximityMatrix(result, nh)
	if err != nil {
		return nil, nil, fmt.Errorf("proximity matrix: %w", err)
	}
	return result, proximity, nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, ErrNonConvergence):
		return OutcomeNonConvergence
	case errors.Is(err, graph.ErrInvariantViolation):
		return OutcomeInvariantViolation
	default:
		return OutcomeInvalidInput
	}
}
