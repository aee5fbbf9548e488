package poi

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/poi-engine/pkg/clustering"
	"github.com/gilchrisn/poi-engine/pkg/graph"
	"github.com/gilchrisn/poi-engine/pkg/louvain"
	"github.com/gilchrisn/poi-engine/pkg/matrix"
	"github.com/gilchrisn/poi-engine/pkg/models"
	"github.com/gilchrisn/poi-engine/pkg/utils"
)

// ===== HELPERS =====

// lineSnapshot builds a0 -> a1 -> ... -> a(n-1), every link of weight 10,
// with coin-day weighted balances equal to the balances
func lineSnapshot(balances ...float64) *models.Snapshot {
	snapshot := &models.Snapshot{Height: 1000}
	for i, balance := range balances {
		account := models.Account{
			Address:                fmt.Sprintf("a%d", i),
			Balance:                balance,
			CoinDayWeightedBalance: balance,
		}
		if i+1 < len(balances) {
			account.Outlinks = []models.Outlink{{Counterparty: fmt.Sprintf("a%d", i+1), Weight: 10}}
		}
		snapshot.Accounts = append(snapshot.Accounts, account)
	}
	return snapshot
}

func noInterLevel() Options {
	opts := DefaultOptions()
	opts.InterLevelWeight = 0
	return opts
}

func newTestCalculator(t *testing.T, opts Options) *Calculator {
	t.Helper()
	calculator, err := NewCalculator(opts, zerolog.Nop(), nil)
	require.NoError(t, err)
	return calculator
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

// ===== GROUPED HEIGHT =====

func TestGroupedHeight(t *testing.T) {
	tests := []struct {
		height   uint64
		interval uint64
		expected uint64
	}{
		{1, 359, 1},
		{358, 359, 1},
		{359, 359, 1},
		{360, 359, 359},
		{718, 359, 359},
		{719, 359, 718},
		{1000, 359, 718},
		{5, 1, 4},
		{1, 1, 1},
		{2, 1, 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.height, tt.interval), func(t *testing.T) {
			grouped, err := GroupedHeight(tt.height, tt.interval)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, grouped)
		})
	}
}

func TestGroupedHeightRejectsZero(t *testing.T) {
	_, err := GroupedHeight(0, 359)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = GroupedHeight(10, 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// ===== OPTIONS & CONFIG =====

func TestDefaultOptionsAreValid(t *testing.T) {
	opts := DefaultOptions()
	require.NoError(t, opts.Validate())
	assert.Equal(t, clustering.StrategyFastScan, opts.Strategy)
	assert.Equal(t, graph.DefaultParams(), opts.Clustering)
	assert.Equal(t, uint64(359), opts.GroupingInterval)
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *Options)
	}{
		{"unknown strategy", func(o *Options) { o.Strategy = "louvain" }},
		{"mu zero", func(o *Options) { o.Clustering.Mu = 0 }},
		{"epsilon above one", func(o *Options) { o.Clustering.Epsilon = 1.5 }},
		{"no iterations", func(o *Options) { o.MaxIterations = 0 }},
		{"zero tolerance", func(o *Options) { o.Tolerance = 0 }},
		{"negative min teleportation", func(o *Options) { o.MinTeleportation = -0.1 }},
		{"teleportation above one", func(o *Options) { o.MinTeleportation = 0.8; o.AdditiveTeleportation = 0.3 }},
		{"inter-level above one", func(o *Options) { o.InterLevelWeight = 1.1 }},
		{"negative balance weight", func(o *Options) { o.BalanceWeight = -1 }},
		{"negative outlink weight", func(o *Options) { o.OutlinkWeight = -1 }},
		{"zero rank weight", func(o *Options) { o.RankWeight = 0 }},
		{"zero grouping interval", func(o *Options) { o.GroupingInterval = 0 }},
		{"tracking without file", func(o *Options) { o.TrackIterations = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			assert.ErrorIs(t, opts.Validate(), ErrInvalidConfig)

			_, err := NewCalculator(opts, zerolog.Nop(), nil)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestConfigDefaultsMatchDefaultOptions(t *testing.T) {
	opts, err := NewConfig().Options()
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), opts)
}

func TestConfigSet(t *testing.T) {
	config := NewConfig()
	config.Set("clustering.strategy", "outlier-scan")
	config.Set("clustering.epsilon", 0.65)
	config.Set("importance.use_net_outlinks", true)

	opts, err := config.Options()
	require.NoError(t, err)
	assert.Equal(t, clustering.StrategyOutlierScan, opts.Strategy)
	assert.Equal(t, 0.65, opts.Clustering.Epsilon)
	assert.True(t, opts.UseNetOutlinks)

	config.Set("poi.grouping_interval", 0)
	_, err = config.Options()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poi.yaml")
	content := `
clustering:
  strategy: scan
  mu: 4
importance:
  max_iterations: 250
  inter_level_weight: 0.2
poi:
  grouping_interval: 100
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config := NewConfig()
	require.NoError(t, config.LoadFromFile(path))

	opts, err := config.Options()
	require.NoError(t, err)
	assert.Equal(t, clustering.StrategyScan, opts.Strategy)
	assert.Equal(t, 4, opts.Clustering.Mu)
	assert.Equal(t, 0.40, opts.Clustering.Epsilon)
	assert.Equal(t, 250, opts.MaxIterations)
	assert.Equal(t, 0.2, opts.InterLevelWeight)
	assert.Equal(t, uint64(100), opts.GroupingInterval)
	assert.Equal(t, "debug", config.LogLevel())
}

func TestConfigLoadFromMissingFile(t *testing.T) {
	config := NewConfig()
	assert.Error(t, config.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

// ===== OUTLINK MATRIX =====

func outlinkFixture() *models.Snapshot {
	return &models.Snapshot{
		Height: 10,
		Accounts: []models.Account{
			{Address: "A", Balance: 1, Outlinks: []models.Outlink{
				{Counterparty: "B", Weight: 10},
				{Counterparty: "C", Weight: 1},
				{Counterparty: "C", Weight: 2},
				{Counterparty: "A", Weight: 5},
				{Counterparty: "Z", Weight: 7},
			}},
			{Address: "B", Balance: 1, Outlinks: []models.Outlink{
				{Counterparty: "A", Weight: 4},
			}},
			{Address: "C", Balance: 1},
		},
	}
}

func TestBuildOutlinkMatrixGross(t *testing.T) {
	outlinks := BuildOutlinkMatrix(outlinkFixture(), false)

	assert.Equal(t, 2, outlinks.Ignored)
	assert.Equal(t, 3, outlinks.Weights.Rows())
	assert.Equal(t, 10.0, outlinks.Weights.At(0, 1))
	assert.Equal(t, 3.0, outlinks.Weights.At(0, 2))
	assert.Equal(t, 4.0, outlinks.Weights.At(1, 0))
	assert.Equal(t, 0.0, outlinks.Weights.At(0, 0))
	assert.Equal(t, 0, outlinks.Weights.RowSize(2))
}

func TestBuildOutlinkMatrixNet(t *testing.T) {
	outlinks := BuildOutlinkMatrix(outlinkFixture(), true)

	assert.Equal(t, 2, outlinks.Ignored)
	assert.Equal(t, 6.0, outlinks.Weights.At(0, 1))
	assert.Equal(t, 3.0, outlinks.Weights.At(0, 2))
	assert.Equal(t, 0.0, outlinks.Weights.At(1, 0))
	assert.Equal(t, 0, outlinks.Weights.RowSize(1))
}

// ===== SCORER =====

func TestOutlinkScores(t *testing.T) {
	outlinks := matrix.NewSparseMatrix(3, 3, 2)
	outlinks.Set(0, 1, 4)
	outlinks.Set(0, 2, 8)
	outlinks.Set(1, 2, 6)

	scores := outlinkScores(outlinks)

	// medians 6 and 6, totals 12 and 6
	assert.InDelta(t, 1.0, scores.At(0), 1e-12)
	assert.InDelta(t, 0.5, scores.At(1), 1e-12)
	assert.Equal(t, 0.0, scores.At(2))
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name     string
		weights  []float64
		expected float64
	}{
		{"single", []float64{5}, 5},
		{"pair", []float64{8, 4}, 6},
		{"odd", []float64{9, 1, 2}, 2},
		{"even", []float64{3, 1, 4, 2}, 2.5},
		{"repeated middle", []float64{7, 7, 1, 9}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, median(tt.weights))
		})
	}
}

func TestBlendRejectsNonFiniteInputs(t *testing.T) {
	rank := matrix.NewVectorFrom([]float64{0.5, 0.5})
	_, err := blend(blendWeights{1, 1, 1}, matrix.NewVectorFrom([]float64{1, 1}), matrix.NewVectorFrom([]float64{math.Inf(1), 0}), rank)
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
}

func TestBlendSizeMismatch(t *testing.T) {
	_, err := blend(blendWeights{1, 1, 1}, matrix.NewVector(2), matrix.NewVector(3), matrix.NewVector(3))
	assert.Error(t, err)
}

// ===== POWER ITERATION =====

func TestPowerIterationEqualBalances(t *testing.T) {
	result, err := newTestCalculator(t, noInterLevel()).Calculate(lineSnapshot(5, 5, 5, 5, 5))
	require.NoError(t, err)

	expected := []float64{0.087474, 0.156724, 0.211547, 0.254948, 0.289308}
	require.Len(t, result.Rank, len(expected))
	for i := range expected {
		assert.InDelta(t, expected[i], result.Rank[i], 1e-4, "rank[%d]", i)
	}
	for i := 1; i < len(result.Rank); i++ {
		assert.Greater(t, result.Rank[i], result.Rank[i-1])
	}
	assert.InDelta(t, 31, result.Iterations, 1)
	assert.Less(t, result.FinalDelta, DefaultTolerance)
	assert.InDelta(t, 1.0, sum(result.Rank), 1e-12)
}

func TestCalculateLineGraph(t *testing.T) {
	result, err := newTestCalculator(t, noInterLevel()).Calculate(lineSnapshot(1, 2, 3, 4, 5))
	require.NoError(t, err)

	expectedRank := []float64{0.176153, 0.227548, 0.227501, 0.203302, 0.165496}
	expectedImportance := []float64{0.180901, 0.207707, 0.230993, 0.252627, 0.127771}
	for i := range expectedRank {
		assert.InDelta(t, expectedRank[i], result.Rank[i], 1e-4, "rank[%d]", i)
		assert.InDelta(t, expectedImportance[i], result.Importances[i], 1e-4, "importance[%d]", i)
	}
	assert.InDelta(t, 19, result.Iterations, 1)
	assert.InDelta(t, 1.0, sum(result.Importances), 1e-12)

	assert.Equal(t, uint64(1000), result.Height)
	assert.Equal(t, uint64(718), result.GroupedHeight)
	assert.Equal(t, string(clustering.StrategyFastScan), result.Strategy)
	assert.Equal(t, []string{"a0", "a1", "a2", "a3", "a4"}, result.Addresses)
	assert.Equal(t, 0, result.IgnoredOutlinks)
}

func TestCalculateWithInterLevelProximity(t *testing.T) {
	result, err := newTestCalculator(t, DefaultOptions()).Calculate(lineSnapshot(1, 2, 3, 4, 5))
	require.NoError(t, err)

	require.Equal(t, 1, result.Clustering.NumClusters())
	assert.Equal(t, 5, result.Clustering.Clusters()[0].Size())

	expectedRank := []float64{0.182223, 0.231311, 0.227265, 0.200522, 0.158680}
	expectedImportance := []float64{0.181316, 0.207939, 0.230981, 0.252495, 0.127269}
	for i := range expectedRank {
		assert.InDelta(t, expectedRank[i], result.Rank[i], 1e-4, "rank[%d]", i)
		assert.InDelta(t, expectedImportance[i], result.Importances[i], 1e-4, "importance[%d]", i)
	}
	assert.InDelta(t, 17, result.Iterations, 1)
}

func TestCalculateOutlierScanProximity(t *testing.T) {
	opts := DefaultOptions()
	opts.Strategy = clustering.StrategyOutlierScan

	result, err := newTestCalculator(t, opts).Calculate(lineSnapshot(1, 2, 3, 4, 5))
	require.NoError(t, err)

	assert.Equal(t, 0, result.Clustering.NumClusters())
	assert.Len(t, result.Clustering.Outliers(), 5)

	expectedRank := []float64{0.183317, 0.233614, 0.229576, 0.198984, 0.154510}
	for i := range expectedRank {
		assert.InDelta(t, expectedRank[i], result.Rank[i], 1e-4, "rank[%d]", i)
	}
}

func TestCalculateIsDeterministic(t *testing.T) {
	calculator := newTestCalculator(t, DefaultOptions())
	snapshot := outlinkFixture()

	first, err := calculator.Calculate(snapshot)
	require.NoError(t, err)
	second, err := calculator.Calculate(snapshot)
	require.NoError(t, err)

	assert.Equal(t, first.Importances, second.Importances)
	assert.Equal(t, first.Rank, second.Rank)
	assert.Equal(t, first.Iterations, second.Iterations)
	assert.True(t, first.Clustering.Equal(second.Clustering))
	assert.Equal(t, 2, first.IgnoredOutlinks)
}

func TestCalculateSingleAccount(t *testing.T) {
	snapshot := &models.Snapshot{Height: 1, Accounts: []models.Account{{Address: "solo", Balance: 3, CoinDayWeightedBalance: 3}}}

	result, err := newTestCalculator(t, DefaultOptions()).Calculate(snapshot)
	require.NoError(t, err)

	assert.Equal(t, []float64{1}, result.Importances)
	assert.Equal(t, uint64(1), result.GroupedHeight)
	assert.Len(t, result.Clustering.Outliers(), 1)
}

func TestCalculateZeroCoinDayBalances(t *testing.T) {
	snapshot := lineSnapshot(1, 2, 3)
	for i := range snapshot.Accounts {
		snapshot.Accounts[i].CoinDayWeightedBalance = 0
	}

	result, err := newTestCalculator(t, noInterLevel()).Calculate(snapshot)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sum(result.Importances), 1e-12)
}

// ===== FAILURES =====

func TestCalculateNonConvergence(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxIterations = 2

	_, err := newTestCalculator(t, opts).Calculate(lineSnapshot(1, 2, 3, 4, 5))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNonConvergence)

	var nonConvergence *NonConvergenceError
	require.True(t, errors.As(err, &nonConvergence))
	assert.Equal(t, 2, nonConvergence.Iterations)
	assert.Greater(t, nonConvergence.LastDelta, nonConvergence.Tolerance)
}

func TestCalculateInvalidSnapshot(t *testing.T) {
	calculator := newTestCalculator(t, DefaultOptions())

	_, err := calculator.Calculate(nil)
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	_, err = calculator.Calculate(&models.Snapshot{Height: 5})
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	snapshot := lineSnapshot(1, 2)
	snapshot.Accounts[0].Balance = -1
	snapshot.Accounts[1].Address = "a0"
	_, err = calculator.Calculate(snapshot)
	require.ErrorIs(t, err, ErrInvalidSnapshot)

	var validationErrors models.ValidationErrors
	require.True(t, errors.As(err, &validationErrors))
	assert.GreaterOrEqual(t, len(validationErrors), 2)

	snapshot = lineSnapshot(1, 2)
	snapshot.Height = 0
	_, err = calculator.Calculate(snapshot)
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
}

func TestNonConvergenceErrorMessage(t *testing.T) {
	err := &NonConvergenceError{Iterations: 3, LastDelta: 0.5, Tolerance: 1e-8}
	assert.Contains(t, err.Error(), "3 iterations")
	assert.True(t, errors.Is(err, ErrNonConvergence))
}

// ===== METRICS =====

func TestCalculatorMetrics(t *testing.T) {
	metrics := NewMetrics("poi_test")
	calculator, err := NewCalculator(noInterLevel(), zerolog.Nop(), metrics)
	require.NoError(t, err)

	_, err = calculator.Calculate(lineSnapshot(1, 2, 3, 4, 5))
	require.NoError(t, err)
	_, err = calculator.Calculate(&models.Snapshot{})
	require.Error(t, err)

	strategy := string(clustering.StrategyFastScan)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Recalculations.WithLabelValues(strategy, OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Recalculations.WithLabelValues(strategy, OutcomeInvalidInput)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Clusters))

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var metrics *Metrics
	assert.NotPanics(t, func() {
		metrics.recordFailure("scan", OutcomeInvalidInput, 0)
	})
}

// ===== TRACKING =====

func TestCalculateTracksIterations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iterations.jsonl")
	opts := noInterLevel()
	opts.TrackIterations = true
	opts.TrackingOutputFile = path

	result, err := newTestCalculator(t, opts).Calculate(lineSnapshot(1, 2, 3, 4, 5))
	require.NoError(t, err)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var events []utils.IterationEvent
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var event utils.IterationEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &event))
		events = append(events, event)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, events, result.Iterations)
	assert.Equal(t, 1, events[0].Iteration)
	assert.Equal(t, uint64(1000), events[0].Height)
	assert.Equal(t, result.FinalDelta, events[len(events)-1].Delta)
}

// ===== COMPARISON =====

func TestCompareStrategies(t *testing.T) {
	comparison, err := CompareStrategies(lineSnapshot(1, 2, 3, 4, 5), DefaultOptions(), zerolog.Nop())
	require.NoError(t, err)

	require.Len(t, comparison.Strategies, len(clustering.AllStrategyTypes()))
	assert.Equal(t, comparison.Strategies[0].Strategy, comparison.Reference)
	assert.Equal(t, 0.0, comparison.Strategies[0].ImportanceL1)
	assert.Equal(t, 1.0, comparison.Strategies[0].RandIndex)
	assert.Len(t, comparison.PageRank, 5)
	assert.InDelta(t, 1.0, sum(comparison.PageRank), 1e-6)
	require.NotNil(t, comparison.Louvain)
	assert.Len(t, comparison.Louvain.Communities, 5)

	byName := make(map[string]StrategyComparison)
	for _, entry := range comparison.Strategies {
		byName[entry.Strategy] = entry
		assert.Contains(t, comparison.Results, entry.Strategy)
	}

	// scan and fast scan agree on the partition and hence on the vector
	scan := byName[string(clustering.StrategyScan)]
	fast := byName[string(clustering.StrategyFastScan)]
	assert.Equal(t, 1.0, scan.RandIndex)
	assert.InDelta(t, 0, scan.ImportanceL1, 1e-12)
	assert.Equal(t, fast.Clusters, scan.Clusters)

	outlier := byName[string(clustering.StrategyOutlierScan)]
	assert.Equal(t, 5, outlier.Outliers)
	assert.Greater(t, outlier.ImportanceL1, 0.0)

	for _, entry := range comparison.Strategies {
		assert.GreaterOrEqual(t, entry.LouvainRandIndex, 0.0)
		assert.LessOrEqual(t, entry.LouvainRandIndex, 1.0)
	}
}

func TestCompareStrategiesSubset(t *testing.T) {
	comparison, err := CompareStrategies(lineSnapshot(1, 2, 3), DefaultOptions(), zerolog.Nop(),
		clustering.StrategyOutlierScan, clustering.StrategySingleClusterScan)
	require.NoError(t, err)

	assert.Equal(t, string(clustering.StrategyOutlierScan), comparison.Reference)
	require.Len(t, comparison.Strategies, 2)
	assert.Less(t, comparison.Strategies[1].RandIndex, 1.0)
}

func TestCompareStrategiesLouvainBaseline(t *testing.T) {
	// two triangles joined by one outlink
	snapshot := &models.Snapshot{Height: 10}
	links := map[int][]int{0: {1}, 1: {2}, 2: {0, 3}, 3: {4}, 4: {5}, 5: {3}}
	for i := 0; i < 6; i++ {
		account := models.Account{Address: fmt.Sprintf("t%d", i), Balance: 1, CoinDayWeightedBalance: 1}
		for _, j := range links[i] {
			account.Outlinks = append(account.Outlinks, models.Outlink{Counterparty: fmt.Sprintf("t%d", j), Weight: 1})
		}
		snapshot.Accounts = append(snapshot.Accounts, account)
	}

	comparison, err := CompareStrategies(snapshot, DefaultOptions(), zerolog.Nop(), clustering.StrategyOutlierScan)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 0, 0, 1, 1, 1}, comparison.Louvain.Communities)
	assert.InDelta(t, 5.0/14.0, comparison.Louvain.Modularity, 1e-12)
	// all 15 pairs are apart under outlier scan; the 6 same-triangle pairs disagree
	assert.InDelta(t, 9.0/15.0, comparison.Strategies[0].LouvainRandIndex, 1e-12)
}

func TestLouvainPartitionMakesSingletonsOutliers(t *testing.T) {
	partition, err := louvainPartition(&louvain.Result{Communities: []int{0, 1, 0, 2, 1}, NumCommunities: 3})
	require.NoError(t, err)

	require.Equal(t, 2, partition.NumClusters())
	assert.Equal(t, graph.ClusterID(0), partition.Clusters()[0].ID())
	assert.Equal(t, graph.ClusterID(1), partition.Clusters()[1].ID())
	assert.True(t, partition.IsOutlier(3))
	assert.Empty(t, partition.Hubs())
}

func TestCompareStrategiesInvalidSnapshot(t *testing.T) {
	_, err := CompareStrategies(&models.Snapshot{}, DefaultOptions(), zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
}
