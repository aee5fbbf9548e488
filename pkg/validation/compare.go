package validation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/gilchrisn/poi-engine/pkg/clustering"
	"github.com/gilchrisn/poi-engine/pkg/graph"
	"github.com/gilchrisn/poi-engine/pkg/models"
)

// PageRank parameters of the balance-blind baseline
const (
	BaselineDamping   = 0.85
	BaselineTolerance = 1e-8
)

// CheckPartition re-verifies that every node of the result belongs to
// exactly one of its clusters, hubs or outliers and that IDForNode agrees.
func CheckPartition(result *clustering.ClusteringResult) error {
	owner := make([]int, result.NumNodes())
	for i := range owner {
		owner[i] = -1
	}

	for col, c := range result.Columns() {
		for _, node := range c.Members().IDs() {
			if node < 0 || int(node) >= result.NumNodes() {
				return fmt.Errorf("%w: node %d outside [0, %d)", graph.ErrInvariantViolation, node, result.NumNodes())
			}
			if owner[node] != -1 {
				return fmt.Errorf("%w: node %d in columns %d and %d", graph.ErrInvariantViolation, node, owner[node], col)
			}
			owner[node] = col

			id, err := result.IDForNode(node)
			if err != nil {
				return err
			}
			if id != c.ID() {
				return fmt.Errorf("%w: node %d indexed under %d but member of %d", graph.ErrInvariantViolation, node, id, c.ID())
			}
		}
	}

	for node, col := range owner {
		if col == -1 {
			return fmt.Errorf("%w: node %d unclassified", graph.ErrInvariantViolation, node)
		}
	}
	return nil
}

// RandIndex returns the fraction of node pairs on which two clusterings
// agree (both together or both apart). Hubs and outliers count as their
// own singleton groups.
func RandIndex(a, b *clustering.ClusteringResult) (float64, error) {
	if a.NumNodes() != b.NumNodes() {
		return 0, fmt.Errorf("%w: clusterings cover %d and %d nodes", graph.ErrInvalidArgument, a.NumNodes(), b.NumNodes())
	}

	n := a.NumNodes()
	if n < 2 {
		return 1, nil
	}

	labelsA := make([]graph.ClusterID, n)
	labelsB := make([]graph.ClusterID, n)
	for i := 0; i < n; i++ {
		var err error
		if labelsA[i], err = a.IDForNode(graph.NodeID(i)); err != nil {
			return 0, err
		}
		if labelsB[i], err = b.IDForNode(graph.NodeID(i)); err != nil {
			return 0, err
		}
	}

	var agreements, total int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			total++
			sameInA := labelsA[i] == labelsA[j]
			sameInB := labelsB[i] == labelsB[j]
			if sameInA == sameInB {
				agreements++
			}
		}
	}
	return float64(agreements) / float64(total), nil
}

// L1Distance returns sum(|a[i] - b[i]|), accumulated in index order
func L1Distance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: vectors of size %d and %d", graph.ErrInvalidArgument, len(a), len(b))
	}
	distance := 0.0
	for i := range a {
		distance += math.Abs(a[i] - b[i])
	}
	return distance, nil
}

// ComparePageRank computes plain PageRank over the unweighted outlink graph
// of the snapshot, index-aligned to its accounts. It ignores balances and
// clusters and serves as a baseline for the importance vector.
// Self-links and links to unknown addresses are skipped. The result sums
// to 1.
func ComparePageRank(snapshot *models.Snapshot) ([]float64, error) {
	if snapshot.NumAccounts() == 0 {
		return nil, fmt.Errorf("%w: snapshot has no accounts", graph.ErrInvalidArgument)
	}

	g := simple.NewDirectedGraph()
	for i := range snapshot.Accounts {
		g.AddNode(simple.Node(int64(i)))
	}

	index := snapshot.IndexByAddress()
	for i, account := range snapshot.Accounts {
		for _, link := range account.Outlinks {
			j, ok := index[link.Counterparty]
			if !ok || j == i {
				continue
			}
			g.SetEdge(g.NewEdge(simple.Node(int64(i)), simple.Node(int64(j))))
		}
	}

	scores := network.PageRank(g, BaselineDamping, BaselineTolerance)
	ranks := make([]float64, snapshot.NumAccounts())
	for id, score := range scores {
		ranks[id] = score
	}
	if total := floats.Sum(ranks); total > 0 {
		floats.Scale(1/total, ranks)
	}
	return ranks, nil
}
