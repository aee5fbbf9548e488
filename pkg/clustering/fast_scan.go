package clustering

import (
	"container/heap"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/poi-engine/pkg/graph"
)

// FastScan produces the same partition as Scan while skipping community
// computations for members whose whole neighborhood already sits inside
// the growing cluster.
//
// Pivots are processed in ascending id order. After a pivot is expanded,
// its two-hop neighbors that already belong to the cluster are queued as
// pivots. Every other absorbed member is checked once the pivot queue
// drains: it is expanded only if some neighbor is still outside the
// cluster, since otherwise its similar neighbors are all members already.
type FastScan struct {
	logger zerolog.Logger
}

// NewFastScan creates a FastScan strategy
func NewFastScan(logger zerolog.Logger) *FastScan {
	return &FastScan{logger: logger}
}

// Name returns "fast_scan"
func (s *FastScan) Name() string { return string(StrategyFastScan) }

// Cluster partitions the nodes of nh
func (s *FastScan) Cluster(nh *graph.Neighborhood) (result *ClusteringResult, err error) {
	defer graph.RecoverInvariant(&err)
	start := time.Now()

	a := newArena(nh)
	doneBy := make([]graph.ClusterID, nh.Size())
	for i := range doneBy {
		doneBy[i] = unvisited
	}
	skipped := 0

	for i := 0; i < nh.Size(); i++ {
		node := graph.NodeID(i)
		if a.state[node] != unvisited {
			continue
		}

		community, err := nh.Community(node)
		if err != nil {
			return nil, err
		}
		if !community.IsCore() || community.IsIsolated() {
			a.state[node] = nonMember
			continue
		}

		id := a.open(node)
		var pending []graph.NodeID
		collect := func(n graph.NodeID, _ graph.ClusterID) { pending = append(pending, n) }
		a.absorb(id, community.SimilarNeighbors(), collect)

		pivots := &nodeHeap{node}
		for {
			for pivots.Len() > 0 {
				pivot := heap.Pop(pivots).(graph.NodeID)
				if doneBy[pivot] == id {
					continue
				}
				doneBy[pivot] = id

				pc, err := nh.Community(pivot)
				if err != nil {
					return nil, err
				}
				if pc.IsCore() {
					a.absorb(id, pc.SimilarNeighbors(), collect)
				}

				twoHop, err := nh.TwoHopAwayNeighbors(pivot)
				if err != nil {
					return nil, err
				}
				for _, q := range twoHop.IDs() {
					if a.state[q] == id && doneBy[q] != id {
						heap.Push(pivots, q)
					}
				}
			}

			sort.Slice(pending, func(x, y int) bool { return pending[x] < pending[y] })
			for _, member := range pending {
				if doneBy[member] == id {
					continue
				}
				enclosed, err := a.neighborsAllIn(member, id)
				if err != nil {
					return nil, err
				}
				if enclosed {
					doneBy[member] = id
					skipped++
					continue
				}
				heap.Push(pivots, member)
			}
			pending = pending[:0]

			if pivots.Len() == 0 {
				break
			}
		}
		a.dissolveIfAlone(id)
	}

	result, err = a.finish()
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int("nodes", nh.Size()).
		Int("clusters", result.NumClusters()).
		Int("hubs", len(result.Hubs())).
		Int("outliers", len(result.Outliers())).
		Int("skipped_expansions", skipped).
		Dur("duration", time.Since(start)).
		Msg("FastScan clustering completed")
	return result, nil
}

// nodeHeap is a min-heap of node ids
type nodeHeap []graph.NodeID

func (h nodeHeap) Len() int            { return len(h) }
func (h nodeHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x interface{}) { *h = append(*h, x.(graph.NodeID)) }
func (h *nodeHeap) Pop() interface{} {
	old := *h
	item := old[len(old)-1]
	*h = old[:len(old)-1]
	return item
}
