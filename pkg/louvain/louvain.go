// Package louvain detects modularity communities in an account graph. It
// serves as a clustering-agnostic baseline when comparing SCAN strategies.
//
// Nodes are visited in ascending order and ties go to the lowest community
// label, so a given graph always yields the same partition.
package louvain

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/poi-engine/pkg/matrix"
)

// Options bounds the optimization
type Options struct {
	MaxLevels int     `json:"maxLevels"`
	MaxPasses int     `json:"maxPasses"` // local-move passes per level
	MinGain   float64 `json:"minGain"`   // a move must beat staying by more than this
}

// DefaultOptions returns the default bounds
func DefaultOptions() Options {
	return Options{MaxLevels: 10, MaxPasses: 100, MinGain: 1e-12}
}

// Validate checks the bounds
func (o Options) Validate() error {
	if o.MaxLevels < 1 {
		return fmt.Errorf("max levels must be at least 1, got %d", o.MaxLevels)
	}
	if o.MaxPasses < 1 {
		return fmt.Errorf("max passes must be at least 1, got %d", o.MaxPasses)
	}
	if o.MinGain < 0 {
		return fmt.Errorf("min gain must be non-negative, got %g", o.MinGain)
	}
	return nil
}

// Result is the final partition of the original nodes
type Result struct {
	// Communities holds one label per node, numbered 0.. in order of the
	// lowest node of each community
	Communities    []int   `json:"communities"`
	NumCommunities int     `json:"numCommunities"`
	Modularity     float64 `json:"modularity"`
	Levels         int     `json:"levels"`
	Moves          int     `json:"moves"`
}

// Groups returns the members of each community in ascending order
func (r *Result) Groups() [][]int {
	groups := make([][]int, r.NumCommunities)
	for node, c := range r.Communities {
		groups[c] = append(groups[c], node)
	}
	return groups
}

// Run symmetrizes the outlink matrix and optimizes modularity level by
// level until a level makes no move
func Run(outlinks *matrix.SparseMatrix, opts Options, logger zerolog.Logger) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	original, err := FromOutlinks(outlinks)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	membership := make([]int, original.NumNodes)
	for i := range membership {
		membership[i] = i
	}

	g := original
	result := &Result{}
	for level := 0; level < opts.MaxLevels && g.TotalWeight > 0; level++ {
		s := newState(g)
		moves := s.optimize(opts)
		if moves == 0 {
			break
		}
		result.Moves += moves
		result.Levels++

		relabel := s.relabel()
		for i, c := range membership {
			membership[i] = relabel[s.community[c]]
		}
		g = s.aggregate(relabel)

		logger.Debug().
			Int("level", level).
			Int("moves", moves).
			Int("communities", g.NumNodes).
			Msg("Louvain level completed")
	}

	result.Communities = canonical(membership)
	for _, c := range result.Communities {
		if c >= result.NumCommunities {
			result.NumCommunities = c + 1
		}
	}
	if result.Modularity, err = Modularity(original, result.Communities); err != nil {
		return nil, err
	}

	logger.Info().
		Int("nodes", original.NumNodes).
		Int("communities", result.NumCommunities).
		Float64("modularity", result.Modularity).
		Int("levels", result.Levels).
		Dur("duration", time.Since(start)).
		Msg("Louvain completed")
	return result, nil
}

// state is the community assignment of one level
type state struct {
	g         *Graph
	community []int
	total     []float64 // summed degree per community
}

func newState(g *Graph) *state {
	s := &state{g: g, community: make([]int, g.NumNodes), total: make([]float64, g.NumNodes)}
	for i := 0; i < g.NumNodes; i++ {
		s.community[i] = i
		s.total[i] = g.Degrees[i]
	}
	return s
}

// optimize moves single nodes to the neighboring community with the best
// modularity gain until a pass makes no move; it returns the move count
func (s *state) optimize(opts Options) int {
	m2 := 2 * s.g.TotalWeight
	moves := 0

	for pass := 0; pass < opts.MaxPasses; pass++ {
		passMoves := 0
		for node := 0; node < s.g.NumNodes; node++ {
			links := s.linksToCommunities(node)
			degree := s.g.Degrees[node]
			current := s.community[node]

			s.total[current] -= degree
			best := current
			bestGain := links[current] - s.total[current]*degree/m2

			labels := make([]int, 0, len(links))
			for c := range links {
				labels = append(labels, c)
			}
			sort.Ints(labels)
			for _, c := range labels {
				if gain := links[c] - s.total[c]*degree/m2; gain > bestGain+opts.MinGain {
					best, bestGain = c, gain
				}
			}

			s.total[best] += degree
			if best != current {
				s.community[node] = best
				passMoves++
			}
		}

		moves += passMoves
		if passMoves == 0 {
			break
		}
	}
	return moves
}

// linksToCommunities sums the weight from node to each neighboring
// community; the node's own community is always present
func (s *state) linksToCommunities(node int) map[int]float64 {
	links := map[int]float64{s.community[node]: 0}
	for k, j := range s.g.Neighbors[node] {
		links[s.community[j]] += s.g.Weights[node][k]
	}
	return links
}

// relabel maps the used community labels onto 0.. in node order
func (s *state) relabel() map[int]int {
	relabel := make(map[int]int)
	for _, c := range s.community {
		if _, ok := relabel[c]; !ok {
			relabel[c] = len(relabel)
		}
	}
	return relabel
}

// aggregate collapses every community into one node; internal edges
// become self-loops
func (s *state) aggregate(relabel map[int]int) *Graph {
	b := newBuilder(len(relabel))
	for i := 0; i < s.g.NumNodes; i++ {
		ci := relabel[s.community[i]]
		if self := s.g.SelfLoops[i]; self > 0 {
			b.addEdge(ci, ci, self)
		}
		for k, j := range s.g.Neighbors[i] {
			if j > i {
				b.addEdge(ci, relabel[s.community[j]], s.g.Weights[i][k])
			}
		}
	}
	return b.graph()
}

// canonical renumbers labels by first appearance
func canonical(labels []int) []int {
	seen := make(map[int]int)
	out := make([]int, len(labels))
	for i, c := range labels {
		id, ok := seen[c]
		if !ok {
			id = len(seen)
			seen[c] = id
		}
		out[i] = id
	}
	return out
}
