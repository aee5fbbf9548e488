package graph

import (
	"math"
)

// Params are the clustering parameters of one neighborhood
type Params struct {
	// Mu is the minimum number of similar neighbors (pivot included) of a core node
	Mu int `json:"mu" yaml:"mu"`

	// Epsilon is the similarity a neighbor must exceed to count as similar
	Epsilon float64 `json:"epsilon" yaml:"epsilon"`
}

// DefaultParams returns mu = 3, epsilon = 0.40
func DefaultParams() Params {
	return Params{Mu: 3, Epsilon: 0.40}
}

// Validate checks the parameters are usable
func (p Params) Validate() error {
	if p.Mu < 1 {
		return invalidArgumentf("mu must be at least 1, got %d", p.Mu)
	}
	if math.IsNaN(p.Epsilon) || p.Epsilon < 0 || p.Epsilon > 1 {
		return invalidArgumentf("epsilon must be in [0, 1], got %v", p.Epsilon)
	}
	return nil
}

// Neighborhood answers community queries over an immutable neighbor
// repository. Communities are memoized per pivot for the lifetime of the
// instance; the instance is not safe for concurrent use.
type Neighborhood struct {
	repository  NeighborRepository
	similarity  SimilarityStrategy
	params      Params
	communities map[NodeID]*Community
}

// NewNeighborhood creates a neighborhood with the given parameters
func NewNeighborhood(repository NeighborRepository, similarity SimilarityStrategy, params Params) (*Neighborhood, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Neighborhood{
		repository:  repository,
		similarity:  similarity,
		params:      params,
		communities: make(map[NodeID]*Community),
	}, nil
}

// Size returns the number of nodes
func (n *Neighborhood) Size() int { return n.repository.LogicalSize() }

// Params returns the clustering parameters
func (n *Neighborhood) Params() Params { return n.params }

// Neighbors returns the self-inclusive neighbor set of id
func (n *Neighborhood) Neighbors(id NodeID) (*NodeNeighbors, error) {
	return n.repository.Neighbors(id)
}

// Community returns the community of pivot.
// A neighbor is similar when its similarity to the pivot is strictly greater
// than epsilon; the pivot itself is always similar.
func (n *Neighborhood) Community(pivot NodeID) (*Community, error) {
	if community, ok := n.communities[pivot]; ok {
		return community, nil
	}

	neighbors, err := n.repository.Neighbors(pivot)
	if err != nil {
		return nil, err
	}

	similar := &NodeNeighbors{ids: make([]NodeID, 0, neighbors.Size())}
	dissimilar := &NodeNeighbors{}
	for _, id := range neighbors.ids {
		if id == pivot {
			similar.addNeighbor(id)
			continue
		}

		score, err := n.similarity.Similarity(pivot, id)
		if err != nil {
			return nil, err
		}
		if score > n.params.Epsilon {
			similar.addNeighbor(id)
		} else {
			dissimilar.addNeighbor(id)
		}
	}

	community := NewCommunity(pivot, similar, dissimilar, n.params.Mu)
	n.communities[pivot] = community
	return community, nil
}

// NeighboringCommunities returns the community of every neighbor of pivot,
// in ascending neighbor order (pivot included)
func (n *Neighborhood) NeighboringCommunities(pivot NodeID) ([]*Community, error) {
	neighbors, err := n.repository.Neighbors(pivot)
	if err != nil {
		return nil, err
	}

	communities := make([]*Community, 0, neighbors.Size())
	for _, id := range neighbors.ids {
		community, err := n.Community(id)
		if err != nil {
			return nil, err
		}
		communities = append(communities, community)
	}
	return communities, nil
}

// TwoHopAwayNeighbors returns the nodes reachable through a similar neighbor
// of pivot that are not direct neighbors of pivot (so never pivot itself)
func (n *Neighborhood) TwoHopAwayNeighbors(pivot NodeID) (*NodeNeighbors, error) {
	community, err := n.Community(pivot)
	if err != nil {
		return nil, err
	}

	similar := community.SimilarNeighbors()
	sets := make([]*NodeNeighbors, 0, similar.Size())
	for _, id := range similar.ids {
		neighbors, err := n.repository.Neighbors(id)
		if err != nil {
			return nil, err
		}
		sets = append(sets, neighbors)
	}

	direct, err := n.repository.Neighbors(pivot)
	if err != nil {
		return nil, err
	}
	return UnionNeighbors(sets...).Difference(direct), nil
}

// CachedCommunities returns the number of memoized communities
func (n *Neighborhood) CachedCommunities() int { return len(n.communities) }
