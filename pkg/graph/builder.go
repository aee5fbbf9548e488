package graph

import "github.com/gilchrisn/poi-engine/pkg/matrix"

// BuildNeighborhood wires a neighbor map, structural similarity and the
// parameters into a neighborhood over the given outlink matrix
func BuildNeighborhood(outlinks *matrix.SparseMatrix, params Params) (*Neighborhood, error) {
	neighborMap, err := NewNodeNeighborMap(outlinks)
	if err != nil {
		return nil, err
	}
	return NewNeighborhood(neighborMap, NewStructuralSimilarity(neighborMap), params)
}
