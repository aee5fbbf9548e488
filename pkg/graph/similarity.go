package graph

import "math"

// SimilarityStrategy scores how structurally alike two nodes are
type SimilarityStrategy interface {
	Similarity(a, b NodeID) (float64, error)
}

// StructuralSimilarity is the SCAN similarity
//
//	|N(a) ∩ N(b)| / sqrt(|N(a)| * |N(b)|)
//
// over self-inclusive neighbor sets. The size product is taken in integer
// arithmetic, so Similarity(a, b) and Similarity(b, a) are bit-identical.
type StructuralSimilarity struct {
	repository NeighborRepository
}

// NewStructuralSimilarity creates a similarity strategy over repository
func NewStructuralSimilarity(repository NeighborRepository) *StructuralSimilarity {
	return &StructuralSimilarity{repository: repository}
}

// Similarity returns the structural similarity of a and b
func (s *StructuralSimilarity) Similarity(a, b NodeID) (float64, error) {
	neighborsA, err := s.repository.Neighbors(a)
	if err != nil {
		return 0, err
	}
	neighborsB, err := s.repository.Neighbors(b)
	if err != nil {
		return 0, err
	}

	common := neighborsA.CommonNeighborsSize(neighborsB)
	sizeProduct := int64(neighborsA.Size()) * int64(neighborsB.Size())
	return float64(common) / math.Sqrt(float64(sizeProduct)), nil
}
