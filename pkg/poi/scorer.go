package poi

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/gilchrisn/poi-engine/pkg/matrix"
)

// blendWeights are the coefficients of the final importance blend
type blendWeights struct {
	balance float64
	outlink float64
	rank    float64
}

// outlinkScores returns, per account, the median of its aggregated
// outlink weights scaled by the largest such median, times its total
// outlink weight scaled by the largest total. Accounts without outlinks
// score zero.
func outlinkScores(outlinks *matrix.SparseMatrix) *matrix.Vector {
	n := outlinks.Rows()
	medians := matrix.NewVector(n)
	totals := outlinks.RowSums()

	for i := 0; i < n; i++ {
		if outlinks.RowSize(i) == 0 {
			continue
		}
		weights := make([]float64, 0, outlinks.RowSize(i))
		outlinks.ForEachInRow(i, func(_ int, weight float64) {
			weights = append(weights, weight)
		})
		medians.Set(i, median(weights))
	}

	medians.NormalizeByMax()
	totals.NormalizeByMax()

	scores := matrix.NewVector(n)
	for i := 0; i < n; i++ {
		scores.Set(i, medians.At(i)*totals.At(i))
	}
	return scores
}

// median sorts weights in place and returns the middle value, or the mean
// of the two middle values for an even count
func median(weights []float64) float64 {
	sort.Float64s(weights)
	k := len(weights)
	if k%2 == 1 {
		return weights[k/2]
	}
	return stat.Mean(weights[k/2-1:k/2+1], nil)
}

// blend combines the max-normalized coin-day weighted balance, the outlink
// score and the max-normalized rank, and normalizes the sum to 1
func blend(weights blendWeights, cdwBalances, outlinkScore, rank *matrix.Vector) (*matrix.Vector, error) {
	n := rank.Size()
	if cdwBalances.Size() != n || outlinkScore.Size() != n {
		return nil, fmt.Errorf("blend inputs of size %d, %d and %d", cdwBalances.Size(), outlinkScore.Size(), n)
	}

	importance := cdwBalances.Clone()
	importance.NormalizeByMax()
	importance.Scale(weights.balance)

	outlink := outlinkScore.Clone()
	outlink.Scale(weights.outlink)
	if err := importance.Add(outlink); err != nil {
		return nil, err
	}

	rankN := rank.Clone()
	rankN.NormalizeByMax()
	rankN.Scale(weights.rank)
	if err := importance.Add(rankN); err != nil {
		return nil, err
	}

	if err := importance.Normalize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if !importance.IsFinite() {
		return nil, fmt.Errorf("%w: blended importance is not finite", ErrInvalidSnapshot)
	}
	return importance, nil
}
