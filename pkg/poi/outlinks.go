package poi

import (
	"github.com/gilchrisn/poi-engine/pkg/matrix"
	"github.com/gilchrisn/poi-engine/pkg/models"
)

// OutlinkMatrix is the weighted account graph of a snapshot
type OutlinkMatrix struct {
	// Weights holds at (i, j) the summed weight of all outlinks i -> j
	Weights *matrix.SparseMatrix

	// Ignored counts outlinks dropped because they point at the owning
	// account or at an address outside the snapshot
	Ignored int
}

// BuildOutlinkMatrix aggregates the outlinks of a snapshot into an N x N
// matrix indexed by account position. With net set, the entry (i, j) is
// reduced by the reverse flow j -> i and dropped when not positive.
func BuildOutlinkMatrix(snapshot *models.Snapshot, net bool) *OutlinkMatrix {
	n := snapshot.NumAccounts()
	index := snapshot.IndexByAddress()
	gross := matrix.NewSparseMatrix(n, n, 2)

	ignored := 0
	for i, account := range snapshot.Accounts {
		for _, link := range account.Outlinks {
			j, ok := index[link.Counterparty]
			if !ok || j == i {
				ignored++
				continue
			}
			gross.Inc(i, j, link.Weight)
		}
	}

	if !net {
		return &OutlinkMatrix{Weights: gross, Ignored: ignored}
	}

	netted := gross.Clone()
	gross.Transpose().ForEachNonZero(func(row, col int, reverse float64) {
		netted.Inc(row, col, -reverse)
	})
	netted.RemoveNegatives()
	return &OutlinkMatrix{Weights: netted, Ignored: ignored}
}
