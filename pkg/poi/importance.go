package poi

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/poi-engine/pkg/clustering"
	"github.com/gilchrisn/poi-engine/pkg/matrix"
	"github.com/gilchrisn/poi-engine/pkg/utils"
)

// powerIteration is the balance-teleporting, cluster-aware PageRank variant.
//
// Each step, account i holds link-following mass m = teleport[i] * prev[i].
// Dangling accounts pool their mass for uniform redistribution. Everyone
// else sends (1 - w) * m along its row-stochastic outlinks and w * m along
// the proximity row of its cluster, w being the inter-level weight. Every
// account then receives its share of the pool and the constant
// (1 - teleport[j]), and the vector is normalized to sum 1.
type powerIteration struct {
	maxIterations    int
	tolerance        float64
	minTeleport      float64
	additiveTeleport float64
	interLevelWeight float64

	tracker *utils.IterationTracker
	logger  zerolog.Logger
}

type iterationResult struct {
	rank       *matrix.Vector
	iterations int
	delta      float64
}

func newPowerIteration(opts Options, tracker *utils.IterationTracker, logger zerolog.Logger) *powerIteration {
	return &powerIteration{
		maxIterations:    opts.MaxIterations,
		tolerance:        opts.Tolerance,
		minTeleport:      opts.MinTeleportation,
		additiveTeleport: opts.AdditiveTeleportation,
		interLevelWeight: opts.InterLevelWeight,
		tracker:          tracker,
		logger:           logger,
	}
}

// teleportation returns min + additive * (initial[i] / max(initial))
func (p *powerIteration) teleportation(initial *matrix.Vector) *matrix.Vector {
	highest := initial.Max()
	teleport := matrix.NewVector(initial.Size())
	for i := 0; i < initial.Size(); i++ {
		teleport.Set(i, p.minTeleport+p.additiveTeleport*(initial.At(i)/highest))
	}
	return teleport
}

// run iterates from the normalized balances until the L1 delta between
// successive vectors drops below the tolerance. stochastic must be
// row-stochastic (or empty for dangling rows); proximity may be nil when the
// inter-level weight is zero.
func (p *powerIteration) run(balances *matrix.Vector, stochastic *matrix.SparseMatrix, proximity *clustering.InterLevelProximityMatrix) (*iterationResult, error) {
	n := balances.Size()
	if stochastic.Rows() != n || stochastic.Cols() != n {
		return nil, fmt.Errorf("%w: outlink matrix is %dx%d for %d accounts", ErrInvalidSnapshot, stochastic.Rows(), stochastic.Cols(), n)
	}
	if p.interLevelWeight > 0 && proximity == nil {
		return nil, invalidConfigf("inter-level weight %v needs a proximity matrix", p.interLevelWeight)
	}

	prev := balances.Clone()
	if err := prev.Normalize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	teleport := p.teleportation(prev)

	// incoming[j] lists the accounts linking to j, so each step is a pull
	incoming := stochastic.Transpose()
	var members, spread *matrix.SparseMatrix
	if p.interLevelWeight > 0 {
		members = proximity.A().Transpose()
		spread = proximity.R().Transpose()
	}

	delta := 0.0
	for iteration := 1; iteration <= p.maxIterations; iteration++ {
		follow := matrix.NewVector(n)
		inter := matrix.NewVector(n)
		dangling := 0.0

		for i := 0; i < n; i++ {
			mass := teleport.At(i) * prev.At(i)
			if stochastic.RowSize(i) == 0 {
				dangling += mass
				continue
			}
			follow.Set(i, (1-p.interLevelWeight)*mass)
			inter.Set(i, p.interLevelWeight*mass)
		}

		next, err := p.step(incoming, members, spread, follow, inter)
		if err != nil {
			return nil, err
		}

		share := dangling / float64(n)
		for j := 0; j < n; j++ {
			next.Inc(j, share+(1-teleport.At(j)))
		}
		if err := next.Normalize(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
		if !next.IsFinite() {
			return nil, fmt.Errorf("%w: importance vector is not finite after iteration %d", ErrInvalidSnapshot, iteration)
		}

		delta, err = next.L1Distance(prev)
		if err != nil {
			return nil, err
		}
		prev = next

		p.tracker.LogIteration(iteration, delta)
		p.logger.Debug().
			Int("iteration", iteration).
			Float64("delta", delta).
			Msg("Importance iteration")

		if delta < p.tolerance {
			return &iterationResult{rank: prev, iterations: iteration, delta: delta}, nil
		}
	}

	return nil, &NonConvergenceError{Iterations: p.maxIterations, LastDelta: delta, Tolerance: p.tolerance}
}

// step moves the link-following mass along the outlinks and, when an
// inter-level weight is set, gathers the inter-level mass per cluster and
// spreads it along the proximity rows
func (p *powerIteration) step(incoming, members, spread *matrix.SparseMatrix, follow, inter *matrix.Vector) (*matrix.Vector, error) {
	next, err := incoming.MultiplyVector(follow)
	if err != nil {
		return nil, err
	}
	if members == nil {
		return next, nil
	}

	perCluster, err := members.MultiplyVector(inter)
	if err != nil {
		return nil, err
	}
	received, err := spread.MultiplyVector(perCluster)
	if err != nil {
		return nil, err
	}
	if err := next.Add(received); err != nil {
		return nil, err
	}
	return next, nil
}
