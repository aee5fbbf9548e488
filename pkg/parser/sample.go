package parser

import (
	"fmt"
	"math/rand"

	"github.com/gilchrisn/poi-engine/pkg/models"
)

// SampleConfig shapes a generated snapshot
type SampleConfig struct {
	Height      uint64
	Communities int
	Size        int // accounts per community

	// IntraDegree is the number of outlinks each account sends inside its
	// community; Bridges is the number of links between communities
	IntraDegree int
	Bridges     int

	Seed int64
}

// DefaultSampleConfig returns a small snapshot with clear community structure
func DefaultSampleConfig() SampleConfig {
	return SampleConfig{
		Height:      720,
		Communities: 3,
		Size:        8,
		IntraDegree: 4,
		Bridges:     4,
		Seed:        1,
	}
}

// GenerateSnapshot builds a synthetic snapshot of dense communities joined
// by a few bridges, with random balances. The output depends only on cfg.
func GenerateSnapshot(cfg SampleConfig) (*models.Snapshot, error) {
	if cfg.Communities < 1 || cfg.Size < 1 {
		return nil, fmt.Errorf("need at least one community of one account, got %d x %d", cfg.Communities, cfg.Size)
	}
	if cfg.IntraDegree < 0 || cfg.IntraDegree >= cfg.Size {
		return nil, fmt.Errorf("intra-community degree %d must be in [0, %d)", cfg.IntraDegree, cfg.Size)
	}
	if cfg.Bridges < 0 {
		return nil, fmt.Errorf("bridges must be non-negative, got %d", cfg.Bridges)
	}
	if cfg.Height < 1 {
		cfg.Height = DefaultHeight
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	n := cfg.Communities * cfg.Size
	snapshot := &models.Snapshot{Height: cfg.Height, Accounts: make([]models.Account, n)}

	for i := range snapshot.Accounts {
		balance := float64(1 + rng.Intn(1000))
		snapshot.Accounts[i] = models.Account{
			Address:                fmt.Sprintf("acct%04d", i),
			Balance:                balance,
			CoinDayWeightedBalance: balance * rng.Float64(),
		}
	}

	link := func(from, to int) {
		snapshot.Accounts[from].Outlinks = append(snapshot.Accounts[from].Outlinks, models.Outlink{
			Counterparty: snapshot.Accounts[to].Address,
			Weight:       float64(1 + rng.Intn(100)),
		})
	}

	// each account links to the next IntraDegree accounts of its community
	for c := 0; c < cfg.Communities; c++ {
		base := c * cfg.Size
		for k := 0; k < cfg.Size; k++ {
			for d := 1; d <= cfg.IntraDegree; d++ {
				link(base+k, base+(k+d)%cfg.Size)
			}
		}
	}

	if cfg.Communities > 1 {
		for b := 0; b < cfg.Bridges; b++ {
			from := rng.Intn(n)
			to := rng.Intn(n)
			if from/cfg.Size == to/cfg.Size {
				to = (to + cfg.Size) % n
			}
			link(from, to)
		}
	}

	return snapshot, nil
}
