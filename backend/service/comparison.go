package service

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gilchrisn/poi-engine/backend/models"
	"github.com/gilchrisn/poi-engine/pkg/clustering"
	engine "github.com/gilchrisn/poi-engine/pkg/models"
	"github.com/gilchrisn/poi-engine/pkg/poi"
	"github.com/gilchrisn/poi-engine/pkg/validation"
)

// ComparisonService runs synchronous strategy comparisons
type ComparisonService struct {
	baseOptions poi.Options
}

// NewComparisonService creates a new comparison service
func NewComparisonService(baseOptions poi.Options) *ComparisonService {
	return &ComparisonService{baseOptions: baseOptions}
}

// Compare runs every requested strategy (all when none are named) on the
// snapshot and reports how far each lands from the first one
func (s *ComparisonService) Compare(snapshot *engine.Snapshot, params models.CalculationParameters, strategyNames []string) (*poi.Comparison, error) {
	opts := ApplyParameters(s.baseOptions, params)
	opts.TrackIterations = false
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := validation.ValidateSnapshot(snapshot); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	strategies := make([]clustering.StrategyType, 0, len(strategyNames))
	for _, name := range strategyNames {
		strategy, err := clustering.ParseStrategyType(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		strategies = append(strategies, strategy)
	}

	log.Info().
		Uint64("height", snapshot.Height).
		Int("accounts", snapshot.NumAccounts()).
		Strs("strategies", strategyNames).
		Msg("Starting comparison")

	comparison, err := poi.CompareStrategies(snapshot, opts, log.Logger, strategies...)
	if err != nil {
		return nil, fmt.Errorf("comparison failed: %w", err)
	}

	log.Info().
		Str("reference", comparison.Reference).
		Int("strategies", len(comparison.Strategies)).
		Msg("Comparison completed")

	return comparison, nil
}
