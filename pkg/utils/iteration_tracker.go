package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// IterationEvent is one line of the iteration log
type IterationEvent struct {
	Iteration int     `json:"iteration"`
	Strategy  string  `json:"strategy"`
	Height    uint64  `json:"height"`
	Delta     float64 `json:"delta"`
	Timestamp int64   `json:"timestamp"`
}

// IterationTracker appends one JSON object per power-iteration step to a
// file. A nil tracker ignores every call.
type IterationTracker struct {
	file     *os.File
	encoder  *json.Encoder
	strategy string
	height   uint64
}

// NewIterationTracker creates filename and returns a tracker writing to it
func NewIterationTracker(filename, strategy string, height uint64) (*IterationTracker, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create iteration log: %w", err)
	}

	return &IterationTracker{
		file:     file,
		encoder:  json.NewEncoder(file),
		strategy: strategy,
		height:   height,
	}, nil
}

// LogIteration records the L1 delta reached by one iteration
func (t *IterationTracker) LogIteration(iteration int, delta float64) {
	if t == nil {
		return
	}

	event := IterationEvent{
		Iteration: iteration,
		Strategy:  t.strategy,
		Height:    t.height,
		Delta:     delta,
		Timestamp: time.Now().Unix(),
	}

	// diagnostics only; a failed write must not affect the calculation
	_ = t.encoder.Encode(event)
}

// Close closes the underlying file
func (t *IterationTracker) Close() error {
	if t == nil || t.file == nil {
		return nil
	}
	return t.file.Close()
}
