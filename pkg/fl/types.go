package fl

import (
	"fmt"
	"math"
)

// TrainingInput is what the aggregator hands to a participant selected for
// a round.
type TrainingInput struct {
	Round       int            `json:"round"                 cbor:"round"`
	Initialize  bool           `json:"initialize"            cbor:"initialize"`
	Weights     []float64      `json:"weights,omitempty"     cbor:"weights,omitempty"`
	Hyperparams map[string]any `json:"hyperparams,omitempty" cbor:"hyperparams,omitempty"`
}

// IsInitializationRound reports whether the aggregator expects freshly
// initialized weights instead of a training step.
func (t TrainingInput) IsInitializationRound() bool {
	return t.Initialize
}

type TrainingResult struct {
	Weights    []float64      `json:"weights"           cbor:"weights"`
	NumSamples int            `json:"num_samples"       cbor:"num_samples"`
	Metrics    map[string]any `json:"metrics,omitempty" cbor:"metrics,omitempty"`
}

func (r TrainingResult) Validate() error {
	if len(r.Weights) == 0 {
		return fmt.Errorf("training result: weights are empty: %w", ErrMalformedResult)
	}
	if r.NumSamples < 0 {
		return fmt.Errorf("training result: negative sample count %d: %w", r.NumSamples, ErrMalformedResult)
	}
	for i, w := range r.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("training result: weight %d is not finite: %w", i, ErrMalformedResult)
		}
	}

	return nil
}

// HeartbeatResponse is the coordinator's reply to a heartbeat. Round is only
// set when State is "round".
type HeartbeatResponse struct {
	State string `json:"state"`
	Round *int   `json:"round,omitempty"`
}
