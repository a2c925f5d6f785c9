package participant

import (
	"context"
	"errors"
	"time"
)

type Status struct {
	ParticipantID string    `json:"participant_id"`
	Name          string    `json:"name"`
	Phase         Phase     `json:"phase"`
	Round         int       `json:"round"`
	RoundsDone    uint64    `json:"rounds_done"`
	Notifications uint64    `json:"notifications"`
	Timestamp     time.Time `json:"timestamp"`
}

// Round is the history entry kept for every round the participant uploaded.
type Round struct {
	Round          int            `json:"round"`
	Initialization bool           `json:"initialization"`
	NumSamples     int            `json:"num_samples"`
	Metrics        map[string]any `json:"metrics,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	CompletedAt    time.Time      `json:"completed_at"`
}

type RoundPage struct {
	Offset uint64  `json:"offset"`
	Limit  uint64  `json:"limit"`
	Total  uint64  `json:"total"`
	Rounds []Round `json:"rounds"`
}

type notifiers []StatusNotifier

// Notifiers fans a status out to every non-nil notifier.
func Notifiers(n ...StatusNotifier) StatusNotifier {
	ns := make(notifiers, 0, len(n))
	for _, notifier := range n {
		if notifier != nil {
			ns = append(ns, notifier)
		}
	}

	return ns
}

func (ns notifiers) NotifyStatus(ctx context.Context, status Status) error {
	var errs []error
	for _, n := range ns {
		if err := n.NotifyStatus(ctx, status); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
