package participant

import (
	"context"
	"log/slog"
	"time"
)

// Heartbeat polls the coordinator and is the only writer of remote-driven
// transitions into the state record.
type Heartbeat struct {
	client   CoordinatorClient
	record   *StateRecord
	interval time.Duration
	nudge    chan struct{}
	logger   *slog.Logger
}

func NewHeartbeat(client CoordinatorClient, record *StateRecord, interval time.Duration, logger *slog.Logger) *Heartbeat {
	if interval <= 0 {
		interval = DefHeartbeatInterval
	}

	return &Heartbeat{
		client:   client,
		record:   record,
		interval: interval,
		nudge:    make(chan struct{}, 1),
		logger:   logger,
	}
}

// Nudge makes the next beat happen without waiting for the ticker.
func (h *Heartbeat) Nudge() {
	select {
	case h.nudge <- struct{}{}:
	default:
	}
}

// Run beats until ctx is cancelled, the record reaches Done, or a beat fails.
// Cancellation is not an error; a failed beat is returned as is.
func (h *Heartbeat) Run(ctx context.Context) error {
	h.logger.Debug("heartbeat starting", slog.String("interval", h.interval.String()))

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		done, err := h.beat(ctx)
		switch {
		case ctx.Err() != nil:
			h.logger.Debug("heartbeat exiting: shutdown requested")

			return nil
		case err != nil:
			h.logger.Error("error while sending heartbeat, exiting", slog.Any("error", err))

			return err
		case done:
			h.logger.Debug("heartbeat exiting: session done")

			return nil
		}

		select {
		case <-ctx.Done():
			h.logger.Debug("heartbeat exiting: shutdown requested")

			return nil
		case <-ticker.C:
		case <-h.nudge:
		}
	}
}

func (h *Heartbeat) beat(ctx context.Context) (bool, error) {
	resp, err := h.client.Heartbeat(ctx)
	if err != nil {
		return false, err
	}

	sig, err := DecodeSignal(resp)
	if err != nil {
		return false, err
	}

	var done bool
	err = h.record.WithLock(func(r *StateRecord) error {
		if err := sig.Apply(r); err != nil {
			return err
		}
		phase, _, err := r.Lookup()
		done = phase == Done

		return err
	})

	return done, err
}
