package participant

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	pkgerrors "github.com/absmach/flparticipant/pkg/errors"
	"github.com/absmach/flparticipant/pkg/fl"
	"github.com/absmach/flparticipant/pkg/storage"
)

type Service struct {
	id        string
	name      string
	interval  time.Duration
	anonymous AnonymousClient
	trainer   Trainer
	notifier  StatusNotifier
	rounds    storage.Storage
	record    *StateRecord
	logger    *slog.Logger

	mu          sync.Mutex
	coordinator CoordinatorClient
	heartbeat   *Heartbeat
	stop        context.CancelFunc
	roundsDone  atomic.Uint64
}

func NewService(cfg Config, anonymous AnonymousClient, trainer Trainer, notifier StatusNotifier, rounds storage.Storage, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = Notifiers()
	}
	if rounds == nil {
		rounds = storage.NewInMemoryStorage()
	}

	return &Service{
		id:        cfg.ParticipantID,
		name:      cfg.Name,
		interval:  cfg.HeartbeatInterval,
		anonymous: anonymous,
		trainer:   trainer,
		notifier:  notifier,
		rounds:    rounds,
		record:    NewStateRecord(),
		logger:    logger,
	}
}

// Rendezvous registers with the coordinator and starts the heartbeat on a
// forked client. The heartbeat lives until ctx is cancelled or the session
// ends; it is never joined.
func (s *Service) Rendezvous(ctx context.Context) error {
	client, err := s.anonymous.Rendezvous(ctx)
	switch {
	case ctx.Err() != nil:
		s.logger.Warn("exiting: interrupt signal caught")

		return errors.Join(pkgerrors.ErrShutdownRequested, ctx.Err())
	case err != nil:
		s.logger.Error("rendezvous failed", slog.Any("error", err))

		return errors.Join(pkgerrors.ErrRendezvous, err)
	}

	hbClient, err := client.Fork()
	if err != nil {
		s.logger.Error("failed to fork heartbeat client", slog.Any("error", err))

		return errors.Join(pkgerrors.ErrRendezvous, err)
	}

	hbCtx, cancel := context.WithCancel(ctx)
	hb := NewHeartbeat(hbClient, s.record, s.interval, s.logger)

	s.mu.Lock()
	s.coordinator = client
	s.heartbeat = hb
	s.stop = cancel
	s.mu.Unlock()

	go s.supervise(hbCtx, hb)

	s.logger.Info("rendezvous completed", slog.String("participant_id", s.id))

	return nil
}

// supervise turns any exit of the heartbeat into a terminal record state so
// the driver never waits on a dead heartbeat.
func (s *Service) supervise(ctx context.Context, hb *Heartbeat) {
	err := hb.Run(ctx)
	switch {
	case err != nil:
		s.record.Terminate(errors.Join(pkgerrors.ErrHeartbeatFailure, err))
	case ctx.Err() != nil:
		s.record.Terminate(errors.Join(pkgerrors.ErrShutdownRequested, ctx.Err()))
	}
}

// Run performs the rendezvous and drives rounds until the session is Done.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Rendezvous(ctx); err != nil {
		return err
	}
	defer s.stopHeartbeat()

	for {
		var (
			phase Phase
			round int
			cause error
		)
		err := s.record.WithLock(func(r *StateRecord) error {
			var err error
			if _, err = r.WaitUntilSelectedOrDone(); err != nil {
				return err
			}
			if phase, round, err = r.Lookup(); err != nil {
				return err
			}
			cause = r.Err()

			return nil
		})
		if err != nil {
			return err
		}

		s.notify(ctx, phase, round)

		switch phase {
		case Done:
			if cause != nil {
				s.logger.Error("session aborted", slog.Any("error", cause))

				return cause
			}
			s.logger.Info("session finished", slog.Uint64("rounds_done", s.roundsDone.Load()))

			return nil
		case Training:
			if err := s.train(ctx, round); err != nil {
				return err
			}
			s.roundsDone.Add(1)

			if err := s.record.WithLock(func(r *StateRecord) error {
				return r.SetPhase(Waiting)
			}); err != nil {
				return err
			}
			s.notify(ctx, Waiting, round)
		}
	}
}

func (s *Service) train(ctx context.Context, round int) error {
	s.mu.Lock()
	coordinator := s.coordinator
	s.mu.Unlock()

	s.logger.Info("selected for round", slog.Int("round", round))
	started := time.Now().UTC()

	aggregator, err := coordinator.StartTraining(ctx)
	if err != nil {
		return err
	}

	input, err := aggregator.Download(ctx)
	if err != nil {
		return err
	}

	var result fl.TrainingResult
	if input.IsInitializationRound() {
		result, err = s.trainer.InitWeights(ctx)
	} else {
		result, err = s.trainer.TrainRound(ctx, input)
	}
	if err != nil {
		return err
	}
	if err := result.Validate(); err != nil {
		return err
	}

	if err := aggregator.Upload(ctx, result); err != nil {
		return err
	}

	s.logger.Info("round completed",
		slog.Int("round", round),
		slog.Bool("initialization", input.IsInitializationRound()),
		slog.Int("num_samples", result.NumSamples),
	)

	s.saveRound(ctx, Round{
		Round:          round,
		Initialization: input.IsInitializationRound(),
		NumSamples:     result.NumSamples,
		Metrics:        result.Metrics,
		StartedAt:      started,
		CompletedAt:    time.Now().UTC(),
	})

	return nil
}

// saveRound keys entries by sequence so a coordinator that repeats a round
// number does not overwrite history.
func (s *Service) saveRound(ctx context.Context, r Round) {
	key := strconv.FormatUint(s.roundsDone.Load(), 10)
	if err := s.rounds.Create(ctx, key, r); err != nil {
		s.logger.Warn("failed to save round history", slog.Int("round", r.Round), slog.Any("error", err))
	}
}

// ListRounds returns the rounds this participant uploaded, oldest first.
func (s *Service) ListRounds(ctx context.Context, offset, limit uint64) (RoundPage, error) {
	values, total, err := s.rounds.List(ctx, offset, limit)
	if err != nil {
		return RoundPage{}, err
	}

	page := RoundPage{
		Offset: offset,
		Limit:  limit,
		Total:  total,
		Rounds: make([]Round, 0, len(values)),
	}
	for _, v := range values {
		r, ok := v.(Round)
		if !ok {
			return RoundPage{}, pkgerrors.ErrInvalidData
		}
		page.Rounds = append(page.Rounds, r)
	}

	return page, nil
}

func (s *Service) notify(ctx context.Context, phase Phase, round int) {
	status := s.status(phase, round)
	if err := s.notifier.NotifyStatus(ctx, status); err != nil {
		s.logger.Warn("failed to publish status", slog.String("phase", phase.String()), slog.Any("error", err))
	}
}

func (s *Service) stopHeartbeat() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		s.stop()
	}
}

// Nudge asks the heartbeat to poll the coordinator now. It does nothing
// before rendezvous.
func (s *Service) Nudge() {
	s.mu.Lock()
	hb := s.heartbeat
	s.mu.Unlock()

	if hb != nil {
		hb.Nudge()
	}
}

func (s *Service) Status() Status {
	phase, round := s.record.Snapshot()

	return s.status(phase, round)
}

func (s *Service) status(phase Phase, round int) Status {
	return Status{
		ParticipantID: s.id,
		Name:          s.name,
		Phase:         phase,
		Round:         round,
		RoundsDone:    s.roundsDone.Load(),
		Notifications: s.record.Notifications(),
		Timestamp:     time.Now().UTC(),
	}
}
