package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/flparticipant/participant"
	"github.com/absmach/flparticipant/pkg/fl"
)

var (
	_ participant.AnonymousClient   = (*loggingAnonymous)(nil)
	_ participant.CoordinatorClient = (*loggingCoordinator)(nil)
	_ participant.AggregatorClient  = (*loggingAggregator)(nil)
)

type loggingAnonymous struct {
	logger *slog.Logger
	client participant.AnonymousClient
}

// Logging decorates every client obtained through the returned anonymous
// client, including forked and per-round ones.
func Logging(logger *slog.Logger, client participant.AnonymousClient) participant.AnonymousClient {
	return &loggingAnonymous{
		logger: logger,
		client: client,
	}
}

func (lm *loggingAnonymous) Rendezvous(ctx context.Context) (client participant.CoordinatorClient, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Rendezvous failed", args...)

			return
		}
		lm.logger.Info("Rendezvous completed successfully", args...)
	}(time.Now())

	client, err = lm.client.Rendezvous(ctx)
	if err != nil {
		return nil, err
	}

	return &loggingCoordinator{logger: lm.logger, client: client}, nil
}

type loggingCoordinator struct {
	logger *slog.Logger
	client participant.CoordinatorClient
}

func (lm *loggingCoordinator) Heartbeat(ctx context.Context) (resp fl.HeartbeatResponse, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("state", resp.State),
		}
		if resp.Round != nil {
			args = append(args, slog.Int("round", *resp.Round))
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Heartbeat failed", args...)

			return
		}
		lm.logger.Debug("Heartbeat completed successfully", args...)
	}(time.Now())

	return lm.client.Heartbeat(ctx)
}

func (lm *loggingCoordinator) StartTraining(ctx context.Context) (client participant.AggregatorClient, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Start training failed", args...)

			return
		}
		lm.logger.Info("Start training completed successfully", args...)
	}(time.Now())

	client, err = lm.client.StartTraining(ctx)
	if err != nil {
		return nil, err
	}

	return &loggingAggregator{logger: lm.logger, client: client}, nil
}

func (lm *loggingCoordinator) Fork() (participant.CoordinatorClient, error) {
	client, err := lm.client.Fork()
	if err != nil {
		lm.logger.Warn("Fork coordinator client failed", slog.Any("error", err))

		return nil, err
	}

	return &loggingCoordinator{logger: lm.logger, client: client}, nil
}

type loggingAggregator struct {
	logger *slog.Logger
	client participant.AggregatorClient
}

func (lm *loggingAggregator) Download(ctx context.Context) (input fl.TrainingInput, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("input",
				slog.Int("round", input.Round),
				slog.Bool("initialize", input.Initialize),
				slog.Int("weights", len(input.Weights)),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Download training input failed", args...)

			return
		}
		lm.logger.Info("Download training input completed successfully", args...)
	}(time.Now())

	return lm.client.Download(ctx)
}

func (lm *loggingAggregator) Upload(ctx context.Context, result fl.TrainingResult) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("result",
				slog.Int("weights", len(result.Weights)),
				slog.Int("num_samples", result.NumSamples),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Upload training result failed", args...)

			return
		}
		lm.logger.Info("Upload training result completed successfully", args...)
	}(time.Now())

	return lm.client.Upload(ctx, result)
}
