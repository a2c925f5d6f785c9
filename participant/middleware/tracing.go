package middleware

import (
	"context"

	"github.com/absmach/flparticipant/participant"
	"github.com/absmach/flparticipant/pkg/fl"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	_ participant.AnonymousClient   = (*tracingAnonymous)(nil)
	_ participant.CoordinatorClient = (*tracingCoordinator)(nil)
	_ participant.AggregatorClient  = (*tracingAggregator)(nil)
)

type tracingAnonymous struct {
	tracer trace.Tracer
	client participant.AnonymousClient
}

func Tracing(tracer trace.Tracer, client participant.AnonymousClient) participant.AnonymousClient {
	return &tracingAnonymous{tracer, client}
}

func (tm *tracingAnonymous) Rendezvous(ctx context.Context) (participant.CoordinatorClient, error) {
	ctx, span := tm.tracer.Start(ctx, "rendezvous")
	defer span.End()

	client, err := tm.client.Rendezvous(ctx)
	if err != nil {
		recordError(span, err)

		return nil, err
	}

	return &tracingCoordinator{tm.tracer, client}, nil
}

type tracingCoordinator struct {
	tracer trace.Tracer
	client participant.CoordinatorClient
}

func (tm *tracingCoordinator) Heartbeat(ctx context.Context) (resp fl.HeartbeatResponse, err error) {
	ctx, span := tm.tracer.Start(ctx, "heartbeat")
	defer span.End()

	resp, err = tm.client.Heartbeat(ctx)
	if err != nil {
		recordError(span, err)

		return resp, err
	}
	span.SetAttributes(attribute.String("state", resp.State))
	if resp.Round != nil {
		span.SetAttributes(attribute.Int("round", *resp.Round))
	}

	return resp, nil
}

func (tm *tracingCoordinator) StartTraining(ctx context.Context) (participant.AggregatorClient, error) {
	ctx, span := tm.tracer.Start(ctx, "start-training")
	defer span.End()

	client, err := tm.client.StartTraining(ctx)
	if err != nil {
		recordError(span, err)

		return nil, err
	}

	return &tracingAggregator{tm.tracer, client}, nil
}

func (tm *tracingCoordinator) Fork() (participant.CoordinatorClient, error) {
	client, err := tm.client.Fork()
	if err != nil {
		return nil, err
	}

	return &tracingCoordinator{tm.tracer, client}, nil
}

type tracingAggregator struct {
	tracer trace.Tracer
	client participant.AggregatorClient
}

func (tm *tracingAggregator) Download(ctx context.Context) (input fl.TrainingInput, err error) {
	ctx, span := tm.tracer.Start(ctx, "download")
	defer span.End()

	input, err = tm.client.Download(ctx)
	if err != nil {
		recordError(span, err)

		return input, err
	}
	span.SetAttributes(
		attribute.Int("round", input.Round),
		attribute.Bool("initialize", input.Initialize),
	)

	return input, nil
}

func (tm *tracingAggregator) Upload(ctx context.Context, result fl.TrainingResult) error {
	ctx, span := tm.tracer.Start(ctx, "upload", trace.WithAttributes(
		attribute.Int("weights", len(result.Weights)),
		attribute.Int("num_samples", result.NumSamples),
	))
	defer span.End()

	if err := tm.client.Upload(ctx, result); err != nil {
		recordError(span, err)

		return err
	}

	return nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
