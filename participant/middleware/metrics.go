package middleware

import (
	"context"
	"time"

	"github.com/absmach/flparticipant/participant"
	"github.com/absmach/flparticipant/pkg/fl"
	"github.com/go-kit/kit/metrics"
)

var (
	_ participant.AnonymousClient   = (*metricsAnonymous)(nil)
	_ participant.CoordinatorClient = (*metricsCoordinator)(nil)
	_ participant.AggregatorClient  = (*metricsAggregator)(nil)
)

type instruments struct {
	counter metrics.Counter
	latency metrics.Histogram
}

func (in instruments) observe(method string, begin time.Time) {
	in.counter.With("method", method).Add(1)
	in.latency.With("method", method).Observe(time.Since(begin).Seconds())
}

type metricsAnonymous struct {
	instruments
	client participant.AnonymousClient
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, client participant.AnonymousClient) participant.AnonymousClient {
	return &metricsAnonymous{
		instruments: instruments{counter: counter, latency: latency},
		client:      client,
	}
}

func (mm *metricsAnonymous) Rendezvous(ctx context.Context) (participant.CoordinatorClient, error) {
	defer mm.observe("rendezvous", time.Now())

	client, err := mm.client.Rendezvous(ctx)
	if err != nil {
		return nil, err
	}

	return &metricsCoordinator{instruments: mm.instruments, client: client}, nil
}

type metricsCoordinator struct {
	instruments
	client participant.CoordinatorClient
}

func (mm *metricsCoordinator) Heartbeat(ctx context.Context) (fl.HeartbeatResponse, error) {
	defer mm.observe("heartbeat", time.Now())

	return mm.client.Heartbeat(ctx)
}

func (mm *metricsCoordinator) StartTraining(ctx context.Context) (participant.AggregatorClient, error) {
	defer mm.observe("start-training", time.Now())

	client, err := mm.client.StartTraining(ctx)
	if err != nil {
		return nil, err
	}

	return &metricsAggregator{instruments: mm.instruments, client: client}, nil
}

func (mm *metricsCoordinator) Fork() (participant.CoordinatorClient, error) {
	client, err := mm.client.Fork()
	if err != nil {
		return nil, err
	}

	return &metricsCoordinator{instruments: mm.instruments, client: client}, nil
}

type metricsAggregator struct {
	instruments
	client participant.AggregatorClient
}

func (mm *metricsAggregator) Download(ctx context.Context) (fl.TrainingInput, error) {
	defer mm.observe("download", time.Now())

	return mm.client.Download(ctx)
}

func (mm *metricsAggregator) Upload(ctx context.Context, result fl.TrainingResult) error {
	defer mm.observe("upload", time.Now())

	return mm.client.Upload(ctx, result)
}
