package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/absmach/flparticipant/participant"
	"github.com/absmach/flparticipant/participant/middleware"
	"github.com/absmach/flparticipant/participant/mocks"
	"github.com/absmach/flparticipant/pkg/fl"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var (
	errUnavailable = errors.New("coordinator unavailable")
	input          = fl.TrainingInput{Round: 3, Weights: []float64{1, 2}}
	result         = fl.TrainingResult{Weights: []float64{0.5, 1}, NumSamples: 10}
)

// newClients wires a full chain of mocks: the anonymous client yields a
// coordinator whose fork and aggregator are mocks too.
func newClients() (*mocks.AnonymousClient, *mocks.CoordinatorClient, *mocks.AggregatorClient) {
	anonymous := new(mocks.AnonymousClient)
	coordinator := new(mocks.CoordinatorClient)
	aggregator := new(mocks.AggregatorClient)

	round := input.Round
	anonymous.On("Rendezvous", mock.Anything).Return(coordinator, nil)
	coordinator.On("Heartbeat", mock.Anything).Return(fl.HeartbeatResponse{State: "round", Round: &round}, nil)
	coordinator.On("Fork").Return(coordinator, nil)
	coordinator.On("StartTraining", mock.Anything).Return(aggregator, nil)
	aggregator.On("Download", mock.Anything).Return(input, nil)
	aggregator.On("Upload", mock.Anything, result).Return(nil)

	return anonymous, coordinator, aggregator
}

// exercise walks one full round through the decorated chain.
func exercise(t *testing.T, anonymous participant.AnonymousClient) {
	t.Helper()

	ctx := context.Background()

	client, err := anonymous.Rendezvous(ctx)
	require.NoError(t, err)

	forked, err := client.Fork()
	require.NoError(t, err)

	resp, err := forked.Heartbeat(ctx)
	require.NoError(t, err)
	assert.Equal(t, "round", resp.State)

	aggregator, err := client.StartTraining(ctx)
	require.NoError(t, err)

	got, err := aggregator.Download(ctx)
	require.NoError(t, err)
	assert.Equal(t, input, got)

	require.NoError(t, aggregator.Upload(ctx, result))
}

func TestLogging(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	anonymous, coordinator, aggregator := newClients()
	exercise(t, middleware.Logging(logger, anonymous))
	mock.AssertExpectationsForObjects(t, anonymous, coordinator, aggregator)

	out := buf.String()
	assert.Contains(t, out, "Rendezvous completed successfully")
	assert.Contains(t, out, "Heartbeat completed successfully")
	assert.Contains(t, out, "Start training completed successfully")
	assert.Contains(t, out, "Download training input completed successfully")
	assert.Contains(t, out, "Upload training result completed successfully")
}

func TestLoggingFailure(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	anonymous := new(mocks.AnonymousClient)
	anonymous.On("Rendezvous", mock.Anything).Return(nil, errUnavailable).Once()

	client, err := middleware.Logging(logger, anonymous).Rendezvous(context.Background())
	assert.ErrorIs(t, err, errUnavailable)
	assert.Nil(t, client)
	assert.Contains(t, buf.String(), "Rendezvous failed")
	assert.Contains(t, buf.String(), errUnavailable.Error())
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	counterVec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "participant",
		Subsystem: "transport",
		Name:      "request_count",
	}, []string{"method"})
	latencyVec := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "participant",
		Subsystem: "transport",
		Name:      "request_latency_seconds",
	}, []string{"method"})

	anonymous, coordinator, aggregator := newClients()
	decorated := middleware.Metrics(kitprometheus.NewCounter(counterVec), kitprometheus.NewSummary(latencyVec), anonymous)
	exercise(t, decorated)
	mock.AssertExpectationsForObjects(t, anonymous, coordinator, aggregator)

	for _, method := range []string{"rendezvous", "heartbeat", "start-training", "download", "upload"} {
		assert.InDelta(t, 1, testutil.ToFloat64(counterVec.WithLabelValues(method)), 0, method)
	}
	assert.Equal(t, 5, testutil.CollectAndCount(latencyVec))
}

func TestTracing(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})

	anonymous, coordinator, aggregator := newClients()
	exercise(t, middleware.Tracing(provider.Tracer("participant"), anonymous))
	mock.AssertExpectationsForObjects(t, anonymous, coordinator, aggregator)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	assert.Equal(t, []string{"rendezvous", "heartbeat", "start-training", "download", "upload"}, names)
}

func TestTracingRecordsErrors(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})

	anonymous := new(mocks.AnonymousClient)
	anonymous.On("Rendezvous", mock.Anything).Return(nil, errUnavailable).Once()

	_, err := middleware.Tracing(provider.Tracer("participant"), anonymous).Rendezvous(context.Background())
	assert.ErrorIs(t, err, errUnavailable)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, errUnavailable.Error(), spans[0].Status().Description)
}
