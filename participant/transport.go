package participant

import (
	"context"

	"github.com/absmach/flparticipant/pkg/fl"
)

// AnonymousClient talks to the coordinator before a session exists.
type AnonymousClient interface {
	// Rendezvous registers the participant and returns a session-bound client.
	Rendezvous(ctx context.Context) (CoordinatorClient, error)
}

type CoordinatorClient interface {
	Heartbeat(ctx context.Context) (fl.HeartbeatResponse, error)

	// StartTraining opens the aggregator session of the current round.
	StartTraining(ctx context.Context) (AggregatorClient, error)

	// Fork returns a client bound to the same session that shares no
	// connection state with the receiver.
	Fork() (CoordinatorClient, error)
}

type AggregatorClient interface {
	Download(ctx context.Context) (fl.TrainingInput, error)
	Upload(ctx context.Context, result fl.TrainingResult) error
}

// Trainer is implemented by the embedding application. The driver calls it
// from a single goroutine.
type Trainer interface {
	InitWeights(ctx context.Context) (fl.TrainingResult, error)
	TrainRound(ctx context.Context, input fl.TrainingInput) (fl.TrainingResult, error)
}

// StatusNotifier is told about every phase the driver observes.
type StatusNotifier interface {
	NotifyStatus(ctx context.Context, status Status) error
}
