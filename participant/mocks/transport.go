package mocks

import (
	"context"

	"github.com/absmach/flparticipant/participant"
	"github.com/absmach/flparticipant/pkg/fl"
	"github.com/stretchr/testify/mock"
)

var (
	_ participant.AnonymousClient   = (*AnonymousClient)(nil)
	_ participant.CoordinatorClient = (*CoordinatorClient)(nil)
	_ participant.AggregatorClient  = (*AggregatorClient)(nil)
)

// AnonymousClient is a mock implementation of participant.AnonymousClient
type AnonymousClient struct {
	mock.Mock
}

// Rendezvous registers the participant
func (m *AnonymousClient) Rendezvous(ctx context.Context) (participant.CoordinatorClient, error) {
	args := m.Called(ctx)
	client, _ := args.Get(0).(participant.CoordinatorClient)

	return client, args.Error(1)
}

// CoordinatorClient is a mock implementation of participant.CoordinatorClient
type CoordinatorClient struct {
	mock.Mock
}

// Heartbeat polls the coordinator
func (m *CoordinatorClient) Heartbeat(ctx context.Context) (fl.HeartbeatResponse, error) {
	args := m.Called(ctx)

	return args.Get(0).(fl.HeartbeatResponse), args.Error(1)
}

// StartTraining opens an aggregator session
func (m *CoordinatorClient) StartTraining(ctx context.Context) (participant.AggregatorClient, error) {
	args := m.Called(ctx)
	client, _ := args.Get(0).(participant.AggregatorClient)

	return client, args.Error(1)
}

// Fork returns an independent client
func (m *CoordinatorClient) Fork() (participant.CoordinatorClient, error) {
	args := m.Called()
	client, _ := args.Get(0).(participant.CoordinatorClient)

	return client, args.Error(1)
}

// AggregatorClient is a mock implementation of participant.AggregatorClient
type AggregatorClient struct {
	mock.Mock
}

// Download fetches the training input
func (m *AggregatorClient) Download(ctx context.Context) (fl.TrainingInput, error) {
	args := m.Called(ctx)

	return args.Get(0).(fl.TrainingInput), args.Error(1)
}

// Upload sends the training result
func (m *AggregatorClient) Upload(ctx context.Context, result fl.TrainingResult) error {
	args := m.Called(ctx, result)

	return args.Error(0)
}
