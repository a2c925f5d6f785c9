package mocks

import (
	"context"

	"github.com/absmach/flparticipant/participant"
	"github.com/absmach/flparticipant/pkg/fl"
	"github.com/stretchr/testify/mock"
)

var (
	_ participant.Trainer        = (*Trainer)(nil)
	_ participant.StatusNotifier = (*StatusNotifier)(nil)
)

// Trainer is a mock implementation of participant.Trainer
type Trainer struct {
	mock.Mock
}

// InitWeights returns the initial weights
func (m *Trainer) InitWeights(ctx context.Context) (fl.TrainingResult, error) {
	args := m.Called(ctx)

	return args.Get(0).(fl.TrainingResult), args.Error(1)
}

// TrainRound trains one round
func (m *Trainer) TrainRound(ctx context.Context, input fl.TrainingInput) (fl.TrainingResult, error) {
	args := m.Called(ctx, input)

	return args.Get(0).(fl.TrainingResult), args.Error(1)
}

// StatusNotifier is a mock implementation of participant.StatusNotifier
type StatusNotifier struct {
	mock.Mock
}

// NotifyStatus records a status
func (m *StatusNotifier) NotifyStatus(ctx context.Context, status participant.Status) error {
	args := m.Called(ctx, status)

	return args.Error(0)
}
